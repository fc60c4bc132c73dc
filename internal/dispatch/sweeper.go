package dispatch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"campusDeliveryBot/internal/notify"
	"campusDeliveryBot/models"
)

// Sweeper periodically walks the offer registry: it expires offers past their
// TTL, updates live countdown messages and drops entries that drifted from
// the durable order state. It is the only writer of countdown edits.
type Sweeper struct {
	service  *Service
	interval time.Duration
	logger   *zap.SugaredLogger

	now func() time.Time
}

func NewSweeper(service *Service, interval time.Duration, log *zap.SugaredLogger) *Sweeper {
	if interval <= 0 {
		interval = 20 * time.Second
	}
	return &Sweeper{
		service:  service,
		interval: interval,
		logger:   log,
		now:      time.Now,
	}
}

// Run ticks until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one sweep over a snapshot of outstanding offers.
func (s *Sweeper) Tick(ctx context.Context) {
	now := s.now()
	for _, offer := range s.service.Registry().Snapshot() {
		s.sweepOne(ctx, offer, now)
	}
}

func (s *Sweeper) sweepOne(ctx context.Context, offer Offer, now time.Time) {
	// Drift check: the registry entry must still match the store. An order
	// that was accepted, cancelled or reassigned out of band is dropped.
	o, err := s.service.orders.GetByID(ctx, offer.OrderID)
	if err != nil {
		s.logger.Errorw("sweep: order load failed", "order_id", offer.OrderID, "error", err)
		return
	}
	if o == nil || o.Status != models.OrderStatusAssigned ||
		o.CourierID == nil || *o.CourierID != offer.CourierID {
		s.logger.Debugw("sweep: dropping drifted offer", "order_id", offer.OrderID)
		s.service.Registry().Delete(offer.OrderID)
		return
	}

	remaining := offer.Remaining(now)
	if remaining <= 0 {
		s.logger.Infow("offer expired", "order_id", offer.OrderID, "courier_id", offer.CourierID)
		if err := s.service.ExpireOffer(ctx, offer); err != nil && !errors.Is(err, ErrStaleTransition) {
			s.logger.Errorw("sweep: expiry failed", "order_id", offer.OrderID, "error", err)
		}
		return
	}

	if offer.Message == (notify.MessageRef{}) {
		return
	}

	countdown := notify.FormatCountdown(remaining)
	if !s.service.Registry().UpdateCountdown(offer.OrderID, countdown) {
		return
	}

	text := notify.RenderOffer(o, countdown, urgencyIcon(remaining))
	if err := s.service.gateway.EditMessage(ctx, offer.Message, text); err != nil {
		if errors.Is(err, notify.ErrUnreachable) {
			s.logger.Warnw("sweep: courier unreachable", "order_id", offer.OrderID, "courier_id", offer.CourierID)
			if err := s.service.HandleUnreachable(ctx, offer.OrderID, offer.CourierID); err != nil &&
				!errors.Is(err, ErrStaleTransition) {
				s.logger.Errorw("sweep: unreachable cascade failed", "order_id", offer.OrderID, "error", err)
			}
			return
		}
		s.logger.Debugw("sweep: countdown edit failed", "order_id", offer.OrderID, "error", err)
	}
}

// urgencyIcon picks the countdown icon for the time remaining on an offer.
func urgencyIcon(remaining time.Duration) string {
	switch {
	case remaining > 120*time.Second:
		return "⏳"
	case remaining > 30*time.Second:
		return "⚠️"
	default:
		return "❌"
	}
}
