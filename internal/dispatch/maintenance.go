package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"campusDeliveryBot/internal/notify"
	"campusDeliveryBot/models"
)

// Maintenance runs the slow housekeeping jobs that back up the sweeper:
// reassigning orders stuck in assigned with no live offer, expiring pending
// orders past their deadline and resetting daily skip counters at midnight.
type Maintenance struct {
	service       *Service
	interval      time.Duration
	assignedAfter time.Duration // assigned rows older than this are reassigned
	logger        *zap.SugaredLogger

	now     func() time.Time
	lastDay string
}

func NewMaintenance(service *Service, interval, assignedAfter time.Duration, log *zap.SugaredLogger) *Maintenance {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if assignedAfter <= 0 {
		assignedAfter = 5 * time.Minute
	}
	return &Maintenance{
		service:       service,
		interval:      interval,
		assignedAfter: assignedAfter,
		logger:        log,
		now:           time.Now,
	}
}

// Run ticks until the context is cancelled.
func (m *Maintenance) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick runs one maintenance pass.
func (m *Maintenance) Tick(ctx context.Context) {
	if err := m.ReassignStale(ctx); err != nil {
		m.logger.Errorw("maintenance: stale reassign failed", "error", err)
	}
	if err := m.ExpireStalePending(ctx); err != nil {
		m.logger.Errorw("maintenance: pending expiry failed", "error", err)
	}
	if err := m.ResetDailySkips(ctx); err != nil {
		m.logger.Errorw("maintenance: daily skip reset failed", "error", err)
	}
}

// ReassignStale finds orders stuck in assigned past the cutoff with no offer
// in the registry (a crash or dropped event left them behind) and puts them
// back through the matcher. The holding courier is not blacklisted: the stall
// was the system's fault, not a skip.
func (m *Maintenance) ReassignStale(ctx context.Context) error {
	cutoff := m.now().Add(-m.assignedAfter)
	stale, err := m.service.orders.ListAssignedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list stale assigned orders: %w", err)
	}
	for i := range stale {
		o := &stale[i]
		if _, live := m.service.Registry().Get(o.ID); live {
			continue
		}
		if o.CourierID == nil {
			continue
		}
		ok, err := m.service.orders.ResetToPending(ctx, o.ID, *o.CourierID)
		if err != nil {
			m.logger.Errorw("maintenance: reset stale order failed", "order_id", o.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		m.logger.Warnw("stale assignment reset", "order_id", o.ID, "courier_id", *o.CourierID)
		if _, err := m.service.Assign(ctx, o.ID); err != nil {
			m.logger.Errorw("maintenance: reassign failed", "order_id", o.ID, "error", err)
		}
	}
	return nil
}

// ExpireStalePending cancels pending orders whose expires_at deadline passed
// with no courier ever accepting, and tells the student and the admins.
func (m *Maintenance) ExpireStalePending(ctx context.Context) error {
	expired, err := m.service.orders.ListExpiredPending(ctx, m.now())
	if err != nil {
		return fmt.Errorf("list expired pending orders: %w", err)
	}
	for i := range expired {
		o := &expired[i]
		ok, err := m.service.orders.Cancel(ctx, o.ID, "no courier available")
		if err != nil {
			m.logger.Errorw("maintenance: cancel expired order failed", "order_id", o.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		m.service.Registry().Delete(o.ID)
		m.logger.Infow("pending order expired", "order_id", o.ID)
		m.service.notifyStudent(ctx, o, func(*models.Courier) string {
			return notify.RenderStudentCancelled(o.ID)
		}, 0)
		m.service.alertAdmin(ctx, fmt.Sprintf("Order #%d expired unassigned and was cancelled.", o.ID))
	}
	return nil
}

// ResetDailySkips zeroes every courier's skip counter on the first tick of a
// new calendar day.
func (m *Maintenance) ResetDailySkips(ctx context.Context) error {
	day := m.now().Format("2006-01-02")
	if m.lastDay == "" {
		m.lastDay = day
		return nil
	}
	if day == m.lastDay {
		return nil
	}
	if err := m.service.couriers.ResetAllSkipCounts(ctx); err != nil {
		return fmt.Errorf("reset skip counts: %w", err)
	}
	m.lastDay = day
	m.logger.Infow("daily skip counters reset", "day", day)
	return nil
}
