package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"campusDeliveryBot/internal/notify"
	"campusDeliveryBot/models"
	"campusDeliveryBot/repository"
)

// ErrStaleTransition is returned when an accept or skip arrives for an order
// whose assignment has already changed. The race loser's effects are skipped;
// callers answer the courier with an "already processed" notice.
var ErrStaleTransition = errors.New("assignment already changed")

// Config drives the assignment subsystem.
type Config struct {
	OfferTTL           time.Duration
	MaxActiveOrders    int
	SkipAlertThreshold int64
	AdminChatID        int64
}

// Service owns the offer lifecycle: candidate selection, offer creation,
// accept/skip/expiry/unreachable transitions and the reassignment cascade.
// All durable order/courier writes in the assignment flow happen here, inside
// named transitions, guarded by conditional updates rather than locks.
type Service struct {
	orders   repository.OrderRepositoryI
	couriers repository.CourierRepositoryI
	users    repository.UserRepositoryI
	registry *Registry
	gateway  notify.Gateway
	logger   *zap.SugaredLogger
	cfg      Config

	now func() time.Time // injectable for tests
}

func NewService(
	orders repository.OrderRepositoryI,
	couriers repository.CourierRepositoryI,
	users repository.UserRepositoryI,
	registry *Registry,
	gateway notify.Gateway,
	log *zap.SugaredLogger,
	cfg Config,
) *Service {
	if cfg.OfferTTL <= 0 {
		cfg.OfferTTL = 180 * time.Second
	}
	if cfg.MaxActiveOrders <= 0 {
		cfg.MaxActiveOrders = 5
	}
	return &Service{
		orders:   orders,
		couriers: couriers,
		users:    users,
		registry: registry,
		gateway:  gateway,
		logger:   log,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Registry exposes the offer registry (read access for the sweeper and handlers).
func (s *Service) Registry() *Registry { return s.registry }

// Assign selects the best eligible courier for a pending order, transitions it
// to assigned and issues the offer. Returns (nil, nil) when no candidate is
// available: the order stays pending and the admins are alerted — assignment
// deferred, not an error.
func (s *Service) Assign(ctx context.Context, orderID int64) (*models.Courier, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}
	if o == nil {
		return nil, fmt.Errorf("order %d not found", orderID)
	}
	if o.Status != models.OrderStatusPending {
		s.logger.Debugw("assign skipped: order not pending", "order_id", orderID, "status", o.Status)
		return nil, nil
	}

	excluded := o.RejectedCourierIDs()
	candidates, err := s.couriers.ListEligible(ctx, excluded, s.cfg.MaxActiveOrders)
	if err != nil {
		return nil, fmt.Errorf("list eligible couriers: %w", err)
	}

	student, err := s.users.GetByID(ctx, o.UserID)
	if err != nil {
		return nil, fmt.Errorf("get student %d: %w", o.UserID, err)
	}

	chosen := SelectCandidate(o, student, candidates)
	if chosen == nil {
		s.logger.Warnw("no eligible courier", "order_id", orderID, "excluded", excluded)
		s.alertAdmin(ctx, fmt.Sprintf("Order #%d has no eligible delivery partner. Manual action needed.", orderID))
		return nil, nil
	}

	ok, err := s.orders.AssignCourier(ctx, orderID, chosen.ID)
	if err != nil {
		return nil, fmt.Errorf("assign order %d to courier %d: %w", orderID, chosen.ID, err)
	}
	if !ok {
		// Someone else moved the order between our read and the write.
		s.logger.Debugw("assign lost race", "order_id", orderID, "courier_id", chosen.ID)
		return nil, nil
	}

	s.logger.Infow("order assigned", "order_id", orderID, "courier_id", chosen.ID, "courier", chosen.Name)

	offer := Offer{
		OrderID:   orderID,
		CourierID: chosen.ID,
		ChatID:    chosen.TelegramID,
		IssuedAt:  s.now(),
		TTL:       s.cfg.OfferTTL,
	}

	ref, err := s.gateway.SendOffer(ctx, chosen, o, s.cfg.OfferTTL)
	switch {
	case err == nil:
		offer.Message = ref
	case errors.Is(err, notify.ErrUnreachable):
		// The courier can never see this offer; treat as an implicit skip.
		s.logger.Warnw("courier unreachable on offer send", "order_id", orderID, "courier_id", chosen.ID)
		s.registry.Put(offer)
		if err := s.HandleUnreachable(ctx, orderID, chosen.ID); err != nil {
			s.logger.Errorw("unreachable cascade failed", "order_id", orderID, "error", err)
		}
		return nil, nil
	default:
		// Transient send failure: the offer still stands; the sweeper will
		// expire it if the courier never sees it.
		s.logger.Warnw("offer send failed", "order_id", orderID, "courier_id", chosen.ID, "error", err)
	}

	s.registry.Put(offer)
	return chosen, nil
}

// HandleAccept processes a courier's accept event for an assigned order.
// Guarded: a stale accept on an already-reassigned order returns
// ErrStaleTransition and changes nothing.
func (s *Service) HandleAccept(ctx context.Context, orderID, courierID int64) (*models.Order, error) {
	ok, err := s.orders.AcceptAssignment(ctx, orderID, courierID, models.OrderStatusPreparing)
	if err != nil {
		s.dropOfferOnFailure(orderID, err)
		return nil, fmt.Errorf("accept order %d: %w", orderID, err)
	}
	if !ok {
		return nil, ErrStaleTransition
	}

	offer, hadOffer := s.registry.Get(orderID)
	s.registry.Delete(orderID)

	if err := s.couriers.IncrementCounter(ctx, courierID, repository.CounterAcceptedRequests); err != nil {
		s.logger.Errorw("increment accepted_requests failed", "courier_id", courierID, "error", err)
	}
	if err := s.couriers.IncrementCounter(ctx, courierID, repository.CounterTotalRequests); err != nil {
		s.logger.Errorw("increment total_requests failed", "courier_id", courierID, "error", err)
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil || o == nil {
		s.logger.Errorw("reload accepted order failed", "order_id", orderID, "error", err)
		return nil, nil
	}

	// Notifications are best-effort after the durable commit.
	if hadOffer && offer.Message != (notify.MessageRef{}) {
		if err := s.gateway.EditMessage(ctx, offer.Message, notify.RenderOfferAccepted(o)); err != nil {
			s.logger.Warnw("edit accepted offer message failed", "order_id", orderID, "error", err)
		}
	}
	s.notifyStudent(ctx, o, func(c *models.Courier) string {
		name := ""
		if c != nil {
			name = c.Name
		}
		return notify.RenderStudentAssigned(o, name)
	}, courierID)

	s.logger.Infow("order accepted", "order_id", orderID, "courier_id", courierID)
	return o, nil
}

// HandleSkip processes a courier's explicit skip of their outstanding offer
// and re-runs the matcher with the courier blacklisted.
func (s *Service) HandleSkip(ctx context.Context, orderID, courierID int64) error {
	offer, hadOffer := s.registry.Get(orderID)

	if err := s.reject(ctx, orderID, courierID); err != nil {
		return err
	}

	// Replace the courier's offer message with a terminal skip notice.
	if hadOffer && offer.CourierID == courierID && offer.Message != (notify.MessageRef{}) {
		if err := s.gateway.EditMessage(ctx, offer.Message, notify.RenderOfferSkipped()); err != nil {
			s.logger.Warnw("edit skipped offer message failed", "order_id", orderID, "error", err)
		}
	}

	s.checkSkipThreshold(ctx, courierID)
	return s.cascade(ctx, orderID, courierID, "skipped")
}

// ExpireOffer processes a TTL expiry detected by the sweeper. Identical to a
// skip for blacklist and state purposes; the offer message is edited to a
// terminal "expired" display instead of a skip acknowledgment.
func (s *Service) ExpireOffer(ctx context.Context, offer Offer) error {
	if offer.Message != (notify.MessageRef{}) {
		if err := s.gateway.EditMessage(ctx, offer.Message, notify.RenderOfferExpired(offer.OrderID)); err != nil {
			s.logger.Debugw("edit expired offer message failed", "order_id", offer.OrderID, "error", err)
		}
	}

	if err := s.reject(ctx, offer.OrderID, offer.CourierID); err != nil {
		return err
	}
	s.checkSkipThreshold(ctx, offer.CourierID)
	return s.cascade(ctx, offer.OrderID, offer.CourierID, "expired")
}

// HandleUnreachable processes a permanent notification failure for the
// courier holding the order's offer. Treated identically to expiry.
func (s *Service) HandleUnreachable(ctx context.Context, orderID, courierID int64) error {
	if err := s.reject(ctx, orderID, courierID); err != nil {
		return err
	}
	s.checkSkipThreshold(ctx, courierID)
	return s.cascade(ctx, orderID, courierID, "unreachable")
}

// reject applies the shared rejection transition: blacklist append, skip
// counters, reset to pending, registry removal. The blacklist append carries
// the optimistic guard (order still assigned to this courier), so a stale
// caller gets ErrStaleTransition before anything is written.
func (s *Service) reject(ctx context.Context, orderID, courierID int64) error {
	ok, err := s.orders.AppendRejectedCourier(ctx, orderID, courierID)
	if err != nil {
		s.dropOfferOnFailure(orderID, err)
		return fmt.Errorf("blacklist courier %d on order %d: %w", courierID, orderID, err)
	}
	if !ok {
		return ErrStaleTransition
	}

	if err := s.couriers.IncrementCounter(ctx, courierID, repository.CounterSkippedRequests); err != nil {
		s.logger.Errorw("increment skipped_requests failed", "courier_id", courierID, "error", err)
	}
	if err := s.couriers.IncrementCounter(ctx, courierID, repository.CounterTotalRequests); err != nil {
		s.logger.Errorw("increment total_requests failed", "courier_id", courierID, "error", err)
	}

	ok, err = s.orders.ResetToPending(ctx, orderID, courierID)
	if err != nil {
		s.dropOfferOnFailure(orderID, err)
		return fmt.Errorf("reset order %d to pending: %w", orderID, err)
	}
	if !ok {
		// An accept slipped in between the append and the reset; the accept
		// won, our remaining effects are skipped.
		s.registry.Delete(orderID)
		return ErrStaleTransition
	}

	s.registry.Delete(orderID)
	return nil
}

// cascade re-invokes the matcher for the order after a rejection and sends the
// follow-up notifications for either outcome.
func (s *Service) cascade(ctx context.Context, orderID, rejectedCourierID int64, reason string) error {
	next, err := s.Assign(ctx, orderID)
	if err != nil {
		return fmt.Errorf("reassign order %d after %s: %w", orderID, reason, err)
	}

	o, gerr := s.orders.GetByID(ctx, orderID)
	if gerr != nil || o == nil {
		s.logger.Errorw("reload order after cascade failed", "order_id", orderID, "error", gerr)
		return nil
	}

	if next != nil {
		s.logger.Infow("order re-offered", "order_id", orderID, "reason", reason,
			"from_courier", rejectedCourierID, "to_courier", next.ID)
		s.alertAdmin(ctx, fmt.Sprintf("Order #%d was %s and re-offered to %s.", orderID, reason, next.Name))
		return nil
	}

	// Assign already alerted the admins about the empty pool; here we only
	// tell the student reassignment is still pending.
	s.logger.Warnw("order could not be re-offered", "order_id", orderID, "reason", reason)
	s.notifyStudent(ctx, o, func(*models.Courier) string {
		return notify.RenderStudentDelay(orderID)
	}, 0)
	return nil
}

// RecoverOffers rebuilds the in-memory registry after a restart by re-issuing
// offers for every order the store still shows as assigned. The previous
// message handles are gone, so couriers receive a fresh offer with a fresh TTL.
func (s *Service) RecoverOffers(ctx context.Context) error {
	assigned, err := s.orders.ListByStatus(ctx, models.OrderStatusAssigned)
	if err != nil {
		return fmt.Errorf("list assigned orders: %w", err)
	}
	for i := range assigned {
		o := &assigned[i]
		if o.CourierID == nil {
			continue
		}
		if _, ok := s.registry.Get(o.ID); ok {
			continue
		}
		courier, err := s.couriers.GetByID(ctx, *o.CourierID)
		if err != nil || courier == nil {
			s.logger.Errorw("recover: courier lookup failed", "order_id", o.ID, "error", err)
			continue
		}

		offer := Offer{
			OrderID:   o.ID,
			CourierID: courier.ID,
			ChatID:    courier.TelegramID,
			IssuedAt:  s.now(),
			TTL:       s.cfg.OfferTTL,
		}
		ref, err := s.gateway.SendOffer(ctx, courier, o, s.cfg.OfferTTL)
		switch {
		case err == nil:
			offer.Message = ref
		case errors.Is(err, notify.ErrUnreachable):
			s.registry.Put(offer)
			if err := s.HandleUnreachable(ctx, o.ID, courier.ID); err != nil {
				s.logger.Errorw("recover: unreachable cascade failed", "order_id", o.ID, "error", err)
			}
			continue
		default:
			s.logger.Warnw("recover: offer re-send failed", "order_id", o.ID, "error", err)
		}
		s.registry.Put(offer)
		s.logger.Infow("offer recovered", "order_id", o.ID, "courier_id", courier.ID)
	}
	return nil
}

// checkSkipThreshold alerts admins when a courier's skip count crosses the
// configured threshold. Triggered after every skip-like rejection.
func (s *Service) checkSkipThreshold(ctx context.Context, courierID int64) {
	if s.cfg.SkipAlertThreshold <= 0 {
		return
	}
	c, err := s.couriers.GetByID(ctx, courierID)
	if err != nil || c == nil {
		s.logger.Errorw("skip threshold lookup failed", "courier_id", courierID, "error", err)
		return
	}
	if c.SkippedRequests >= s.cfg.SkipAlertThreshold {
		s.alertAdmin(ctx, fmt.Sprintf("Delivery partner %s has %d skips today.", c.Name, c.SkippedRequests))
	}
}

// notifyStudent resolves the order's student chat and sends the rendered text.
// courierID is looked up only when the render callback wants the courier name;
// pass 0 to skip the lookup.
func (s *Service) notifyStudent(ctx context.Context, o *models.Order, render func(*models.Courier) string, courierID int64) {
	student, err := s.users.GetByID(ctx, o.UserID)
	if err != nil || student == nil {
		s.logger.Warnw("student lookup failed", "order_id", o.ID, "user_id", o.UserID, "error", err)
		return
	}
	var courier *models.Courier
	if courierID != 0 {
		courier, _ = s.couriers.GetByID(ctx, courierID)
	}
	if err := s.gateway.Notify(ctx, student.TelegramID, render(courier)); err != nil {
		s.logger.Warnw("student notify failed", "order_id", o.ID, "error", err)
	}
}

// alertAdmin posts to the admin group. Best-effort.
func (s *Service) alertAdmin(ctx context.Context, text string) {
	if s.cfg.AdminChatID == 0 {
		return
	}
	if err := s.gateway.Notify(ctx, s.cfg.AdminChatID, text); err != nil {
		s.logger.Warnw("admin notify failed", "error", err)
	}
}

// dropOfferOnFailure removes the in-memory offer after a persistence error so
// no orphaned countdown keeps editing a message for an order whose durable
// state is unknown. The next sweeper tick re-derives state from the store.
func (s *Service) dropOfferOnFailure(orderID int64, err error) {
	s.logger.Errorw("persistence failure during transition; dropping offer", "order_id", orderID, "error", err)
	s.registry.Delete(orderID)
}
