package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"campusDeliveryBot/models"
)

// OrderRepository is the core repository for Order entities.
// Assignment-related mutations are conditional updates: the WHERE clause
// carries the expected status/courier so a stale caller changes nothing and
// learns it from the returned bool. See the dispatch service for how the
// lifecycle relies on this.
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, user_id, vendor_name, pickup, dropoff, items_json,
food_subtotal, delivery_fee, status, courier_id, drop_lat, drop_lon,
rejected_by, created_at, accepted_at, ready_at, delivered_at, expires_at, cancel_reason`

// Create inserts a new order. Status defaults to 'pending' if empty.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	if o == nil {
		return nil, errors.New("order is nil")
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	if o.ItemsJSON == "" {
		o.ItemsJSON = "[]"
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO orders (user_id, vendor_name, pickup, dropoff, items_json, food_subtotal, delivery_fee, status, drop_lat, drop_lon, expires_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		o.UserID, o.VendorName, o.Pickup, o.Dropoff, o.ItemsJSON, o.FoodSubtotal, o.DeliveryFee,
		string(o.Status), o.DropLat, o.DropLon, o.ExpiresAt)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	o2, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o2 == nil {
		return nil, fmt.Errorf("created order not found: id=%d", id)
	}
	return o2, nil
}

// GetByID fetches an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// AssignCourier transitions a pending, unassigned order to assigned with the
// given courier. Returns false when the order was not pending anymore.
func (r *OrderRepository) AssignCourier(ctx context.Context, orderID, courierID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET status = 'assigned', courier_id = ?
WHERE id = ? AND status = 'pending' AND courier_id IS NULL`, courierID, orderID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AcceptAssignment transitions an assigned order belonging to the given
// courier into its post-acceptance status and stamps accepted_at. Returns
// false when the guard fails (the offer was already reassigned or resolved).
func (r *OrderRepository) AcceptAssignment(ctx context.Context, orderID, courierID int64, status models.OrderStatus) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET status = ?, accepted_at = CURRENT_TIMESTAMP
WHERE id = ? AND status = 'assigned' AND courier_id = ?`, string(status), orderID, courierID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ResetToPending clears the assignment of an order currently held by the given
// courier, returning it to the pool. Returns false when the guard fails.
func (r *OrderRepository) ResetToPending(ctx context.Context, orderID, courierID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET status = 'pending', courier_id = NULL
WHERE id = ? AND status = 'assigned' AND courier_id = ?`, orderID, courierID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AppendRejectedCourier adds a courier ID to the order's rejection blacklist
// (comma-delimited, duplicate-safe). The append carries the same optimistic
// guard as the other assignment mutators: it only applies while the order is
// still assigned to that courier, so a stale skip/expiry changes nothing.
func (r *OrderRepository) AppendRejectedCourier(ctx context.Context, orderID, courierID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	idStr := fmt.Sprintf("%d", courierID)
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET rejected_by = CASE
  WHEN rejected_by IS NULL OR rejected_by = '' THEN ?
  WHEN instr(',' || rejected_by || ',', ',' || ? || ',') > 0 THEN rejected_by
  ELSE rejected_by || ',' || ?
END
WHERE id = ? AND status = 'assigned' AND courier_id = ?`, idStr, idStr, idStr, orderID, courierID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// UpdateStatus updates the status of an order unconditionally. Downstream
// handlers (preparing/ready/delivered) use this; the assignment lifecycle does not.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	q := `UPDATE orders SET status = ? WHERE id = ?`
	switch status {
	case models.OrderStatusReady:
		q = `UPDATE orders SET status = ?, ready_at = CURRENT_TIMESTAMP WHERE id = ?`
	case models.OrderStatusDelivered:
		q = `UPDATE orders SET status = ?, delivered_at = CURRENT_TIMESTAMP WHERE id = ?`
	}
	_, err := r.db.ExecContext(ctx, q, string(status), id)
	return err
}

// Cancel transitions a pending order to cancelled with a reason. Returns false
// when the order was no longer pending.
func (r *OrderRepository) Cancel(ctx context.Context, id int64, reason string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET status = 'cancelled', cancel_reason = ?, courier_id = NULL
WHERE id = ? AND status = 'pending'`, reason, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanOrderInto(s rowScanner, o *models.Order) error {
	var status string
	var courierID sql.NullInt64
	var dropLat, dropLon sql.NullFloat64
	var rejected, cancelReason sql.NullString
	var acceptedAt, readyAt, deliveredAt, expiresAt sql.NullString
	if err := s.Scan(&o.ID, &o.UserID, &o.VendorName, &o.Pickup, &o.Dropoff, &o.ItemsJSON,
		&o.FoodSubtotal, &o.DeliveryFee, &status, &courierID, &dropLat, &dropLon,
		&rejected, &o.CreatedAt, &acceptedAt, &readyAt, &deliveredAt, &expiresAt, &cancelReason); err != nil {
		return err
	}
	o.Status = models.OrderStatus(status)
	if courierID.Valid {
		v := courierID.Int64
		o.CourierID = &v
	}
	if dropLat.Valid {
		v := dropLat.Float64
		o.DropLat = &v
	}
	if dropLon.Valid {
		v := dropLon.Float64
		o.DropLon = &v
	}
	if rejected.Valid {
		o.RejectedBy = rejected.String
	}
	if acceptedAt.Valid {
		v := acceptedAt.String
		o.AcceptedAt = &v
	}
	if readyAt.Valid {
		v := readyAt.String
		o.ReadyAt = &v
	}
	if deliveredAt.Valid {
		v := deliveredAt.String
		o.DeliveredAt = &v
	}
	if expiresAt.Valid {
		v := expiresAt.String
		o.ExpiresAt = &v
	}
	if cancelReason.Valid {
		o.CancelReason = cancelReason.String
	}
	return nil
}

func scanOrder(row *sql.Row) (*models.Order, error) {
	var o models.Order
	if err := scanOrderInto(row, &o); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}
