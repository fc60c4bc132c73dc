package models

import (
	"strconv"
	"strings"
)

// OrderStatus represents the current progress of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusAssigned   OrderStatus = "assigned"
	OrderStatusPreparing  OrderStatus = "preparing"
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Order represents a student's delivery order with a one-to-one relation to
// User via UserID and an optional assignment to a courier via CourierID.
type Order struct {
	ID           int64       `db:"id" json:"id"`
	UserID       int64       `db:"user_id" json:"user_id"`
	VendorName   string      `db:"vendor_name" json:"vendor_name"`
	Pickup       string      `db:"pickup" json:"pickup"`
	Dropoff      string      `db:"dropoff" json:"dropoff"`
	ItemsJSON    string      `db:"items_json" json:"items_json,omitempty"`
	FoodSubtotal float64     `db:"food_subtotal" json:"food_subtotal"`
	DeliveryFee  float64     `db:"delivery_fee" json:"delivery_fee"`
	Status       OrderStatus `db:"status" json:"status"`
	// CourierID is null whenever the order is pending or cancelled.
	CourierID *int64 `db:"courier_id" json:"courier_id,omitempty"`
	// Drop coordinates are present only when the student shared a live location.
	// They are nullable in DB; use pointers to distinguish null vs zero.
	DropLat *float64 `db:"drop_lat" json:"drop_lat,omitempty"`
	DropLon *float64 `db:"drop_lon" json:"drop_lon,omitempty"`
	// RejectedBy is a comma-delimited string of courier IDs that have skipped,
	// timed out or gone unreachable on this order. Append-only; used to prevent
	// re-offering the order to the same courier.
	RejectedBy   string  `db:"rejected_by" json:"rejected_by,omitempty"`
	CreatedAt    string  `db:"created_at" json:"created_at"`
	AcceptedAt   *string `db:"accepted_at" json:"accepted_at,omitempty"`
	ReadyAt      *string `db:"ready_at" json:"ready_at,omitempty"`
	DeliveredAt  *string `db:"delivered_at" json:"delivered_at,omitempty"`
	ExpiresAt    *string `db:"expires_at" json:"expires_at,omitempty"`
	CancelReason string  `db:"cancel_reason" json:"cancel_reason,omitempty"`
}

// HasDropLocation reports whether the order carries dropoff coordinates.
func (o *Order) HasDropLocation() bool {
	return o.DropLat != nil && o.DropLon != nil
}

// RejectedCourierIDs parses RejectedBy into a slice of courier IDs.
func (o *Order) RejectedCourierIDs() []int64 {
	if o.RejectedBy == "" {
		return nil
	}
	parts := strings.Split(o.RejectedBy, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

// HasRejected reports whether the given courier already rejected this order.
func (o *Order) HasRejected(courierID int64) bool {
	for _, id := range o.RejectedCourierIDs() {
		if id == courierID {
			return true
		}
	}
	return false
}
