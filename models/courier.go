package models

import "time"

// Courier represents a delivery partner ("DG").
// assigned orders are tracked on the orders table (orders.courier_id), not here.
type Courier struct {
	ID               int64    `db:"id" json:"id"`
	TelegramID       int64    `db:"telegram_id" json:"telegram_id"`
	Name             string   `db:"name" json:"name"`
	Campus           string   `db:"campus" json:"campus"`
	Gender           string   `db:"gender" json:"gender"`
	Active           bool     `db:"active" json:"active"`
	Blocked          bool     `db:"blocked" json:"blocked"`
	TotalRequests    int64    `db:"total_requests" json:"total_requests"`
	AcceptedRequests int64    `db:"accepted_requests" json:"accepted_requests"`
	SkippedRequests  int64    `db:"skipped_requests" json:"skipped_requests"`
	TotalDeliveries  int64    `db:"total_deliveries" json:"total_deliveries"`
	// Last known location is nullable in DB; use pointers to distinguish null vs zero.
	LastLat      *float64   `db:"last_lat" json:"last_lat,omitempty"`
	LastLon      *float64   `db:"last_lon" json:"last_lon,omitempty"`
	LastOnlineAt *time.Time `db:"last_online_at" json:"last_online_at,omitempty"`
	LastSkipAt   *time.Time `db:"last_skip_at" json:"last_skip_at,omitempty"`

	// ActiveOrders and InProgressOrders are populated by eligibility queries,
	// not stored columns.
	ActiveOrders     int64 `db:"-" json:"active_orders,omitempty"`
	InProgressOrders int64 `db:"-" json:"in_progress_orders,omitempty"`
}

// HasLocation reports whether the courier has a known last location.
func (c *Courier) HasLocation() bool {
	return c.LastLat != nil && c.LastLon != nil
}

// AcceptanceRate returns accepted/total as a percentage. A courier with no
// requests yet counts as a perfect rate.
func (c *Courier) AcceptanceRate() float64 {
	if c.TotalRequests == 0 {
		return 100.0
	}
	return float64(c.AcceptedRequests) / float64(c.TotalRequests) * 100.0
}

// ReliabilityScore weighs acceptance rate, completed deliveries and skips into
// a single ranking value used to pre-order assignment candidates.
func (c *Courier) ReliabilityScore() float64 {
	rate := 1.0
	if c.TotalRequests > 0 {
		rate = float64(c.AcceptedRequests) / float64(c.TotalRequests)
	}
	return rate*50 + float64(c.TotalDeliveries)*0.3 - float64(c.SkippedRequests)*0.2
}
