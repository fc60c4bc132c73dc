package dispatch

import (
	"sync"
	"time"

	"campusDeliveryBot/internal/notify"
)

// Offer is one outstanding order offer awaiting a courier's response.
// Offers live only in memory; after a restart the registry is rebuilt from the
// order store's assigned rows (see Service.RecoverOffers).
type Offer struct {
	OrderID   int64
	CourierID int64
	ChatID    int64
	Message   notify.MessageRef
	IssuedAt  time.Time
	TTL       time.Duration
}

// Remaining returns the time left on the offer at the given instant.
func (o Offer) Remaining(now time.Time) time.Duration {
	left := o.TTL - now.Sub(o.IssuedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Registry is the in-memory table of outstanding offers, keyed by order id.
// There is at most one live offer per order. Mutated by the dispatch service,
// read by the sweeper.
type Registry struct {
	mu         sync.Mutex
	offers     map[int64]Offer
	countdowns map[int64]string // last rendered countdown per order
}

func NewRegistry() *Registry {
	return &Registry{
		offers:     make(map[int64]Offer),
		countdowns: make(map[int64]string),
	}
}

// Put stores the offer, replacing any previous offer for the same order.
func (r *Registry) Put(o Offer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offers[o.OrderID] = o
	delete(r.countdowns, o.OrderID)
}

// Get returns the offer for an order, if one is outstanding.
func (r *Registry) Get(orderID int64) (Offer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[orderID]
	return o, ok
}

// Delete removes the offer for an order. Removing a missing entry is a no-op.
func (r *Registry) Delete(orderID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.offers, orderID)
	delete(r.countdowns, orderID)
}

// Snapshot returns a copy of all outstanding offers.
func (r *Registry) Snapshot() []Offer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Offer, 0, len(r.offers))
	for _, o := range r.offers {
		out = append(out, o)
	}
	return out
}

// Len returns the number of outstanding offers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.offers)
}

// UpdateCountdown records the countdown string last rendered for an order.
// Returns false when the value is unchanged (the caller skips the no-op edit)
// or when no offer is outstanding for the order.
func (r *Registry) UpdateCountdown(orderID int64, countdown string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.offers[orderID]; !ok {
		return false
	}
	if r.countdowns[orderID] == countdown {
		return false
	}
	r.countdowns[orderID] = countdown
	return true
}
