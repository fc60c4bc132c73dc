package repository

import (
	"context"
	"testing"

	"campusDeliveryBot/models"
)

func TestListEligibleFilters(t *testing.T) {
	orders, couriers, users := newTestStore(t, "courier_eligible")
	ctx := context.Background()

	u := mustCreateStudent(t, users, 300)

	active := mustCreateCourier(t, couriers, 310, "6kilo")
	offline := mustCreateCourier(t, couriers, 311, "6kilo")
	blocked := mustCreateCourier(t, couriers, 312, "6kilo")
	excluded := mustCreateCourier(t, couriers, 313, "FBE")
	busy := mustCreateCourier(t, couriers, 314, "5kilo")

	if err := couriers.SetActive(ctx, offline.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if err := couriers.SetBlocked(ctx, blocked.ID, true); err != nil {
		t.Fatalf("SetBlocked: %v", err)
	}

	// An in_progress order disqualifies its courier entirely.
	o := mustCreateOrder(t, orders, u.ID)
	if ok, _ := orders.AssignCourier(ctx, o.ID, busy.ID); !ok {
		t.Fatalf("AssignCourier failed")
	}
	if ok, _ := orders.AcceptAssignment(ctx, o.ID, busy.ID, models.OrderStatusPreparing); !ok {
		t.Fatalf("AcceptAssignment failed")
	}
	if err := orders.UpdateStatus(ctx, o.ID, models.OrderStatusInProgress); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	got, err := couriers.ListEligible(ctx, []int64{excluded.ID}, 5)
	if err != nil {
		t.Fatalf("ListEligible: %v", err)
	}
	if len(got) != 1 || got[0].ID != active.ID {
		t.Fatalf("eligible = %v, want only courier %d", got, active.ID)
	}
}

func TestListEligibleCapacityBound(t *testing.T) {
	orders, couriers, users := newTestStore(t, "courier_capacity")
	ctx := context.Background()

	u := mustCreateStudent(t, users, 301)
	c := mustCreateCourier(t, couriers, 320, "6kilo")

	// Fill the courier to the active-order cap with accepted orders.
	for i := 0; i < 2; i++ {
		o := mustCreateOrder(t, orders, u.ID)
		if ok, _ := orders.AssignCourier(ctx, o.ID, c.ID); !ok {
			t.Fatalf("AssignCourier %d failed", i)
		}
		if ok, _ := orders.AcceptAssignment(ctx, o.ID, c.ID, models.OrderStatusPreparing); !ok {
			t.Fatalf("AcceptAssignment %d failed", i)
		}
	}

	got, err := couriers.ListEligible(ctx, nil, 2)
	if err != nil {
		t.Fatalf("ListEligible: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("courier at capacity still eligible: %v", got)
	}

	got, err = couriers.ListEligible(ctx, nil, 3)
	if err != nil {
		t.Fatalf("ListEligible wider cap: %v", err)
	}
	if len(got) != 1 || got[0].ActiveOrders != 2 {
		t.Fatalf("eligible under wider cap = %v", got)
	}

	n, err := couriers.ActiveOrderCount(ctx, c.ID)
	if err != nil || n != 2 {
		t.Fatalf("ActiveOrderCount = %d, %v", n, err)
	}
}

func TestIncrementCounterAndReset(t *testing.T) {
	_, couriers, _ := newTestStore(t, "courier_counters")
	ctx := context.Background()

	c := mustCreateCourier(t, couriers, 330, "6kilo")

	for _, f := range []CounterField{CounterTotalRequests, CounterTotalRequests, CounterAcceptedRequests, CounterSkippedRequests} {
		if err := couriers.IncrementCounter(ctx, c.ID, f); err != nil {
			t.Fatalf("IncrementCounter %s: %v", f, err)
		}
	}
	if err := couriers.IncrementCounter(ctx, c.ID, CounterField("is_admin")); err == nil {
		t.Fatalf("non-whitelisted counter accepted")
	}

	got, _ := couriers.GetByID(ctx, c.ID)
	if got.TotalRequests != 2 || got.AcceptedRequests != 1 || got.SkippedRequests != 1 {
		t.Fatalf("counters = %d/%d/%d", got.TotalRequests, got.AcceptedRequests, got.SkippedRequests)
	}
	if got.LastSkipAt == nil {
		t.Fatalf("last_skip_at not stamped on skip increment")
	}

	if err := couriers.ResetAllSkipCounts(ctx); err != nil {
		t.Fatalf("ResetAllSkipCounts: %v", err)
	}
	got, _ = couriers.GetByID(ctx, c.ID)
	if got.SkippedRequests != 0 {
		t.Fatalf("skipped_requests = %d after reset", got.SkippedRequests)
	}
	if got.TotalRequests != 2 {
		t.Fatalf("total_requests clobbered by skip reset: %d", got.TotalRequests)
	}
}

func TestUpdateLocation(t *testing.T) {
	_, couriers, _ := newTestStore(t, "courier_location")
	ctx := context.Background()

	c := mustCreateCourier(t, couriers, 340, "6kilo")
	if c.HasLocation() {
		t.Fatalf("new courier has a location")
	}
	if err := couriers.UpdateLocation(ctx, c.ID, 9.0442, 38.7636); err != nil {
		t.Fatalf("UpdateLocation: %v", err)
	}
	got, _ := couriers.GetByID(ctx, c.ID)
	if !got.HasLocation() || *got.LastLat != 9.0442 || *got.LastLon != 38.7636 {
		t.Fatalf("location = %v/%v", got.LastLat, got.LastLon)
	}
}

func TestReliabilityScore(t *testing.T) {
	c := &models.Courier{TotalRequests: 10, AcceptedRequests: 8, SkippedRequests: 2, TotalDeliveries: 20}
	want := 0.8*50 + 20*0.3 - 2*0.2
	if got := c.ReliabilityScore(); got != want {
		t.Fatalf("score = %v, want %v", got, want)
	}
	fresh := &models.Courier{}
	if fresh.ReliabilityScore() != 50 {
		t.Fatalf("fresh courier score = %v, want 50", fresh.ReliabilityScore())
	}
	if fresh.AcceptanceRate() != 100 {
		t.Fatalf("fresh courier rate = %v, want 100", fresh.AcceptanceRate())
	}
}
