package dispatch

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"campusDeliveryBot/internal/notify"
	"campusDeliveryBot/models"
)

func newTestSweeper(f *fixture) *Sweeper {
	s := NewSweeper(f.svc, 20*time.Second, zap.NewNop().Sugar())
	s.now = func() time.Time { return f.now }
	return s
}

func TestSweeperCountdownAndIcons(t *testing.T) {
	f := newFixture(t, "sweep_countdown")
	ctx := context.Background()

	u := f.student(400, "6kilo")
	f.courier(410, "6kilo")
	o := f.order(u.ID)

	if _, err := f.svc.Assign(ctx, o.ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	sw := newTestSweeper(f)

	// 30 seconds in: 2:30 left, calm icon.
	f.now = f.now.Add(30 * time.Second)
	sw.Tick(ctx)
	edits := f.gateway.editedTexts()
	if len(edits) != 1 || !containsText(edits, "02:30") || !containsText(edits, "⏳") {
		t.Fatalf("first countdown edit = %v", edits)
	}

	// Same instant again: countdown unchanged, no duplicate edit.
	sw.Tick(ctx)
	if len(f.gateway.editedTexts()) != 1 {
		t.Fatalf("unchanged countdown re-edited: %v", f.gateway.editedTexts())
	}

	// 40 seconds left: warning icon.
	f.now = f.now.Add(110 * time.Second)
	sw.Tick(ctx)
	edits = f.gateway.editedTexts()
	if len(edits) != 2 || !containsText(edits, "00:40") || !containsText(edits, "⚠️") {
		t.Fatalf("warning edit = %v", edits)
	}

	// 20 seconds left: final icon.
	f.now = f.now.Add(20 * time.Second)
	sw.Tick(ctx)
	edits = f.gateway.editedTexts()
	if len(edits) != 3 || !containsText(edits, "00:20") || !containsText(edits, "❌") {
		t.Fatalf("final edit = %v", edits)
	}
}

func TestSweeperExpiresOffer(t *testing.T) {
	f := newFixture(t, "sweep_expire")
	ctx := context.Background()

	u := f.student(401, "6kilo")
	c1 := f.courier(420, "6kilo")
	c2 := f.courier(421, "FBE")
	o := f.order(u.ID)

	if _, err := f.svc.Assign(ctx, o.ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	sw := newTestSweeper(f)

	f.now = f.now.Add(4 * time.Minute)
	sw.Tick(ctx)

	got := f.reload(o.ID)
	if !got.HasRejected(c1.ID) {
		t.Fatalf("expired courier not blacklisted")
	}
	if got.CourierID == nil || *got.CourierID != c2.ID {
		t.Fatalf("order not re-offered after sweep expiry: %v", got.CourierID)
	}
	if !containsText(f.gateway.editedTexts(), "Offer Expired") {
		t.Fatalf("expired notice missing: %v", f.gateway.editedTexts())
	}

	// The replacement offer carries a fresh TTL.
	offer, ok := f.svc.Registry().Get(o.ID)
	if !ok || offer.CourierID != c2.ID || offer.Remaining(f.now) != 3*time.Minute {
		t.Fatalf("replacement offer = %+v, %v", offer, ok)
	}
}

func TestSweeperDropsDriftedOffer(t *testing.T) {
	f := newFixture(t, "sweep_drift")
	ctx := context.Background()

	u := f.student(402, "6kilo")
	c1 := f.courier(430, "6kilo")
	o := f.order(u.ID)

	if _, err := f.svc.Assign(ctx, o.ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	// The order moves on outside the service (e.g. admin intervention).
	if ok, _ := f.orders.AcceptAssignment(ctx, o.ID, c1.ID, models.OrderStatusPreparing); !ok {
		t.Fatalf("out-of-band accept failed")
	}

	sw := newTestSweeper(f)
	f.now = f.now.Add(time.Minute)
	sw.Tick(ctx)

	if _, ok := f.svc.Registry().Get(o.ID); ok {
		t.Fatalf("drifted offer not dropped")
	}
	if len(f.gateway.editedTexts()) != 0 {
		t.Fatalf("drifted offer was edited: %v", f.gateway.editedTexts())
	}
}

func TestSweeperUnreachableOnEdit(t *testing.T) {
	f := newFixture(t, "sweep_unreachable")
	ctx := context.Background()

	u := f.student(403, "6kilo")
	c1 := f.courier(440, "6kilo")
	c2 := f.courier(441, "FBE")
	o := f.order(u.ID)

	if _, err := f.svc.Assign(ctx, o.ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	f.gateway.editErr = notify.ErrUnreachable
	sw := newTestSweeper(f)
	f.now = f.now.Add(time.Minute)
	sw.Tick(ctx)
	f.gateway.editErr = nil

	got := f.reload(o.ID)
	if !got.HasRejected(c1.ID) {
		t.Fatalf("unreachable courier not blacklisted")
	}
	if got.CourierID == nil || *got.CourierID != c2.ID {
		t.Fatalf("order not moved to reachable courier: %v", got.CourierID)
	}
}
