package repository

import (
	"context"
	"testing"

	"campusDeliveryBot/models"
)

func TestUserCreateAndLookup(t *testing.T) {
	_, _, users := newTestStore(t, "user_create")
	ctx := context.Background()

	u, err := users.Create(ctx, &models.User{
		TelegramID: 9001, Name: "Hanna", Campus: "FBE", Gender: "F",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == 0 {
		t.Fatalf("created user has no id")
	}

	byID, err := users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID == nil || byID.Name != "Hanna" || byID.Campus != "FBE" {
		t.Fatalf("GetByID = %+v", byID)
	}

	byTG, err := users.GetByTelegramID(ctx, 9001)
	if err != nil {
		t.Fatalf("GetByTelegramID: %v", err)
	}
	if byTG == nil || byTG.ID != u.ID {
		t.Fatalf("GetByTelegramID = %+v", byTG)
	}

	missing, err := users.GetByTelegramID(ctx, 404)
	if err != nil {
		t.Fatalf("GetByTelegramID missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("lookup of unknown telegram id returned %+v", missing)
	}
}

func TestUserDuplicateTelegramID(t *testing.T) {
	_, _, users := newTestStore(t, "user_dup")
	ctx := context.Background()

	if _, err := users.Create(ctx, &models.User{TelegramID: 9002, Name: "a", Campus: "6kilo"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := users.Create(ctx, &models.User{TelegramID: 9002, Name: "b", Campus: "6kilo"}); err == nil {
		t.Fatalf("duplicate telegram id accepted")
	}
}

func TestUserList(t *testing.T) {
	_, _, users := newTestStore(t, "user_list")
	ctx := context.Background()

	for i := int64(0); i < 3; i++ {
		if _, err := users.Create(ctx, &models.User{TelegramID: 9100 + i, Name: "u", Campus: "4kilo"}); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}
	got, err := users.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List page size = %d, want 2", len(got))
	}
	rest, err := users.List(ctx, 10, 2)
	if err != nil {
		t.Fatalf("List offset: %v", err)
	}
	if len(rest) != 1 {
		t.Fatalf("List offset = %d rows, want 1", len(rest))
	}
}
