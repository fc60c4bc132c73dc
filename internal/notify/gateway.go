package notify

import (
	"context"
	"errors"
	"time"

	"campusDeliveryBot/models"
)

// ErrUnreachable marks a permanent delivery failure: the chat no longer exists
// or the recipient blocked the bot. The dispatch service treats it as an
// implicit skip. Transient transport errors are returned as ordinary errors.
var ErrUnreachable = errors.New("recipient unreachable")

// MessageRef identifies a sent chat message so it can later be edited in place.
type MessageRef struct {
	ChatID    int64
	MessageID int64
}

// Gateway is the outbound messaging boundary. All delivery is best-effort;
// callers must never let a gateway failure abort a committed state transition.
type Gateway interface {
	// SendOffer delivers a new order offer with a live countdown to the
	// courier and returns a handle for subsequent countdown edits.
	SendOffer(ctx context.Context, courier *models.Courier, order *models.Order, ttl time.Duration) (MessageRef, error)

	// EditMessage rewrites a previously sent message in place. Returns
	// ErrUnreachable on permanent failures.
	EditMessage(ctx context.Context, ref MessageRef, text string) error

	// Notify sends a plain message to a chat. Fire-and-forget: errors are
	// returned for logging only.
	Notify(ctx context.Context, chatID int64, text string) error
}
