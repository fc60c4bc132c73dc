package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"campusDeliveryBot/models"
)

// BotClient is a Gateway over a Telegram-style bot HTTP API
// (POST {base}/bot{token}/{method} with a JSON body).
type BotClient struct {
	base   string
	token  string
	http   *http.Client
	logger *zap.SugaredLogger
}

// NewBotClient builds a BotClient. base is the API root, e.g.
// "https://api.telegram.org".
func NewBotClient(base, token string, log *zap.SugaredLogger) *BotClient {
	return &BotClient{
		base:   base,
		token:  token,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: log,
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
	Result      json.RawMessage `json:"result"`
}

func (c *BotClient) call(ctx context.Context, method string, payload any) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/bot%s/%s", c.base, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%s: bad response: %w", method, err)
	}
	if !out.OK {
		// 403 means the recipient blocked the bot; 400 "chat not found" is a
		// dead chat. Both are permanent for this recipient.
		if out.ErrorCode == http.StatusForbidden ||
			(out.ErrorCode == http.StatusBadRequest && out.Description == "Bad Request: chat not found") {
			return nil, fmt.Errorf("%s: %s: %w", method, out.Description, ErrUnreachable)
		}
		return nil, fmt.Errorf("%s: api error %d: %s", method, out.ErrorCode, out.Description)
	}
	return &out, nil
}

// SendOffer sends the initial offer message to the courier's chat.
func (c *BotClient) SendOffer(ctx context.Context, courier *models.Courier, order *models.Order, ttl time.Duration) (MessageRef, error) {
	text := RenderOffer(order, FormatCountdown(ttl), "⏳")
	resp, err := c.call(ctx, "sendMessage", map[string]any{
		"chat_id": courier.TelegramID,
		"text":    text,
	})
	if err != nil {
		return MessageRef{}, err
	}
	var msg struct {
		MessageID int64 `json:"message_id"`
	}
	if err := json.Unmarshal(resp.Result, &msg); err != nil {
		return MessageRef{}, fmt.Errorf("sendMessage: bad result: %w", err)
	}
	return MessageRef{ChatID: courier.TelegramID, MessageID: msg.MessageID}, nil
}

// EditMessage rewrites a previously sent message in place.
func (c *BotClient) EditMessage(ctx context.Context, ref MessageRef, text string) error {
	_, err := c.call(ctx, "editMessageText", map[string]any{
		"chat_id":    ref.ChatID,
		"message_id": ref.MessageID,
		"text":       text,
	})
	return err
}

// Notify sends a plain message to a chat.
func (c *BotClient) Notify(ctx context.Context, chatID int64, text string) error {
	_, err := c.call(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	})
	return err
}
