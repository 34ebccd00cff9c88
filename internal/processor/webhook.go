package processor

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Event types the processor reports asynchronously.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventTransferReversed = "transfer.reversed"
	EventPayoutPaid       = "payout.paid"
	EventPayoutFailed     = "payout.failed"
)

// Event is a verified webhook delivery. ID is unique per event and is the
// idempotency key for replayed deliveries.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

type EventData struct {
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	TransferID      string `json:"transfer_id,omitempty"`
	PayoutID        string `json:"payout_id,omitempty"`
}

// ConstructWebhookEvent verifies the HMAC-SHA256 payload signature against
// the webhook secret and parses the event. Nothing downstream runs on an
// unverified payload.
func (c *Client) ConstructWebhookEvent(payload []byte, signature string) (Event, error) {
	if !verifyHMAC(payload, signature, c.webhookSecret) {
		return Event{}, ErrInvalidSignature
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return Event{}, fmt.Errorf("processor: can't parse webhook payload: %w", err)
	}
	if event.ID == "" || event.Type == "" {
		return Event{}, fmt.Errorf("processor: webhook payload missing id or type")
	}
	return event, nil
}

func verifyHMAC(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	sigBytes, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, sigBytes)
}
