package chapa

import (
	"encoding/json"
	"strings"

	pkgerrors "github.com/barekegnn/misrak-shemeta-backend/pkg/errors"
)

// Webhook event types the gateway delivers.
const (
	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

// WebhookEvent is the inbound payment event envelope.
type WebhookEvent struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

// WebhookData carries the transaction detail. TxRef is the platform order id
// passed through payment initialization.
type WebhookData struct {
	TxRef     string `json:"tx_ref"`
	Status    string `json:"status"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
	CreatedAt string `json:"created_at"`
}

// ParseWebhookEvent decodes and strictly validates a webhook payload.
// Missing event type, data object, or transaction reference is a parse
// error, never a silently defaulted field.
func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	if len(payload) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "empty webhook payload")
	}

	var raw struct {
		Event *string          `json:"event"`
		Data  *json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}
	if raw.Event == nil || strings.TrimSpace(*raw.Event) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event type missing")
	}
	if raw.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook data object missing")
	}

	event := &WebhookEvent{Event: strings.TrimSpace(*raw.Event)}
	if err := json.Unmarshal(*raw.Data, &event.Data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook data")
	}
	if strings.TrimSpace(event.Data.TxRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook transaction reference missing")
	}

	switch event.Event {
	case EventChargeSuccess, EventChargeFailed:
		return event, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported webhook event type").
			WithDetails(map[string]any{"event": event.Event})
	}
}
