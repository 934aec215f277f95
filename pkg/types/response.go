package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// WebhookAck is the response body returned to the payment gateway. The
// endpoint answers 200 with this shape even when processing failed, so the
// gateway never retries on our internal errors.
type WebhookAck struct {
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	PreviousStatus string `json:"previousStatus,omitempty"`
	NewStatus      string `json:"newStatus,omitempty"`
}
