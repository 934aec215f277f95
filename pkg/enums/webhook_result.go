package enums

import "fmt"

// WebhookResult records the outcome of processing an inbound gateway event.
type WebhookResult string

const (
	WebhookResultReceived  WebhookResult = "received"
	WebhookResultProcessed WebhookResult = "processed"
	WebhookResultSkipped   WebhookResult = "skipped"
	WebhookResultFailed    WebhookResult = "failed"
)

var validWebhookResults = []WebhookResult{
	WebhookResultReceived,
	WebhookResultProcessed,
	WebhookResultSkipped,
	WebhookResultFailed,
}

// IsValid reports whether the value is a known WebhookResult.
func (r WebhookResult) IsValid() bool {
	for _, candidate := range validWebhookResults {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseWebhookResult converts raw input into a WebhookResult.
func ParseWebhookResult(value string) (WebhookResult, error) {
	for _, candidate := range validWebhookResults {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid webhook result %q", value)
}
