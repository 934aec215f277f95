package chapa

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/config"
	pkgerrors "github.com/barekegnn/misrak-shemeta-backend/pkg/errors"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"

	// SignatureHeader is the HTTP header Chapa signs webhook deliveries with.
	SignatureHeader = "Chapa-Signature"

	responseBodyReadLimit int64 = 1 << 20
)

var (
	errSecretKeyRequired     = errors.New("chapa secret key is required")
	errWebhookSecretRequired = errors.New("chapa webhook secret is required in production")
	errInvalidChapaEnv       = fmt.Errorf("chapa environment must be %q or %q", sandboxEnv, productionEnv)
)

// Client wraps the Chapa REST API with bounded timeouts and error mapping.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	secretKey     string
	webhookSecret string
	environment   string
	currency      string
	callbackURL   string
	returnURL     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient validates the gateway credentials and builds the wrapper.
func NewClient(cfg config.ChapaConfig, opts ...Option) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}

	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" && env == productionEnv {
		return nil, errWebhookSecretRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		environment:   env,
		currency:      cfg.Currency,
		callbackURL:   cfg.CallbackURL,
		returnURL:     cfg.ReturnURL,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// Environment reports the normalized gateway environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// IsSandbox reports whether the client talks to the sandbox gateway.
func (c *Client) IsSandbox() bool {
	return c != nil && c.environment == sandboxEnv
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// InitiatePaymentInput describes a checkout session request. The buyer
// contact is synthesized from the platform identity since Telegram users do
// not carry a real email address.
type InitiatePaymentInput struct {
	TxRef     string
	Amount    decimal.Decimal
	FirstName string
	LastName  string
	Phone     string
}

type initializeRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	TxRef       string `json:"tx_ref"`
	CallbackURL string `json:"callback_url"`
	ReturnURL   string `json:"return_url,omitempty"`
}

type initializeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`
}

// InitiatePayment opens a hosted checkout session for the given reference
// and returns the URL the buyer is redirected to.
func (c *Client) InitiatePayment(ctx context.Context, input InitiatePaymentInput) (string, error) {
	if strings.TrimSpace(input.TxRef) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "transaction reference required")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	payload := initializeRequest{
		Amount:      input.Amount.StringFixed(2),
		Currency:    c.currency,
		Email:       syntheticEmail(input.TxRef),
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		PhoneNumber: input.Phone,
		TxRef:       input.TxRef,
		CallbackURL: c.callbackURL,
		ReturnURL:   c.returnURL,
	}

	var resp initializeResponse
	if err := c.post(ctx, "/transaction/initialize", payload, &resp); err != nil {
		return "", err
	}
	if !strings.EqualFold(resp.Status, "success") || resp.Data.CheckoutURL == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("chapa rejected initialization: %s", resp.Message))
	}
	return resp.Data.CheckoutURL, nil
}

type refundRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

type refundResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// InitiateRefund asks the gateway to return a captured payment. Failures are
// reported to the caller as errors, never panics; the settlement engine
// decides how to record them.
func (c *Client) InitiateRefund(ctx context.Context, txRef string, amount decimal.Decimal, reason string) error {
	if strings.TrimSpace(txRef) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction reference required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	payload := refundRequest{Amount: amount.StringFixed(2), Reason: reason}

	var resp refundResponse
	if err := c.post(ctx, "/refund/"+txRef, payload, &resp); err != nil {
		return err
	}
	if !strings.EqualFold(resp.Status, "success") {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("chapa rejected refund: %s", resp.Message))
	}
	return nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 hex signature Chapa computes
// over the raw request body.
func (c *Client) VerifyWebhookSignature(payload []byte, signature string) bool {
	if c == nil || c.webhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode chapa request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build chapa request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call chapa")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read chapa response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("chapa returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode chapa response")
		}
	}
	return nil
}

func syntheticEmail(txRef string) string {
	return fmt.Sprintf("%s@checkout.misrak-shemeta.et", txRef)
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	switch env {
	case sandboxEnv, productionEnv:
		return env, nil
	default:
		return "", errInvalidChapaEnv
	}
}
