package chapawebhook

import (
	"context"
	"fmt"
	"time"

	"github.com/barekegnn/misrak-shemeta-backend/internal/orders"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/chapa"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/db/models"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
	pkgerrors "github.com/barekegnn/misrak-shemeta-backend/pkg/errors"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/logger"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/metrics"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/types"
)

const providerName = "chapa"

type settlementEngine interface {
	ConfirmPayment(ctx context.Context, input orders.ConfirmPaymentInput) (*orders.TransitionResult, error)
	FailPayment(ctx context.Context, input orders.FailPaymentInput) (*orders.TransitionResult, error)
}

type signatureVerifier interface {
	VerifyWebhookSignature(payload []byte, signature string) bool
	IsSandbox() bool
}

type deliveryGuard interface {
	CheckAndMark(ctx context.Context, deliveryID string) (bool, error)
	Release(ctx context.Context, deliveryID string) error
}

// Service is the protocol boundary between the payment gateway and the
// settlement engine. Everything past signature verification and payload
// parsing answers with a success-shaped ack, HTTP 200, regardless of the
// processing outcome; the gateway must never be provoked into a retry
// storm by our internal errors.
type Service struct {
	repo     Repository
	engine   settlementEngine
	verifier signatureVerifier
	guard    deliveryGuard
	metrics  *metrics.OrderMetrics
	logg     *logger.Logger
}

type ServiceParams struct {
	Repo     Repository
	Engine   settlementEngine
	Verifier signatureVerifier
	Guard    deliveryGuard
	Metrics  *metrics.OrderMetrics
	Logger   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("webhook repository required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("settlement engine required")
	}
	if params.Verifier == nil {
		return nil, fmt.Errorf("signature verifier required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("delivery guard required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		repo:     params.Repo,
		engine:   params.Engine,
		verifier: params.Verifier,
		guard:    params.Guard,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// VerifyAndParse authenticates and decodes the raw delivery. Failures here
// are the only ones surfaced to the gateway as non-200 responses.
func (s *Service) VerifyAndParse(payload []byte, signature string) (*chapa.WebhookEvent, error) {
	if !s.verifier.IsSandbox() && !s.verifier.VerifyWebhookSignature(payload, signature) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature mismatch")
	}
	return chapa.ParseWebhookEvent(payload)
}

// Process runs a parsed delivery through audit, dedup, and the settlement
// engine. It always returns an ack; errors stay in the audit row.
func (s *Service) Process(ctx context.Context, event *chapa.WebhookEvent, raw []byte) *types.WebhookAck {
	started := time.Now()
	ctx = s.logg.WithFields(ctx, map[string]any{
		"provider": providerName,
		"event":    event.Event,
		"tx_ref":   event.Data.TxRef,
	})

	audit, err := s.repo.Insert(ctx, &models.WebhookEvent{
		Provider:  providerName,
		EventType: event.Event,
		TxRef:     event.Data.TxRef,
		Payload:   raw,
		Result:    enums.WebhookResultReceived,
	})
	if err != nil {
		// A lost audit row must not block settlement.
		s.logg.Error(ctx, "webhook audit insert failed", err)
		audit = nil
	}

	deliveryID := deliveryIDOf(event)
	seen, err := s.guard.CheckAndMark(ctx, deliveryID)
	if err != nil {
		s.logg.Warn(ctx, "webhook dedup check unavailable, proceeding")
		seen = false
	}
	if seen {
		s.finish(ctx, audit, event, enums.WebhookResultSkipped, nil, started)
		return &types.WebhookAck{Success: true, Message: "duplicate delivery"}
	}

	result, err := s.dispatch(ctx, event)
	if err != nil {
		if retryable(err) {
			if relErr := s.guard.Release(ctx, deliveryID); relErr != nil {
				s.logg.Warn(ctx, "webhook dedup release failed")
			}
		}
		s.finish(ctx, audit, event, enums.WebhookResultFailed, err, started)
		return &types.WebhookAck{Success: false, Message: ackMessage(err)}
	}

	s.finish(ctx, audit, event, enums.WebhookResultProcessed, nil, started)
	ack := &types.WebhookAck{
		Success:        true,
		Message:        "processed",
		PreviousStatus: string(result.PreviousStatus),
		NewStatus:      string(result.NewStatus),
	}
	if !result.StatusChanged {
		ack.Message = "already processed"
	}
	return ack
}

func (s *Service) dispatch(ctx context.Context, event *chapa.WebhookEvent) (*orders.TransitionResult, error) {
	switch event.Event {
	case chapa.EventChargeSuccess:
		return s.engine.ConfirmPayment(ctx, orders.ConfirmPaymentInput{TxRef: event.Data.TxRef})
	case chapa.EventChargeFailed:
		return s.engine.FailPayment(ctx, orders.FailPaymentInput{
			TxRef:  event.Data.TxRef,
			Reason: "payment failed at gateway",
		})
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported webhook event type")
	}
}

func (s *Service) finish(ctx context.Context, audit *models.WebhookEvent, event *chapa.WebhookEvent, result enums.WebhookResult, procErr error, started time.Time) {
	elapsed := time.Since(started)
	if s.metrics != nil {
		s.metrics.ObserveWebhook(event.Event, string(result), elapsed)
	}
	if procErr != nil {
		s.logg.Error(s.logg.WithField(ctx, "processing_ms", elapsed.Milliseconds()), "webhook processing failed", procErr)
	}
	if audit == nil {
		return
	}
	var errMsg *string
	if procErr != nil {
		msg := procErr.Error()
		errMsg = &msg
	}
	if err := s.repo.MarkResult(ctx, audit.ID, result, errMsg, elapsed.Milliseconds()); err != nil {
		s.logg.Error(ctx, "webhook audit update failed", err)
	}
}

// ackMessage surfaces the coded message to the gateway without leaking
// wrapped internals.
func ackMessage(err error) string {
	if coded := pkgerrors.As(err); coded != nil {
		return coded.Message()
	}
	return "processing failed"
}

// deliveryIDOf picks the dedup key for a delivery. Chapa does not send a
// dedicated event id, so the gateway reference is used when present and the
// event/tx-ref pair otherwise.
func deliveryIDOf(event *chapa.WebhookEvent) string {
	if event.Data.Reference != "" {
		return event.Event + ":" + event.Data.Reference
	}
	return event.Event + ":" + event.Data.TxRef
}

// retryable reports whether the gateway's next retry could succeed, in
// which case the dedup mark must not swallow it.
func retryable(err error) bool {
	coded := pkgerrors.As(err)
	if coded == nil {
		return true
	}
	switch coded.Code() {
	case pkgerrors.CodeDependency, pkgerrors.CodeInternal:
		return true
	default:
		return false
	}
}
