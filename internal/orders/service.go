package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/db/models"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
	pkgerrors "github.com/barekegnn/misrak-shemeta-backend/pkg/errors"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/metrics"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/outbox"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ShopCreditor releases escrowed funds into a shop balance, writing the
// ledger row in the same transaction.
type ShopCreditor interface {
	CreditForOrder(ctx context.Context, tx *gorm.DB, shopID, orderID uuid.UUID, amount decimal.Decimal) (*models.ShopTransaction, error)
}

// StockRestorer returns reserved units to the catalog when an order dies.
type StockRestorer interface {
	Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

// RefundInitiator asks the payment gateway to return captured funds.
type RefundInitiator interface {
	InitiateRefund(ctx context.Context, txRef string, amount decimal.Decimal, reason string) error
}

// Service drives the escrow lifecycle. Every operation reads the order
// status fresh inside its transaction and appends exactly one status
// history row per applied transition.
type Service interface {
	ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*TransitionResult, error)
	FailPayment(ctx context.Context, input FailPaymentInput) (*TransitionResult, error)
	Dispatch(ctx context.Context, input DispatchInput) (*TransitionResult, error)
	MarkArrived(ctx context.Context, input MarkArrivedInput) (*TransitionResult, error)
	Complete(ctx context.Context, input CompleteInput) (*TransitionResult, error)
	Cancel(ctx context.Context, input CancelInput) (*TransitionResult, error)
}

// ServiceParams collects the collaborators of the settlement engine.
type ServiceParams struct {
	Repo           Repository
	Tx             txRunner
	Outbox         outboxPublisher
	Shops          ShopCreditor
	Products       StockRestorer
	Refunds        RefundInitiator
	Metrics        *metrics.OrderMetrics
	OTPMaxAttempts int
}

type service struct {
	repo           Repository
	tx             txRunner
	outbox         outboxPublisher
	shops          ShopCreditor
	products       StockRestorer
	refunds        RefundInitiator
	metrics        *metrics.OrderMetrics
	otpMaxAttempts int
}

const defaultOTPMaxAttempts = 3

// NewService builds the settlement engine with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Shops == nil {
		return nil, fmt.Errorf("shop creditor required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("stock restorer required")
	}
	if params.Refunds == nil {
		return nil, fmt.Errorf("refund initiator required")
	}
	maxAttempts := params.OTPMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultOTPMaxAttempts
	}
	return &service{
		repo:           params.Repo,
		tx:             params.Tx,
		outbox:         params.Outbox,
		shops:          params.Shops,
		products:       params.Products,
		refunds:        params.Refunds,
		metrics:        params.Metrics,
		otpMaxAttempts: maxAttempts,
	}, nil
}

func (s *service) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*TransitionResult, error) {
	if input.TxRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference required")
	}

	var result *TransitionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrderByTxRef(ctx, repo, input.TxRef)
		if err != nil {
			return err
		}

		if order.Status == enums.OrderStatusPaidEscrow {
			result = unchanged(order)
			return nil
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment confirmation not allowed in current status")
		}

		if err := s.applyTransition(ctx, repo, order, enums.OrderStatusPaidEscrow, enums.ActorRoleSystemWebhook, nil, map[string]any{
			"chapa_tx_ref": input.TxRef,
		}); err != nil {
			return err
		}

		result = changed(order, enums.OrderStatusPaidEscrow)
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         systemActor(),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				BuyerUserID: order.BuyerID,
				FromStatus:  enums.OrderStatusPending,
				ToStatus:    enums.OrderStatusPaidEscrow,
				Actor:       enums.ActorRoleSystemWebhook,
				ChangedAt:   time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.observe(result)
	return result, nil
}

func (s *service) FailPayment(ctx context.Context, input FailPaymentInput) (*TransitionResult, error) {
	if input.TxRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference required")
	}

	var result *TransitionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrderByTxRef(ctx, repo, input.TxRef)
		if err != nil {
			return err
		}

		// A failure callback can race a success callback or arrive as a
		// retry after the order moved on. Only a PENDING order is
		// cancelled; every other status acknowledges without touching it.
		if order.Status != enums.OrderStatusPending {
			result = unchanged(order)
			return nil
		}

		if err := s.restoreStock(ctx, tx, order.Items); err != nil {
			return err
		}

		reason := input.Reason
		if reason == "" {
			reason = "payment failed"
		}
		if err := s.applyTransition(ctx, repo, order, enums.OrderStatusCancelled, enums.ActorRoleSystemWebhook, nil, map[string]any{
			"cancellation_reason": reason,
		}); err != nil {
			return err
		}

		result = changed(order, enums.OrderStatusCancelled)
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         systemActor(),
			Data: payloads.PaymentFailedEvent{
				OrderID:     order.ID,
				BuyerUserID: order.BuyerID,
				TxRef:       input.TxRef,
				Reason:      reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.observe(result)
	return result, nil
}

func (s *service) Dispatch(ctx context.Context, input DispatchInput) (*TransitionResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorShopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}

	var result *TransitionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}

		for _, item := range order.Items {
			if item.ShopID != input.ActorShopID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "order contains items from another shop")
			}
		}

		if order.Status == enums.OrderStatusDispatched {
			result = unchanged(order)
			return nil
		}
		if order.Status != enums.OrderStatusPaidEscrow {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not ready for dispatch")
		}

		actorID := input.ActorUserID
		if err := s.applyTransition(ctx, repo, order, enums.OrderStatusDispatched, enums.ActorRoleShop, &actorID, nil); err != nil {
			return err
		}

		result = changed(order, enums.OrderStatusDispatched)
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDispatched,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         shopActor(input.ActorUserID, input.ActorShopID),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				BuyerUserID: order.BuyerID,
				FromStatus:  enums.OrderStatusPaidEscrow,
				ToStatus:    enums.OrderStatusDispatched,
				Actor:       enums.ActorRoleShop,
				ChangedAt:   time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.observe(result)
	return result, nil
}

func (s *service) MarkArrived(ctx context.Context, input MarkArrivedInput) (*TransitionResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var result *TransitionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}

		if order.Status == enums.OrderStatusArrived {
			result = unchanged(order)
			return nil
		}
		if order.Status != enums.OrderStatusDispatched {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not in transit")
		}

		actorID := input.ActorUserID
		if err := s.applyTransition(ctx, repo, order, enums.OrderStatusArrived, enums.ActorRoleRunner, &actorID, nil); err != nil {
			return err
		}

		result = changed(order, enums.OrderStatusArrived)
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderArrived,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         runnerActor(input.ActorUserID),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:      order.ID,
				BuyerUserID:  order.BuyerID,
				FromStatus:   enums.OrderStatusDispatched,
				ToStatus:     enums.OrderStatusArrived,
				Actor:        enums.ActorRoleRunner,
				DeliveryCode: order.OTPCode,
				ChangedAt:    time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.observe(result)
	return result, nil
}

func (s *service) Complete(ctx context.Context, input CompleteInput) (*TransitionResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !ValidOTPFormat(input.OTP) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery code must be six digits")
	}

	// A wrong code must persist its attempt increment even though the
	// operation fails, so the rejection is carried out of the transaction
	// instead of rolling it back.
	var result *TransitionResult
	var rejection error
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}

		if order.Status == enums.OrderStatusCompleted {
			result = unchanged(order)
			return nil
		}
		if order.Status != enums.OrderStatusArrived {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has not arrived yet")
		}

		if order.OTPAttempts >= s.otpMaxAttempts {
			return pkgerrors.New(pkgerrors.CodeOTPLocked, "delivery code attempts exhausted")
		}

		if order.OTPCode != input.OTP {
			// The row is locked, so the counter read is current; the
			// increment is still expressed in SQL so it can never clobber.
			attempts := order.OTPAttempts + 1
			if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"otp_attempts": gorm.Expr("otp_attempts + 1")}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record delivery code attempt")
			}
			if attempts >= s.otpMaxAttempts {
				rejection = pkgerrors.New(pkgerrors.CodeOTPLocked, "delivery code attempts exhausted")
			} else {
				rejection = pkgerrors.New(pkgerrors.CodeValidation, "delivery code mismatch")
			}
			return nil
		}

		actorID := input.ActorUserID
		if err := s.applyTransition(ctx, repo, order, enums.OrderStatusCompleted, enums.ActorRoleRunner, &actorID, nil); err != nil {
			return err
		}

		if err := s.creditShops(ctx, tx, order); err != nil {
			return err
		}

		result = changed(order, enums.OrderStatusCompleted)
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         runnerActor(input.ActorUserID),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				BuyerUserID: order.BuyerID,
				FromStatus:  enums.OrderStatusArrived,
				ToStatus:    enums.OrderStatusCompleted,
				Actor:       enums.ActorRoleRunner,
				ChangedAt:   time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if rejection != nil {
		s.metrics.IncOTPRejection()
		return nil, rejection
	}
	s.observe(result)
	return result, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*TransitionResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var result *TransitionResult
	var refund *refundRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}

		if input.ActorRole != enums.ActorRoleAdmin && order.BuyerID != input.ActorUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}

		if order.Status == enums.OrderStatusCancelled {
			result = unchanged(order)
			return nil
		}
		if !CanCancel(order.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled")
		}

		if err := s.restoreStock(ctx, tx, order.Items); err != nil {
			return err
		}

		updates := map[string]any{}
		if input.Reason != "" {
			updates["cancellation_reason"] = input.Reason
		}
		from := order.Status
		actorID := input.ActorUserID
		if err := s.applyTransition(ctx, repo, order, enums.OrderStatusCancelled, input.ActorRole, &actorID, updates); err != nil {
			return err
		}

		if RequiresRefund(from) && order.ChapaTxRef != nil {
			refund = &refundRequest{
				orderID: order.ID,
				buyerID: order.BuyerID,
				txRef:   *order.ChapaTxRef,
				amount:  order.GrandTotal(),
				reason:  input.Reason,
			}
		}

		result = &TransitionResult{
			OrderID:        order.ID,
			PreviousStatus: from,
			NewStatus:      enums.OrderStatusCancelled,
			StatusChanged:  true,
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         userActor(input.ActorUserID, input.ActorRole),
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				BuyerUserID: order.BuyerID,
				FromStatus:  from,
				Reason:      input.Reason,
				CancelledAt: time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.observe(result)

	// The cancellation stands even when the refund call fails; the failure
	// is recorded for manual review.
	if refund != nil {
		s.initiateRefund(ctx, *refund)
	}
	return result, nil
}

type refundRequest struct {
	orderID uuid.UUID
	buyerID uuid.UUID
	txRef   string
	amount  decimal.Decimal
	reason  string
}

func (s *service) initiateRefund(ctx context.Context, req refundRequest) {
	refundErr := s.refunds.InitiateRefund(ctx, req.txRef, req.amount, req.reason)

	_ = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if refundErr != nil {
			if err := repo.UpdateOrder(ctx, req.orderID, map[string]any{
				"refund_failed": true,
				"refund_error":  refundErr.Error(),
			}); err != nil {
				return err
			}
			s.metrics.IncRefundFailure()
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventRefundFailed,
				AggregateType: enums.AggregateOrder,
				AggregateID:   req.orderID,
				Version:       1,
				Data: payloads.RefundFailedEvent{
					OrderID: req.orderID,
					TxRef:   req.txRef,
					Error:   refundErr.Error(),
				},
			})
		}

		if err := repo.UpdateOrder(ctx, req.orderID, map[string]any{
			"refund_initiated":    true,
			"refund_amount":       req.amount,
			"refund_initiated_at": time.Now().UTC(),
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRefundInitiated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   req.orderID,
			Version:       1,
			Data: payloads.RefundInitiatedEvent{
				OrderID:     req.orderID,
				BuyerUserID: req.buyerID,
				TxRef:       req.txRef,
				Amount:      req.amount,
			},
		})
	})
}

func (s *service) creditShops(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	totals := map[uuid.UUID]decimal.Decimal{}
	for _, item := range order.Items {
		totals[item.ShopID] = totals[item.ShopID].Add(item.Subtotal())
	}
	for shopID, amount := range totals {
		txn, err := s.shops.CreditForOrder(ctx, tx, shopID, order.ID, amount)
		if err != nil {
			return err
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventShopCredited,
			AggregateType: enums.AggregateShopTransaction,
			AggregateID:   txn.ID,
			Version:       1,
			Data: payloads.ShopCreditedEvent{
				ShopID:        shopID,
				OrderID:       order.ID,
				Amount:        amount,
				BalanceAfter:  txn.BalanceAfter,
				TransactionID: txn.ID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) restoreStock(ctx context.Context, tx *gorm.DB, items []models.OrderItem) error {
	for _, item := range items {
		if err := s.products.Restore(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) applyTransition(ctx context.Context, repo Repository, order *models.Order, to enums.OrderStatus, actor enums.ActorRole, actorID *uuid.UUID, extra map[string]any) error {
	if !IsValidTransition(order.Status, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "transition not allowed")
	}

	applied, err := repo.UpdateOrderStatus(ctx, order.ID, order.Status, to, extra)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !applied {
		// A concurrent transition moved the order between our read and this
		// write; the caller's view is stale.
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order was modified concurrently")
	}

	event := &models.OrderStatusEvent{
		OrderID:    order.ID,
		FromStatus: order.Status,
		ToStatus:   to,
		Actor:      actor,
		ActorID:    actorID,
	}
	if err := repo.AppendStatusEvent(ctx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
	}
	return nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrderForUpdate(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) loadOrderByTxRef(ctx context.Context, repo Repository, txRef string) (*models.Order, error) {
	order, err := repo.FindOrderByTxRefForUpdate(ctx, txRef)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found for transaction reference")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by tx ref")
	}
	return order, nil
}

func (s *service) observe(result *TransitionResult) {
	if result == nil || !result.StatusChanged {
		return
	}
	s.metrics.ObserveTransition(string(result.PreviousStatus), string(result.NewStatus))
}

func unchanged(order *models.Order) *TransitionResult {
	return &TransitionResult{
		OrderID:        order.ID,
		PreviousStatus: order.Status,
		NewStatus:      order.Status,
		StatusChanged:  false,
	}
}

func changed(order *models.Order, to enums.OrderStatus) *TransitionResult {
	return &TransitionResult{
		OrderID:        order.ID,
		PreviousStatus: order.Status,
		NewStatus:      to,
		StatusChanged:  true,
	}
}

func systemActor() *outbox.ActorRef {
	return &outbox.ActorRef{Role: string(enums.ActorRoleSystemWebhook)}
}

func shopActor(userID, shopID uuid.UUID) *outbox.ActorRef {
	shop := shopID
	return &outbox.ActorRef{UserID: userID, ShopID: &shop, Role: string(enums.ActorRoleShop)}
}

func runnerActor(userID uuid.UUID) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: userID, Role: string(enums.ActorRoleRunner)}
}

func userActor(userID uuid.UUID, role enums.ActorRole) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: userID, Role: string(role)}
}
