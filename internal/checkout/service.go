package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/barekegnn/misrak-shemeta-backend/internal/orders"
	"github.com/barekegnn/misrak-shemeta-backend/internal/products"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/chapa"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/config"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/db/models"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
	pkgerrors "github.com/barekegnn/misrak-shemeta-backend/pkg/errors"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/outbox"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/outbox/payloads"
)

const maxItemsPerOrder = 50

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockReserver interface {
	Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

type shopFinder interface {
	FindShop(ctx context.Context, shopID uuid.UUID) (*models.Shop, error)
}

type buyerFinder interface {
	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

type paymentStarter interface {
	InitiatePayment(ctx context.Context, input chapa.InitiatePaymentInput) (string, error)
}

type paymentFailer interface {
	FailPayment(ctx context.Context, input orders.FailPaymentInput) (*orders.TransitionResult, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service creates PENDING orders and hands the buyer off to the hosted
// gateway checkout.
type Service interface {
	Execute(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
}

// ServiceParams bundles the checkout dependencies.
type ServiceParams struct {
	Tx       txRunner
	Orders   orders.Repository
	Products products.Repository
	Stock    stockReserver
	Shops    shopFinder
	Users    buyerFinder
	Payments paymentStarter
	Failer   paymentFailer
	Outbox   outboxPublisher
	Delivery config.DeliveryConfig
}

type service struct {
	tx           txRunner
	orders       orders.Repository
	products     products.Repository
	stock        stockReserver
	shops        shopFinder
	users        buyerFinder
	payments     paymentStarter
	failer       paymentFailer
	outbox       outboxPublisher
	feeSameCity  decimal.Decimal
	feeCrossCity decimal.Decimal
}

// NewService builds the checkout service and parses the configured delivery
// fees up front so a bad value fails at boot, not mid-request.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product finder required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock reserver required")
	}
	if params.Shops == nil {
		return nil, fmt.Errorf("shop finder required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("buyer finder required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment starter required")
	}
	if params.Failer == nil {
		return nil, fmt.Errorf("payment failer required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	sameCity, err := decimal.NewFromString(params.Delivery.FeeSameCity)
	if err != nil {
		return nil, fmt.Errorf("parse same-city delivery fee: %w", err)
	}
	crossCity, err := decimal.NewFromString(params.Delivery.FeeCrossCity)
	if err != nil {
		return nil, fmt.Errorf("parse cross-city delivery fee: %w", err)
	}
	return &service{
		tx:           params.Tx,
		orders:       params.Orders,
		products:     params.Products,
		stock:        params.Stock,
		shops:        params.Shops,
		users:        params.Users,
		payments:     params.Payments,
		failer:       params.Failer,
		outbox:       params.Outbox,
		feeSameCity:  sameCity,
		feeCrossCity: crossCity,
	}, nil
}

// Execute persists the order and reserves stock in one transaction, then
// opens the Chapa checkout session. If the gateway rejects the session the
// freshly created order is failed through the settlement engine so the
// reserved stock goes back on the shelf.
func (s *service) Execute(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if input.BuyerUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer user id required")
	}
	lines, err := normalizeItems(input.Items)
	if err != nil {
		return nil, err
	}

	buyer, err := s.users.FindUser(ctx, input.BuyerUserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "buyer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyer")
	}

	txRef := newTxRef()
	otp, err := orders.GenerateOTP()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate delivery code")
	}

	var result *CheckoutResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)

		catalog, err := s.loadCatalog(ctx, tx, lines)
		if err != nil {
			return err
		}

		total := decimal.Zero
		shopCache := map[uuid.UUID]*models.Shop{}
		items := make([]models.OrderItem, 0, len(lines))
		crossCity := false
		for _, line := range lines {
			product := catalog[line.ProductID]
			if err := s.stock.Reserve(ctx, tx, product.ID, line.Quantity); err != nil {
				return err
			}
			shop, err := s.loadShop(ctx, product.ShopID, shopCache)
			if err != nil {
				return err
			}
			if shop.City != buyer.City {
				crossCity = true
			}
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
			items = append(items, models.OrderItem{
				ProductID:       product.ID,
				ShopID:          shop.ID,
				ProductName:     product.Name,
				Quantity:        line.Quantity,
				PriceAtPurchase: product.Price,
				ShopCity:        shop.City,
			})
		}

		fee := s.feeSameCity
		if crossCity {
			fee = s.feeCrossCity
		}

		order, err := ordersRepo.CreateOrder(ctx, &models.Order{
			BuyerID:     buyer.ID,
			Status:      enums.OrderStatusPending,
			TotalAmount: total,
			DeliveryFee: fee,
			OTPCode:     otp,
			ChapaTxRef:  &txRef,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := ordersRepo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}

		result = &CheckoutResult{
			OrderID:     order.ID,
			Status:      enums.OrderStatusPending,
			TxRef:       txRef,
			TotalAmount: total,
			DeliveryFee: fee,
			GrandTotal:  total.Add(fee),
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buyerActor(buyer.ID),
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				BuyerUserID: buyer.ID,
				TotalAmount: total,
				DeliveryFee: fee,
				ItemCount:   len(items),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	checkoutURL, err := s.payments.InitiatePayment(ctx, chapa.InitiatePaymentInput{
		TxRef:     txRef,
		Amount:    result.GrandTotal,
		FirstName: firstName(buyer.Name),
		LastName:  lastName(buyer.Name),
		Phone:     phoneOf(buyer),
	})
	if err != nil {
		// The order is already committed; push it through the normal
		// payment-failure path so stock is restored and the status
		// history records why.
		if _, failErr := s.failer.FailPayment(ctx, orders.FailPaymentInput{
			TxRef:  txRef,
			Reason: "payment initiation failed",
		}); failErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, failErr, "cancel order after gateway rejection")
		}
		return nil, err
	}

	result.CheckoutURL = checkoutURL
	return result, nil
}

func (s *service) loadCatalog(ctx context.Context, tx *gorm.DB, lines []ItemInput) (map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, len(lines))
	for i, line := range lines {
		ids[i] = line.ProductID
	}
	found, err := s.products.WithTx(tx).FindProducts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	catalog := make(map[uuid.UUID]models.Product, len(found))
	for _, product := range found {
		catalog[product.ID] = product
	}
	for _, id := range ids {
		if _, ok := catalog[id]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", id))
		}
	}
	return catalog, nil
}

func (s *service) loadShop(ctx context.Context, shopID uuid.UUID, cache map[uuid.UUID]*models.Shop) (*models.Shop, error) {
	if shop, ok := cache[shopID]; ok {
		return shop, nil
	}
	shop, err := s.shops.FindShop(ctx, shopID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}
	cache[shopID] = shop
	return shop, nil
}

// normalizeItems merges duplicate product lines and validates quantities.
func normalizeItems(items []ItemInput) ([]ItemInput, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order contains no items")
	}
	if len(items) > maxItemsPerOrder {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many items in order")
	}
	merged := make([]ItemInput, 0, len(items))
	index := map[uuid.UUID]int{}
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if at, ok := index[item.ProductID]; ok {
			merged[at].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

func newTxRef() string {
	return fmt.Sprintf("msk-%d-%s", time.Now().UTC().Unix(), uuid.NewString()[:8])
}

func buyerActor(userID uuid.UUID) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: userID, Role: string(enums.ActorRoleBuyer)}
}

func firstName(full string) string {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

func lastName(full string) string {
	parts := strings.Fields(full)
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[1:], " ")
}

func phoneOf(user *models.User) string {
	if user.Phone == nil {
		return ""
	}
	return *user.Phone
}
