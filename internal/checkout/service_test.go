package checkout

import (
	"context"
	"testing"

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
	"github.com/barekegnn/misrak-shemeta-backend/pkg/pagination"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOrdersRepo struct {
	created *models.Order
	items   []models.OrderItem
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	order.ID = uuid.New()
	s.created = order
	return order, nil
}

func (s *stubOrdersRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	s.items = append(s.items, items...)
	return nil
}

func (s *stubOrdersRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) FindOrderByTxRef(ctx context.Context, txRef string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) FindOrderByTxRefForUpdate(ctx context.Context, txRef string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubOrdersRepo) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, extra map[string]any) (bool, error) {
	return true, nil
}

func (s *stubOrdersRepo) AppendStatusEvent(ctx context.Context, event *models.OrderStatusEvent) error {
	return nil
}

func (s *stubOrdersRepo) FindStatusEvents(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusEvent, error) {
	return nil, nil
}

func (s *stubOrdersRepo) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*orders.OrderList, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) ListShopOrders(ctx context.Context, shopID uuid.UUID, params pagination.Params) (*orders.OrderList, error) {
	panic("not implemented")
}

type stubProductsRepo struct {
	catalog map[uuid.UUID]models.Product
}

func (s *stubProductsRepo) WithTx(tx *gorm.DB) products.Repository { return s }

func (s *stubProductsRepo) FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if product, ok := s.catalog[id]; ok {
			out = append(out, product)
		}
	}
	return out, nil
}

func (s *stubProductsRepo) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	return true, nil
}

func (s *stubProductsRepo) IncrementStock(ctx context.Context, productID uuid.UUID, qty int) error {
	return nil
}

type reservedLine struct {
	productID uuid.UUID
	qty       int
}

type stubReserver struct {
	reserved []reservedLine
	failOn   uuid.UUID
}

func (s *stubReserver) Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if s.failOn != uuid.Nil && s.failOn == productID {
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock")
	}
	s.reserved = append(s.reserved, reservedLine{productID: productID, qty: qty})
	return nil
}

type stubShopFinder struct {
	shops map[uuid.UUID]*models.Shop
}

func (s *stubShopFinder) FindShop(ctx context.Context, shopID uuid.UUID) (*models.Shop, error) {
	shop, ok := s.shops[shopID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return shop, nil
}

type stubBuyerFinder struct {
	user *models.User
}

func (s *stubBuyerFinder) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

type stubPaymentStarter struct {
	url    string
	err    error
	inputs []chapa.InitiatePaymentInput
}

func (s *stubPaymentStarter) InitiatePayment(ctx context.Context, input chapa.InitiatePaymentInput) (string, error) {
	s.inputs = append(s.inputs, input)
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

type stubPaymentFailer struct {
	calls []orders.FailPaymentInput
}

func (s *stubPaymentFailer) FailPayment(ctx context.Context, input orders.FailPaymentInput) (*orders.TransitionResult, error) {
	s.calls = append(s.calls, input)
	return &orders.TransitionResult{NewStatus: enums.OrderStatusCancelled, StatusChanged: true}, nil
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type checkoutFixture struct {
	svc      Service
	orders   *stubOrdersRepo
	reserver *stubReserver
	payments *stubPaymentStarter
	failer   *stubPaymentFailer
	outbox   *stubOutbox

	buyer     *models.User
	localShop *models.Shop
	farShop   *models.Shop
	localTea  models.Product
	localSalt models.Product
	farCoffee models.Product
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	buyer := &models.User{ID: uuid.New(), Name: "Abdi Kemal", City: enums.CityDireDawa}
	localShop := &models.Shop{ID: uuid.New(), City: enums.CityDireDawa, Name: "Sabian Spices"}
	farShop := &models.Shop{ID: uuid.New(), City: enums.CityHarar, Name: "Jugol Coffee"}

	localTea := models.Product{ID: uuid.New(), ShopID: localShop.ID, Name: "Black tea", Price: decimal.NewFromInt(80)}
	localSalt := models.Product{ID: uuid.New(), ShopID: localShop.ID, Name: "Rock salt", Price: decimal.NewFromInt(35)}
	farCoffee := models.Product{ID: uuid.New(), ShopID: farShop.ID, Name: "Harar coffee", Price: decimal.NewFromInt(450)}

	ordersRepo := &stubOrdersRepo{}
	reserver := &stubReserver{}
	payments := &stubPaymentStarter{url: "https://checkout.chapa.co/pay/abc"}
	failer := &stubPaymentFailer{}
	publisher := &stubOutbox{}

	svc, err := NewService(ServiceParams{
		Tx:     stubTxRunner{},
		Orders: ordersRepo,
		Products: &stubProductsRepo{catalog: map[uuid.UUID]models.Product{
			localTea.ID:  localTea,
			localSalt.ID: localSalt,
			farCoffee.ID: farCoffee,
		}},
		Stock:    reserver,
		Shops:    &stubShopFinder{shops: map[uuid.UUID]*models.Shop{localShop.ID: localShop, farShop.ID: farShop}},
		Users:    &stubBuyerFinder{user: buyer},
		Payments: payments,
		Failer:   failer,
		Outbox:   publisher,
		Delivery: config.DeliveryConfig{FeeSameCity: "100", FeeCrossCity: "250"},
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	return &checkoutFixture{
		svc:       svc,
		orders:    ordersRepo,
		reserver:  reserver,
		payments:  payments,
		failer:    failer,
		outbox:    publisher,
		buyer:     buyer,
		localShop: localShop,
		farShop:   farShop,
		localTea:  localTea,
		localSalt: localSalt,
		farCoffee: farCoffee,
	}
}

func TestExecuteCreatesPendingOrder(t *testing.T) {
	fx := newCheckoutFixture(t)

	result, err := fx.svc.Execute(context.Background(), CheckoutInput{
		BuyerUserID: fx.buyer.ID,
		Items: []ItemInput{
			{ProductID: fx.localTea.ID, Quantity: 2},
			{ProductID: fx.localSalt.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if !result.TotalAmount.Equal(decimal.NewFromInt(195)) {
		t.Fatalf("unexpected total %s", result.TotalAmount)
	}
	if !result.DeliveryFee.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected same-city fee, got %s", result.DeliveryFee)
	}
	if !result.GrandTotal.Equal(decimal.NewFromInt(295)) {
		t.Fatalf("unexpected grand total %s", result.GrandTotal)
	}
	if result.CheckoutURL != "https://checkout.chapa.co/pay/abc" {
		t.Fatalf("unexpected checkout url %s", result.CheckoutURL)
	}

	order := fx.orders.created
	if order == nil {
		t.Fatal("expected order row")
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("unexpected status %s", order.Status)
	}
	if order.ChapaTxRef == nil || *order.ChapaTxRef != result.TxRef {
		t.Fatal("expected tx ref persisted on the order")
	}
	if !orders.ValidOTPFormat(order.OTPCode) {
		t.Fatalf("unexpected otp %q", order.OTPCode)
	}

	if len(fx.orders.items) != 2 {
		t.Fatalf("expected 2 item rows, got %d", len(fx.orders.items))
	}
	for _, item := range fx.orders.items {
		if item.OrderID != order.ID {
			t.Fatal("item not linked to order")
		}
		if item.ShopID != fx.localShop.ID || item.ShopCity != enums.CityDireDawa {
			t.Fatal("expected shop snapshot on item")
		}
	}
	if len(fx.reserver.reserved) != 2 {
		t.Fatalf("expected 2 reservations, got %d", len(fx.reserver.reserved))
	}

	if len(fx.outbox.events) != 1 || fx.outbox.events[0].EventType != enums.EventOrderCreated {
		t.Fatalf("expected a single order_created event, got %+v", fx.outbox.events)
	}

	gateway := fx.payments.inputs[0]
	if gateway.TxRef != result.TxRef {
		t.Fatal("gateway called with a different tx ref")
	}
	if !gateway.Amount.Equal(result.GrandTotal) {
		t.Fatalf("gateway amount %s, want %s", gateway.Amount, result.GrandTotal)
	}
	if gateway.FirstName != "Abdi" || gateway.LastName != "Kemal" {
		t.Fatalf("unexpected gateway name %q %q", gateway.FirstName, gateway.LastName)
	}
}

func TestExecuteCrossCityDeliveryFee(t *testing.T) {
	fx := newCheckoutFixture(t)

	result, err := fx.svc.Execute(context.Background(), CheckoutInput{
		BuyerUserID: fx.buyer.ID,
		Items: []ItemInput{
			{ProductID: fx.localTea.ID, Quantity: 1},
			{ProductID: fx.farCoffee.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.DeliveryFee.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("expected cross-city fee, got %s", result.DeliveryFee)
	}
	if !result.GrandTotal.Equal(decimal.NewFromInt(780)) {
		t.Fatalf("unexpected grand total %s", result.GrandTotal)
	}
}

func TestExecuteMergesDuplicateLines(t *testing.T) {
	fx := newCheckoutFixture(t)

	result, err := fx.svc.Execute(context.Background(), CheckoutInput{
		BuyerUserID: fx.buyer.ID,
		Items: []ItemInput{
			{ProductID: fx.localTea.ID, Quantity: 1},
			{ProductID: fx.localTea.ID, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.TotalAmount.Equal(decimal.NewFromInt(240)) {
		t.Fatalf("unexpected total %s", result.TotalAmount)
	}
	if len(fx.orders.items) != 1 || fx.orders.items[0].Quantity != 3 {
		t.Fatalf("expected one merged line of 3, got %+v", fx.orders.items)
	}
}

func TestExecuteRejectsEmptyAndInvalidItems(t *testing.T) {
	fx := newCheckoutFixture(t)

	_, err := fx.svc.Execute(context.Background(), CheckoutInput{BuyerUserID: fx.buyer.ID})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = fx.svc.Execute(context.Background(), CheckoutInput{
		BuyerUserID: fx.buyer.ID,
		Items:       []ItemInput{{ProductID: fx.localTea.ID, Quantity: 0}},
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestExecuteUnknownProduct(t *testing.T) {
	fx := newCheckoutFixture(t)

	_, err := fx.svc.Execute(context.Background(), CheckoutInput{
		BuyerUserID: fx.buyer.ID,
		Items:       []ItemInput{{ProductID: uuid.New(), Quantity: 1}},
	})
	assertCode(t, err, pkgerrors.CodeNotFound)
	if fx.orders.created != nil {
		t.Fatal("no order should be created for unknown products")
	}
}

func TestExecuteInsufficientStock(t *testing.T) {
	fx := newCheckoutFixture(t)
	fx.reserver.failOn = fx.localSalt.ID

	_, err := fx.svc.Execute(context.Background(), CheckoutInput{
		BuyerUserID: fx.buyer.ID,
		Items: []ItemInput{
			{ProductID: fx.localTea.ID, Quantity: 1},
			{ProductID: fx.localSalt.ID, Quantity: 4},
		},
	})
	assertCode(t, err, pkgerrors.CodeConflict)
	if len(fx.payments.inputs) != 0 {
		t.Fatal("gateway must not be called when reservation fails")
	}
}

func TestExecuteUnknownBuyer(t *testing.T) {
	fx := newCheckoutFixture(t)

	_, err := fx.svc.Execute(context.Background(), CheckoutInput{
		BuyerUserID: uuid.New(),
		Items:       []ItemInput{{ProductID: fx.localTea.ID, Quantity: 1}},
	})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestExecuteGatewayRejectionFailsOrder(t *testing.T) {
	fx := newCheckoutFixture(t)
	fx.payments.err = pkgerrors.New(pkgerrors.CodeDependency, "chapa rejected initialization")

	_, err := fx.svc.Execute(context.Background(), CheckoutInput{
		BuyerUserID: fx.buyer.ID,
		Items:       []ItemInput{{ProductID: fx.localTea.ID, Quantity: 1}},
	})
	assertCode(t, err, pkgerrors.CodeDependency)

	if len(fx.failer.calls) != 1 {
		t.Fatalf("expected one payment-failure call, got %d", len(fx.failer.calls))
	}
	call := fx.failer.calls[0]
	if fx.orders.created == nil || fx.orders.created.ChapaTxRef == nil || call.TxRef != *fx.orders.created.ChapaTxRef {
		t.Fatal("failure path must target the new order's tx ref")
	}
	if call.Reason != "payment initiation failed" {
		t.Fatalf("unexpected reason %q", call.Reason)
	}
}

func TestNormalizeItemsGuardsProductID(t *testing.T) {
	_, err := normalizeItems([]ItemInput{{ProductID: uuid.Nil, Quantity: 1}})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	coded := pkgerrors.As(err)
	if coded == nil {
		t.Fatalf("expected coded error, got %v", err)
	}
	if coded.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, coded.Code(), err)
	}
}
