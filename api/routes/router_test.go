package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	checkoutsvc "github.com/barekegnn/misrak-shemeta-backend/internal/checkout"
	"github.com/barekegnn/misrak-shemeta-backend/internal/notifications"
	internalorders "github.com/barekegnn/misrak-shemeta-backend/internal/orders"
	"github.com/barekegnn/misrak-shemeta-backend/internal/shops"
	pkgAuth "github.com/barekegnn/misrak-shemeta-backend/pkg/auth"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/config"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/db/models"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/logger"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubOrdersRepo struct{}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) internalorders.Repository { return s }

func (s *stubOrdersRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (s *stubOrdersRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
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

func (s *stubOrdersRepo) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
	return &internalorders.OrderList{}, nil
}

func (s *stubOrdersRepo) ListShopOrders(ctx context.Context, shopID uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
	return &internalorders.OrderList{}, nil
}

type stubOrdersService struct{}

func (stubOrdersService) ConfirmPayment(ctx context.Context, input internalorders.ConfirmPaymentInput) (*internalorders.TransitionResult, error) {
	return &internalorders.TransitionResult{}, nil
}

func (stubOrdersService) FailPayment(ctx context.Context, input internalorders.FailPaymentInput) (*internalorders.TransitionResult, error) {
	return &internalorders.TransitionResult{}, nil
}

func (stubOrdersService) Dispatch(ctx context.Context, input internalorders.DispatchInput) (*internalorders.TransitionResult, error) {
	return &internalorders.TransitionResult{OrderID: input.OrderID, StatusChanged: true}, nil
}

func (stubOrdersService) MarkArrived(ctx context.Context, input internalorders.MarkArrivedInput) (*internalorders.TransitionResult, error) {
	return &internalorders.TransitionResult{OrderID: input.OrderID, StatusChanged: true}, nil
}

func (stubOrdersService) Complete(ctx context.Context, input internalorders.CompleteInput) (*internalorders.TransitionResult, error) {
	return &internalorders.TransitionResult{OrderID: input.OrderID, StatusChanged: true}, nil
}

func (stubOrdersService) Cancel(ctx context.Context, input internalorders.CancelInput) (*internalorders.TransitionResult, error) {
	return &internalorders.TransitionResult{OrderID: input.OrderID, StatusChanged: true}, nil
}

type stubShopsService struct{}

func (stubShopsService) CreditForOrder(ctx context.Context, tx *gorm.DB, shopID, orderID uuid.UUID, amount decimal.Decimal) (*models.ShopTransaction, error) {
	return &models.ShopTransaction{}, nil
}

func (stubShopsService) Adjust(ctx context.Context, input shops.AdjustInput) (*models.ShopTransaction, error) {
	return &models.ShopTransaction{}, nil
}

func (stubShopsService) GetBalance(ctx context.Context, shopID, requesterUserID uuid.UUID) (*shops.BalanceView, error) {
	return &shops.BalanceView{ShopID: shopID}, nil
}

func (stubShopsService) ListTransactions(ctx context.Context, shopID, requesterUserID uuid.UUID, params pagination.Params) (*shops.TransactionList, error) {
	return &shops.TransactionList{}, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	return 0, nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) Execute(ctx context.Context, input checkoutsvc.CheckoutInput) (*checkoutsvc.CheckoutResult, error) {
	return &checkoutsvc.CheckoutResult{OrderID: uuid.New(), Status: enums.OrderStatusPending}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(RouterParams{
		Config:        cfg,
		Logger:        logg,
		DB:            stubPinger{},
		Checkout:      stubCheckoutService{},
		OrdersRepo:    &stubOrdersRepo{},
		Orders:        stubOrdersService{},
		Shops:         stubShopsService{},
		Notifications: stubNotificationsService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.ActorRole, shopID *uuid.UUID) string {
	return buildTokenFor(t, cfg, uuid.New(), role, shopID)
}

func buildTokenFor(t *testing.T, cfg *config.Config, userID uuid.UUID, role enums.ActorRole, shopID *uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:     userID,
		TelegramID: "9917401",
		Role:       role,
		ShopID:     shopID,
		JTI:        uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestBuyerOrdersListSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleBuyer, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestShopGroupRequiresShopRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	shopID := uuid.New()

	buyer := httptest.NewRequest(http.MethodGet, "/api/shop/v1/balance", nil)
	buyer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleBuyer, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, buyer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for buyer got %d", resp.Code)
	}

	owner := httptest.NewRequest(http.MethodGet, "/api/shop/v1/balance", nil)
	owner.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleShop, &shopID))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, owner)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for shop owner got %d", resp.Code)
	}
}

func TestShopGroupRequiresShopClaim(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/shop/v1/balance", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleShop, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without shop claim got %d", resp.Code)
	}
}

func TestRunnerGroupRequiresRunnerRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	target := "/api/runner/v1/orders/" + uuid.NewString() + "/arrive"

	buyer := httptest.NewRequest(http.MethodPost, target, nil)
	buyer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleBuyer, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, buyer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for buyer got %d", resp.Code)
	}

	runner := httptest.NewRequest(http.MethodPost, target, nil)
	runner.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleRunner, nil))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, runner)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for runner got %d", resp.Code)
	}
}

func TestAdminAdjustRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	adminID := uuid.New()
	cfg.Admin.AllowedIDs = []string{adminID.String()}
	router := newTestRouter(cfg)
	target := "/api/admin/v1/shops/" + uuid.NewString() + "/adjust"
	body := `{"type":"CREDIT","amount":"150.00","note":"reconciliation"}`

	shopOwner := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	shopOwner.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleShop, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, shopOwner)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for shop owner got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	admin.Header.Set("Authorization", "Bearer "+buildTokenFor(t, cfg, adminID, enums.ActorRoleAdmin, nil))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for admin got %d", resp.Code)
	}
}

func TestAdminGroupEnforcesAllowlist(t *testing.T) {
	cfg := testConfig()
	cfg.Admin.AllowedIDs = []string{uuid.NewString()}
	router := newTestRouter(cfg)
	target := "/api/admin/v1/shops/" + uuid.NewString() + "/adjust"
	body := `{"type":"CREDIT","amount":"25.00","note":"reconciliation"}`

	// ADMIN role claim, but the user id is not on the allowlist.
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleAdmin, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-allowlisted admin got %d", resp.Code)
	}
}

func TestCheckoutRejectsBadJSON(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleBuyer, nil))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}
}

func TestCheckoutAcceptsValidPayload(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	body := `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":2}]}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleBuyer, nil))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}
