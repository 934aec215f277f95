package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/db/models"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
	pkgerrors "github.com/barekegnn/misrak-shemeta-backend/pkg/errors"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/logger"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/outbox/payloads"
	paginationpkg "github.com/barekegnn/misrak-shemeta-backend/pkg/pagination"
)

type fakeRepository struct {
	created    []*models.Notification
	listRows   []models.Notification
	listNext   *paginationpkg.Cursor
	listParams listNotificationsParams
	markResult notificationMarkResult
	markErr    error
	allRead    int64
	allReadErr error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, notification *models.Notification) error {
	f.created = append(f.created, notification)
	return nil
}

func (f *fakeRepository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error) {
	f.listParams = params
	return f.listRows, f.listNext, nil
}

func (f *fakeRepository) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	return f.markResult, f.markErr
}

func (f *fakeRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error) {
	return f.allRead, f.allReadErr
}

func TestService_ListNotifications(t *testing.T) {
	next := &paginationpkg.Cursor{CreatedAt: time.Now().UTC(), ID: uuid.New()}
	repo := &fakeRepository{
		listRows: []models.Notification{{ID: uuid.New()}, {ID: uuid.New()}},
		listNext: next,
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	recipient := uuid.New()
	result, err := svc.List(context.Background(), ListParams{RecipientID: recipient, Limit: 2, UnreadOnly: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.Cursor == "" {
		t.Fatal("expected next cursor")
	}
	if repo.listParams.RecipientID != recipient || !repo.listParams.UnreadOnly {
		t.Fatalf("unexpected list params %+v", repo.listParams)
	}
}

func TestService_ListNotificationsInvalidCursor(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.List(context.Background(), ListParams{RecipientID: uuid.New(), Cursor: "not-a-cursor"})
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_MarkRead(t *testing.T) {
	repo := &fakeRepository{markResult: notificationMarkResult{Found: true, Updated: true}}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.MarkRead(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
}

func TestService_MarkReadNotFound(t *testing.T) {
	repo := &fakeRepository{markResult: notificationMarkResult{Found: false}}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	err = svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestService_MarkAllRead(t *testing.T) {
	repo := &fakeRepository{allRead: 4}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	count, err := svc.MarkAllRead(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4, got %d", count)
	}
}

func TestService_MarkAllReadError(t *testing.T) {
	repo := &fakeRepository{allReadErr: errors.New("boom")}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if _, err := svc.MarkAllRead(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeShopLookup struct {
	shop *models.Shop
}

func (f *fakeShopLookup) FindShop(ctx context.Context, shopID uuid.UUID) (*models.Shop, error) {
	if f.shop == nil || f.shop.ID != shopID {
		return nil, gorm.ErrRecordNotFound
	}
	return f.shop, nil
}

func consumerForTest(t *testing.T, repo *fakeRepository, shops shopLookup) *Consumer {
	t.Helper()
	return &Consumer{repo: repo, shops: shops, logg: testLogger()}
}

func TestConsumerHandleOrderPaid(t *testing.T) {
	repo := &fakeRepository{}
	consumer := consumerForTest(t, repo, &fakeShopLookup{})

	buyer := uuid.New()
	data, _ := json.Marshal(payloads.OrderStatusChangedEvent{
		OrderID:     uuid.New(),
		BuyerUserID: buyer,
		FromStatus:  enums.OrderStatusPending,
		ToStatus:    enums.OrderStatusPaidEscrow,
	})

	if err := consumer.handle(context.Background(), enums.EventOrderPaid, data, context.Background()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(repo.created))
	}
	got := repo.created[0]
	if got.RecipientID != buyer || got.Type != enums.NotificationTypeOrderPaid {
		t.Fatalf("unexpected notification %+v", got)
	}
}

func TestConsumerHandleShopCredited(t *testing.T) {
	owner := uuid.New()
	shop := &models.Shop{ID: uuid.New(), OwnerUserID: owner}
	repo := &fakeRepository{}
	consumer := consumerForTest(t, repo, &fakeShopLookup{shop: shop})

	data, _ := json.Marshal(payloads.ShopCreditedEvent{
		ShopID:        shop.ID,
		OrderID:       uuid.New(),
		Amount:        decimal.NewFromInt(250),
		BalanceAfter:  decimal.NewFromInt(1000),
		TransactionID: uuid.New(),
	})

	if err := consumer.handle(context.Background(), enums.EventShopCredited, data, context.Background()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(repo.created))
	}
	got := repo.created[0]
	if got.RecipientID != owner || got.Type != enums.NotificationTypeBalanceCredited {
		t.Fatalf("unexpected notification %+v", got)
	}
}

func TestConsumerHandleCancelledMentionsRefund(t *testing.T) {
	repo := &fakeRepository{}
	consumer := consumerForTest(t, repo, &fakeShopLookup{})

	data, _ := json.Marshal(payloads.OrderCancelledEvent{
		OrderID:     uuid.New(),
		BuyerUserID: uuid.New(),
		FromStatus:  enums.OrderStatusPaidEscrow,
		Reason:      "changed my mind",
	})

	if err := consumer.handle(context.Background(), enums.EventOrderCancelled, data, context.Background()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	msg := repo.created[0].Message
	if msg == "" || !strings.Contains(msg, "refunded") {
		t.Fatalf("cancellation of a paid order should mention the refund: %q", msg)
	}
}

func TestConsumerHandleUnknownEventIgnored(t *testing.T) {
	repo := &fakeRepository{}
	consumer := consumerForTest(t, repo, &fakeShopLookup{})

	if err := consumer.handle(context.Background(), enums.EventRefundFailed, json.RawMessage(`{}`), context.Background()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatal("unhandled events must not create notifications")
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}
