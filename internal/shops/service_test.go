package shops

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/db/models"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
	pkgerrors "github.com/barekegnn/misrak-shemeta-backend/pkg/errors"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/pagination"
)

type stubShopsRepo struct {
	shop         *models.Shop
	transactions []models.ShopTransaction
	balance      decimal.Decimal
	createErr    error
}

func (s *stubShopsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubShopsRepo) FindShop(ctx context.Context, shopID uuid.UUID) (*models.Shop, error) {
	if s.shop == nil || s.shop.ID != shopID {
		return nil, gorm.ErrRecordNotFound
	}
	copy := *s.shop
	return &copy, nil
}

func (s *stubShopsRepo) FindShopForUpdate(ctx context.Context, shopID uuid.UUID) (*models.Shop, error) {
	return s.FindShop(ctx, shopID)
}

func (s *stubShopsRepo) FindShopByOwner(ctx context.Context, ownerUserID uuid.UUID) (*models.Shop, error) {
	if s.shop == nil || s.shop.OwnerUserID != ownerUserID {
		return nil, gorm.ErrRecordNotFound
	}
	copy := *s.shop
	return &copy, nil
}

func (s *stubShopsRepo) UpdateBalance(ctx context.Context, shopID uuid.UUID, balance decimal.Decimal) error {
	s.balance = balance
	s.shop.Balance = balance
	return nil
}

func (s *stubShopsRepo) CreateTransaction(ctx context.Context, txn *models.ShopTransaction) error {
	if s.createErr != nil {
		return s.createErr
	}
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	s.transactions = append(s.transactions, *txn)
	return nil
}

func (s *stubShopsRepo) ListTransactions(ctx context.Context, shopID uuid.UUID, params pagination.Params) (*TransactionList, error) {
	return &TransactionList{Transactions: s.transactions}, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newShopFixture(t *testing.T, balance int64) (*stubShopsRepo, Service, *models.Shop) {
	t.Helper()
	shop := &models.Shop{
		ID:          uuid.New(),
		OwnerUserID: uuid.New(),
		Name:        "harar spice house",
		City:        enums.CityHarar,
		Balance:     decimal.NewFromInt(balance),
	}
	repo := &stubShopsRepo{shop: shop}
	svc, err := NewService(repo, stubTxRunner{})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return repo, svc, shop
}

func TestCreditForOrder(t *testing.T) {
	repo, svc, shop := newShopFixture(t, 100)
	orderID := uuid.New()

	// Credits run inside the order completion transaction; the stub runner
	// passes a nil tx, so exercise the service through a fake non-nil one.
	txn, err := svc.CreditForOrder(context.Background(), &gorm.DB{}, shop.ID, orderID, decimal.NewFromInt(250))
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !txn.BalanceBefore.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance before %s, want 100", txn.BalanceBefore)
	}
	if !txn.BalanceAfter.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("balance after %s, want 350", txn.BalanceAfter)
	}
	if !repo.balance.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("persisted balance %s, want 350", repo.balance)
	}
	if txn.Type != enums.ShopTransactionTypeCredit {
		t.Fatalf("unexpected transaction type %s", txn.Type)
	}
	if txn.OrderID == nil || *txn.OrderID != orderID {
		t.Fatal("order id not linked to ledger row")
	}
}

func TestCreditForOrderRequiresTx(t *testing.T) {
	_, svc, shop := newShopFixture(t, 0)
	_, err := svc.CreditForOrder(context.Background(), nil, shop.ID, uuid.New(), decimal.NewFromInt(10))
	assertCode(t, err, pkgerrors.CodeDependency)
}

func TestCreditForOrderRejectsNonPositive(t *testing.T) {
	_, svc, shop := newShopFixture(t, 0)
	_, err := svc.CreditForOrder(context.Background(), &gorm.DB{}, shop.ID, uuid.New(), decimal.Zero)
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestAdjustDebitCannotOverdraw(t *testing.T) {
	_, svc, shop := newShopFixture(t, 100)

	_, err := svc.Adjust(context.Background(), AdjustInput{
		ShopID: shop.ID,
		Type:   enums.ShopTransactionTypeDebit,
		Amount: decimal.NewFromInt(150),
		Note:   "payout correction",
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)

	txn, err := svc.Adjust(context.Background(), AdjustInput{
		ShopID: shop.ID,
		Type:   enums.ShopTransactionTypeDebit,
		Amount: decimal.NewFromInt(60),
		Note:   "payout correction",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !txn.BalanceAfter.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("balance after %s, want 40", txn.BalanceAfter)
	}
}

func TestAdjustRequiresNote(t *testing.T) {
	_, svc, shop := newShopFixture(t, 100)
	_, err := svc.Adjust(context.Background(), AdjustInput{
		ShopID: shop.ID,
		Type:   enums.ShopTransactionTypeCredit,
		Amount: decimal.NewFromInt(10),
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestGetBalanceOwnership(t *testing.T) {
	_, svc, shop := newShopFixture(t, 500)

	view, err := svc.GetBalance(context.Background(), shop.ID, shop.OwnerUserID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !view.Balance.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("balance %s, want 500", view.Balance)
	}

	_, err = svc.GetBalance(context.Background(), shop.ID, uuid.New())
	assertCode(t, err, pkgerrors.CodeForbidden)
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
