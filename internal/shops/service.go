package shops

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/barekegnn/misrak-shemeta-backend/pkg/db"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/db/models"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
	pkgerrors "github.com/barekegnn/misrak-shemeta-backend/pkg/errors"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes shop balance reads and ledger mutations. Credits run
// inside the caller's transaction so the escrow release commits atomically
// with the order completion.
type Service interface {
	CreditForOrder(ctx context.Context, tx *gorm.DB, shopID, orderID uuid.UUID, amount decimal.Decimal) (*models.ShopTransaction, error)
	Adjust(ctx context.Context, input AdjustInput) (*models.ShopTransaction, error)
	GetBalance(ctx context.Context, shopID, requesterUserID uuid.UUID) (*BalanceView, error)
	ListTransactions(ctx context.Context, shopID, requesterUserID uuid.UUID, params pagination.Params) (*TransactionList, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires a shops service with the provided dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shops repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) CreditForOrder(ctx context.Context, tx *gorm.DB, shopID, orderID uuid.UUID, amount decimal.Decimal) (*models.ShopTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for escrow credit")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	shop, err := repo.FindShopForUpdate(ctx, shopID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}

	before := shop.Balance
	after := before.Add(amount)
	txn := &models.ShopTransaction{
		ShopID:        shop.ID,
		OrderID:       &orderID,
		Type:          enums.ShopTransactionTypeCredit,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_shop_transactions_shop_order_credit") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already credited to shop")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record escrow credit")
	}
	if err := repo.UpdateBalance(ctx, shop.ID, after); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shop balance")
	}
	return txn, nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.ShopTransaction, error) {
	if input.ShopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment type must be CREDIT or DEBIT")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment amount must be positive")
	}
	if input.Note == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment note required")
	}

	var txn *models.ShopTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		shop, err := repo.FindShopForUpdate(ctx, input.ShopID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
		}

		before := shop.Balance
		var after decimal.Decimal
		switch input.Type {
		case enums.ShopTransactionTypeCredit:
			after = before.Add(input.Amount)
		case enums.ShopTransactionTypeDebit:
			after = before.Sub(input.Amount)
			if after.IsNegative() {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "debit would overdraw shop balance")
			}
		}

		note := input.Note
		txn = &models.ShopTransaction{
			ShopID:        shop.ID,
			Type:          input.Type,
			Amount:        input.Amount,
			BalanceBefore: before,
			BalanceAfter:  after,
			Note:          &note,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record adjustment")
		}
		return repo.UpdateBalance(ctx, shop.ID, after)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) GetBalance(ctx context.Context, shopID, requesterUserID uuid.UUID) (*BalanceView, error) {
	shop, err := s.ownedShop(ctx, shopID, requesterUserID)
	if err != nil {
		return nil, err
	}
	return &BalanceView{ShopID: shop.ID, Name: shop.Name, Balance: shop.Balance}, nil
}

func (s *service) ListTransactions(ctx context.Context, shopID, requesterUserID uuid.UUID, params pagination.Params) (*TransactionList, error) {
	if _, err := s.ownedShop(ctx, shopID, requesterUserID); err != nil {
		return nil, err
	}
	list, err := s.repo.ListTransactions(ctx, shopID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shop transactions")
	}
	return list, nil
}

func (s *service) ownedShop(ctx context.Context, shopID, requesterUserID uuid.UUID) (*models.Shop, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	shop, err := s.repo.FindShop(ctx, shopID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}
	if shop.OwnerUserID != requesterUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop does not belong to user")
	}
	return shop, nil
}
