package shops

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/barekegnn/misrak-shemeta-backend/pkg/db"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/db/models"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/pagination"
)

// Repository defines persistence operations for shops and their ledger.
// Balance mutations must load the shop through FindShopForUpdate so the
// before/after figures are read under the row lock.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindShop(ctx context.Context, shopID uuid.UUID) (*models.Shop, error)
	FindShopForUpdate(ctx context.Context, shopID uuid.UUID) (*models.Shop, error)
	FindShopByOwner(ctx context.Context, ownerUserID uuid.UUID) (*models.Shop, error)
	UpdateBalance(ctx context.Context, shopID uuid.UUID, balance decimal.Decimal) error
	CreateTransaction(ctx context.Context, txn *models.ShopTransaction) error
	ListTransactions(ctx context.Context, shopID uuid.UUID, params pagination.Params) (*TransactionList, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a shops repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindShop(ctx context.Context, shopID uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	err := r.db.WithContext(ctx).Where("id = ?", shopID).First(&shop).Error
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *repository) FindShopForUpdate(ctx context.Context, shopID uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	err := dbpkg.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", shopID).First(&shop).Error
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *repository) FindShopByOwner(ctx context.Context, ownerUserID uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	err := r.db.WithContext(ctx).Where("owner_user_id = ?", ownerUserID).First(&shop).Error
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *repository) UpdateBalance(ctx context.Context, shopID uuid.UUID, balance decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Shop{}).
		Where("id = ?", shopID).
		Update("balance", balance).Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.ShopTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, shopID uuid.UUID, params pagination.Params) (*TransactionList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Where("shop_id = ?", shopID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var rows []models.ShopTransaction
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &TransactionList{Transactions: rows}
	if len(rows) > limit {
		list.Transactions = rows[:limit]
		last := list.Transactions[limit-1]
		next := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		list.NextCursor = &next
	}
	return list, nil
}
