package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/db/models"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/pagination"
)

// Repository defines persistence operations for the order tables. The
// ForUpdate finders lock the row for the caller's transaction and are the
// only loads the settlement paths may use.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderByTxRef(ctx context.Context, txRef string) (*models.Order, error)
	FindOrderByTxRefForUpdate(ctx context.Context, txRef string) (*models.Order, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, extra map[string]any) (bool, error)
	AppendStatusEvent(ctx context.Context, event *models.OrderStatusEvent) error
	FindStatusEvents(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusEvent, error)
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListShopOrders(ctx context.Context, shopID uuid.UUID, params pagination.Params) (*OrderList, error)
}
