package shops

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/db/models"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
)

// BalanceView is the shop owner's read of their escrow balance.
type BalanceView struct {
	ShopID  uuid.UUID       `json:"shop_id"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// AdjustInput is a manual ledger adjustment performed by an operator.
type AdjustInput struct {
	ShopID      uuid.UUID
	ActorUserID uuid.UUID
	Type        enums.ShopTransactionType
	Amount      decimal.Decimal
	Note        string
}

// TransactionList is one cursor page of ledger entries.
type TransactionList struct {
	Transactions []models.ShopTransaction `json:"transactions"`
	NextCursor   *string                  `json:"next_cursor,omitempty"`
}
