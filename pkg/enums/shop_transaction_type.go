package enums

import "fmt"

// ShopTransactionType maps to the shop_transaction_type enum in Postgres.
type ShopTransactionType string

const (
	ShopTransactionTypeCredit ShopTransactionType = "CREDIT"
	ShopTransactionTypeDebit  ShopTransactionType = "DEBIT"
)

var validShopTransactionTypes = []ShopTransactionType{
	ShopTransactionTypeCredit,
	ShopTransactionTypeDebit,
}

// IsValid reports whether the value matches the canonical ledger enum.
func (t ShopTransactionType) IsValid() bool {
	for _, candidate := range validShopTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseShopTransactionType converts raw input into ShopTransactionType.
func ParseShopTransactionType(value string) (ShopTransactionType, error) {
	for _, candidate := range validShopTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shop transaction type %q", value)
}
