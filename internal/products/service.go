package products

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/barekegnn/misrak-shemeta-backend/pkg/errors"
)

// Service adjusts catalog stock inside order transactions.
type Service interface {
	Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

type service struct {
	repo Repository
}

// NewService wires a products service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{repo: repo}, nil
}

// Restore returns units to the shelf after a cancellation or payment
// failure.
func (s *service) Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock restore")
	}
	if err := s.repo.WithTx(tx).IncrementStock(ctx, productID, qty); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
	}
	return nil
}

// Reserve takes units off the shelf during order creation. A shortfall is
// reported as a conflict so checkout can surface it per item.
func (s *service) Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock reservation")
	}
	ok, err := s.repo.WithTx(tx).DecrementStock(ctx, productID, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock")
	}
	return nil
}
