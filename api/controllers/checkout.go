package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/barekegnn/misrak-shemeta-backend/api/middleware"
	"github.com/barekegnn/misrak-shemeta-backend/api/responses"
	"github.com/barekegnn/misrak-shemeta-backend/api/validators"
	checkoutsvc "github.com/barekegnn/misrak-shemeta-backend/internal/checkout"
	pkgerrors "github.com/barekegnn/misrak-shemeta-backend/pkg/errors"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/logger"
)

type checkoutItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type checkoutRequest struct {
	Items []checkoutItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
}

// Checkout creates a pending order from the buyer's basket and returns the
// payment redirect URL.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]checkoutsvc.ItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, checkoutsvc.ItemInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}

		result, err := svc.Execute(r.Context(), checkoutsvc.CheckoutInput{
			BuyerUserID: buyerID,
			Items:       items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func authedUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return userID, nil
}
