package orders

import (
	"net/http"

	"github.com/barekegnn/misrak-shemeta-backend/api/responses"
	"github.com/barekegnn/misrak-shemeta-backend/api/validators"
	internalorders "github.com/barekegnn/misrak-shemeta-backend/internal/orders"
	pkgerrors "github.com/barekegnn/misrak-shemeta-backend/pkg/errors"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/logger"
)

// MarkArrived records that the runner reached the buyer's address.
func MarkArrived(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.MarkArrived(r.Context(), internalorders.MarkArrivedInput{
			OrderID:     orderID,
			ActorUserID: userID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type completeRequest struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}

// Complete settles the order after the buyer hands the runner the
// delivery code. Crediting the shops happens in the same transaction
// as the status flip.
func Complete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload completeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Complete(r.Context(), internalorders.CompleteInput{
			OrderID:     orderID,
			ActorUserID: userID,
			OTP:         payload.OTP,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
