package orders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/barekegnn/misrak-shemeta-backend/api/middleware"
	"github.com/barekegnn/misrak-shemeta-backend/api/responses"
	internalorders "github.com/barekegnn/misrak-shemeta-backend/internal/orders"
	pkgerrors "github.com/barekegnn/misrak-shemeta-backend/pkg/errors"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/logger"
)

// ShopList returns one cursor page of orders containing the shop's items.
func ShopList(repo internalorders.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders repository unavailable"))
			return
		}

		shopID, err := callerShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := repo.ListShopOrders(r.Context(), shopID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shop orders"))
			return
		}
		responses.WriteSuccess(w, newOrderListResponse(list.Orders, list.NextCursor, false))
	}
}

// Dispatch marks an escrowed order as handed to a delivery runner.
func Dispatch(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		shopID, err := callerShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Dispatch(r.Context(), internalorders.DispatchInput{
			OrderID:     orderID,
			ActorUserID: userID,
			ActorShopID: shopID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func callerShopID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.ShopIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}
	shopID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid shop id")
	}
	return shopID, nil
}
