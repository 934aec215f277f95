package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barekegnn/misrak-shemeta-backend/api/middleware"
	"github.com/barekegnn/misrak-shemeta-backend/api/responses"
	"github.com/barekegnn/misrak-shemeta-backend/api/validators"
	"github.com/barekegnn/misrak-shemeta-backend/internal/shops"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
	pkgerrors "github.com/barekegnn/misrak-shemeta-backend/pkg/errors"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/logger"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/pagination"
)

// ShopBalance returns the authenticated owner's escrow balance.
func ShopBalance(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shops service unavailable"))
			return
		}

		shopID, userID, err := shopContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetBalance(r.Context(), shopID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// ShopLedger returns one cursor page of the shop's transaction history.
func ShopLedger(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shops service unavailable"))
			return
		}

		shopID, userID, err := shopContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		list, err := svc.ListTransactions(r.Context(), shopID, userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type adjustRequest struct {
	Type   string `json:"type" validate:"required"`
	Amount string `json:"amount" validate:"required"`
	Note   string `json:"note" validate:"required,max=500"`
}

// AdminAdjustShopBalance applies a manual ledger correction to a shop.
func AdminAdjustShopBalance(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shops service unavailable"))
			return
		}

		actorID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shopID, err := uuid.Parse(chi.URLParam(r, "shopId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shop id"))
			return
		}

		var payload adjustRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txType, err := enums.ParseShopTransactionType(payload.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction type"))
			return
		}

		amount, err := decimal.NewFromString(payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		txn, err := svc.Adjust(r.Context(), shops.AdjustInput{
			ShopID:      shopID,
			ActorUserID: actorID,
			Type:        txType,
			Amount:      amount,
			Note:        payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}

func shopContext(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	userID, err := authedUserID(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	raw := middleware.ShopIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}
	shopID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid shop id")
	}
	return shopID, userID, nil
}
