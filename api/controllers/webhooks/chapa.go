package webhooks

import (
	"io"
	"net/http"

	"github.com/barekegnn/misrak-shemeta-backend/api/responses"
	chapawebhook "github.com/barekegnn/misrak-shemeta-backend/internal/webhooks/chapa"
	pkgerrors "github.com/barekegnn/misrak-shemeta-backend/pkg/errors"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/logger"
)

// ChapaWebhook receives payment gateway callbacks. Signature and payload
// problems are rejected with their real status; everything past that point
// is answered 200 so the gateway does not retry what we have already
// recorded.
func ChapaWebhook(svc *chapawebhook.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get("Chapa-Signature")
		if signature == "" {
			signature = r.Header.Get("X-Chapa-Signature")
		}

		event, err := svc.VerifyAndParse(payload, signature)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ack := svc.Process(r.Context(), event, payload)
		responses.WriteSuccess(w, ack)
	}
}
