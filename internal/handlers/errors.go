package handlers

import (
	"errors"
	"net/http"

	"github.com/okaimono/marketplace-backend/internal/domain/inventory"
	"github.com/okaimono/marketplace-backend/internal/domain/trade"
	apperrors "github.com/okaimono/marketplace-backend/internal/pkg/errors"
	"github.com/okaimono/marketplace-backend/internal/platform/apierr"
)

// mapError translates service errors into the API error taxonomy.
// Permission-scoped lookups surface not-found rather than leaking
// existence, so not-found already covers that case.
func mapError(err error) *apierr.Error {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return apierr.New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, apperrors.ErrPermissionDenied),
		errors.Is(err, inventory.ErrNotOwned):
		return apierr.New(http.StatusForbidden, "permission_denied", err)
	case errors.Is(err, apperrors.ErrInvalidArgument):
		return apierr.New(http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, apperrors.ErrDuplicateKey):
		return apierr.New(http.StatusConflict, "duplicate", err)
	case errors.Is(err, trade.ErrOrderCancelled),
		errors.Is(err, trade.ErrOrderCompleted),
		errors.Is(err, trade.ErrItemNotPending),
		errors.Is(err, trade.ErrItemNotAwaitingInput),
		errors.Is(err, trade.ErrTransactionCompleted),
		errors.Is(err, trade.ErrTransactionCancelled),
		errors.Is(err, inventory.ErrNotActive),
		errors.Is(err, inventory.ErrNotHeldByOwner):
		return apierr.New(http.StatusConflict, "invalid_state", err)
	default:
		return apierr.New(http.StatusInternalServerError, "internal", err)
	}
}
