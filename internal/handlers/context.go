package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/okaimono/marketplace-backend/internal/pkg/ctxutil"
	"github.com/okaimono/marketplace-backend/internal/platform/apierr"
)

// requesterID pulls the authenticated user out of the request context.
// Returns false after responding 401 when no identity is present, which
// can only happen on a route missing the auth middleware.
func requesterID(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("missing identity")))
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, apierr.New(http.StatusBadRequest, "invalid_id", err))
		return uuid.Nil, false
	}
	return id, true
}
