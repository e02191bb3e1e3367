package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kwabenaosei/dukapos-backend/api/middleware"
	pkgerrors "github.com/kwabenaosei/dukapos-backend/pkg/errors"
)

// businessIDFromRequest extracts the tenant seeded by the auth middleware.
func businessIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.BusinessIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "business context missing")
	}
	businessID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid business id")
	}
	return businessID, nil
}
