package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	BusinessID uuid.UUID
	Role       string
	JTI        string
}

// AccessTokenClaims represents the typed JWT presented by POS clients.
// BusinessID is the tenant: every catalog and ledger operation downstream
// is filtered by it.
type AccessTokenClaims struct {
	UserID     uuid.UUID `json:"user_id"`
	BusinessID uuid.UUID `json:"business_id"`
	Role       string    `json:"role,omitempty"`
	jwt.RegisteredClaims
}
