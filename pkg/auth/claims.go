package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	TelegramID string
	Role       enums.ActorRole
	ShopID     *uuid.UUID
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to mini-app clients.
type AccessTokenClaims struct {
	UserID     uuid.UUID       `json:"user_id"`
	TelegramID string          `json:"telegram_id"`
	Role       enums.ActorRole `json:"role"`
	ShopID     *uuid.UUID      `json:"shop_id,omitempty"`
	jwt.RegisteredClaims
}
