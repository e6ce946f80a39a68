package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mediadesk/mediadesk-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a staff JWT.
type AccessTokenPayload struct {
	StaffID uuid.UUID
	Name    string
	Email   string
	Role    enums.StaffRole
	JTI     string
}

// AccessTokenClaims represents the typed JWT issued to staff clients.
type AccessTokenClaims struct {
	StaffID uuid.UUID       `json:"staff_id"`
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Role    enums.StaffRole `json:"role"`
	jwt.RegisteredClaims
}
