package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the only role allowed to change identity state or limits.
const RoleAdmin = "admin"

// TokenClaims are the claims carried by operator bearer tokens.
type TokenClaims struct {
	Type string `json:"type"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}
