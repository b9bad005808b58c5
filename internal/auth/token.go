package auth

import (
	"fmt"
	"time"

	"github.com/BradenHooton/customs/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAdmin = "admin"
	tokenIssuer    = "customs"
)

// TokenManager issues and validates the bearer tokens that guard the admin
// endpoints.
type TokenManager struct {
	secret string
	expiry time.Duration
	now    func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	return &TokenManager{
		secret: secret,
		expiry: expiry,
		now:    time.Now,
	}
}

// GenerateAdminToken creates an admin token for subject. A zero ttl uses the
// configured expiry.
func (tm *TokenManager) GenerateAdminToken(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: subject is required", models.ErrBadRequest)
	}
	if ttl <= 0 {
		ttl = tm.expiry
	}

	now := tm.now()
	claims := &models.TokenClaims{
		Type: tokenTypeAdmin,
		Role: models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    tokenIssuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign admin token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken verifies a token and returns its claims
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type != tokenTypeAdmin {
		return nil, fmt.Errorf("%w: unexpected token type %q", models.ErrUnauthorized, claims.Type)
	}

	return claims, nil
}
