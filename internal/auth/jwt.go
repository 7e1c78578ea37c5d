// Package auth resolves credentials into signed identity tokens and validates
// them on incoming requests. The claims carry everything the access layer
// needs to build its per-request contexts, so no handler has to look the user
// up again.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domainerrors "nucleo/pkg/domain-errors"
)

// Claims are the access-token claims.
type Claims struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	CompanyID   string `json:"companyId,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
	jwt.RegisteredClaims
}

// UserID is the token subject.
func (c *Claims) UserID() string {
	return c.Subject
}

// TokenService issues and validates HS256 access tokens.
type TokenService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewTokenService(signingKey, issuer, audience string) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// Issue signs a token for the resolved identity.
func (s *TokenService) Issue(userID string, claims Claims, expiresIn time.Duration) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		Issuer:    s.issuer,
		Audience:  []string{s.audience},
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// ValidateToken parses and verifies a token string.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domainerrors.New(domainerrors.CodeUnauthorized, "token has expired")
		}
		return nil, domainerrors.New(domainerrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, domainerrors.New(domainerrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}
