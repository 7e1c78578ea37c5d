package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"nucleo/internal/entity"
	"nucleo/internal/store"
	domainerrors "nucleo/pkg/domain-errors"
	"nucleo/pkg/platform/sentinel"
)

// Service verifies credentials against the user entity and issues tokens.
// It reads through the raw store: login runs before any tenant is known, and
// users are a global type anyway.
type Service struct {
	store    store.Store
	tokens   *TokenService
	tokenTTL time.Duration
	logger   *slog.Logger
}

func NewService(st store.Store, tokens *TokenService, tokenTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{store: st, tokens: tokens, tokenTTL: tokenTTL, logger: logger}
}

// LoginResult carries the signed token plus the identity it encodes.
type LoginResult struct {
	Token     string
	UserID    string
	Email     string
	Name      string
	CompanyID string
}

// Login resolves email+password into a signed access token. Unknown email
// and wrong password produce the same error, so the endpoint cannot be used
// to enumerate accounts.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, domainerrors.New(domainerrors.CodeInvalidInput, "email and password are required")
	}

	user, err := s.store.FindFirst(ctx, entity.TypeUser, store.Query{
		Where: store.Eq("email", email),
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.New(domainerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "look up user")
	}

	hash, _ := user["passwordHash"].(string)
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, domainerrors.New(domainerrors.CodeUnauthorized, "invalid credentials")
	}

	name, _ := user["name"].(string)
	companyID, _ := user["companyId"].(string)

	claims := Claims{
		Email:     email,
		Name:      name,
		CompanyID: companyID,
	}
	if companyID != "" {
		claims.CompanyName = s.companyName(ctx, companyID)
	}

	token, err := s.tokens.Issue(user.ID(), claims, s.tokenTTL)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "sign access token")
	}

	return &LoginResult{
		Token:     token,
		UserID:    user.ID(),
		Email:     email,
		Name:      name,
		CompanyID: companyID,
	}, nil
}

// companyName embeds the display name in the token so audit records carry it
// without a per-request lookup. Best effort: a missing company just leaves
// the claim empty.
func (s *Service) companyName(ctx context.Context, companyID string) string {
	company, err := s.store.FindUnique(ctx, entity.TypeCompany, companyID)
	if err != nil {
		s.logger.WarnContext(ctx, "company lookup for token claims failed",
			"company_id", companyID, "error", err)
		return ""
	}
	name, _ := company["name"].(string)
	return name
}

// HashPassword hashes a plaintext password for storage on a user record.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
