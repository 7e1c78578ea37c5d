package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"nucleo/internal/entity"
	"nucleo/internal/store"
	domainerrors "nucleo/pkg/domain-errors"
)

type AuthServiceSuite struct {
	suite.Suite

	ctx     context.Context
	base    *store.Memory
	service *Service
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.base = store.NewMemory()
	s.service = NewService(s.base, tokenService, time.Hour, slog.Default())

	hash, err := HashPassword("hunter22")
	s.Require().NoError(err)

	_, err = s.base.Create(s.ctx, entity.TypeCompany, store.Record{
		"id": "acme", "name": "Acme Corp",
	})
	s.Require().NoError(err)

	_, err = s.base.Create(s.ctx, entity.TypeUser, store.Record{
		"id":           "user-1",
		"email":        "ann@acme.example",
		"name":         "Ann Perkins",
		"companyId":    "acme",
		"passwordHash": hash,
	})
	s.Require().NoError(err)
}

func (s *AuthServiceSuite) TestLogin() {
	result, err := s.service.Login(s.ctx, "ann@acme.example", "hunter22")
	s.Require().NoError(err)
	s.Equal("user-1", result.UserID)
	s.Equal("acme", result.CompanyID)

	claims, err := tokenService.ValidateToken(result.Token)
	s.Require().NoError(err)
	s.Equal("user-1", claims.UserID())
	s.Equal("Acme Corp", claims.CompanyName)
}

func (s *AuthServiceSuite) TestLoginWrongPassword() {
	_, err := s.service.Login(s.ctx, "ann@acme.example", "wrong")
	s.Require().Error(err)
	s.True(domainerrors.HasCode(err, domainerrors.CodeUnauthorized))
}

func (s *AuthServiceSuite) TestLoginUnknownEmailIndistinguishable() {
	_, wrongPassword := s.service.Login(s.ctx, "ann@acme.example", "wrong")
	_, unknownEmail := s.service.Login(s.ctx, "nobody@acme.example", "hunter22")

	s.Require().Error(wrongPassword)
	s.Require().Error(unknownEmail)
	s.Equal(wrongPassword.Error(), unknownEmail.Error())
}

func (s *AuthServiceSuite) TestLoginMissingFields() {
	_, err := s.service.Login(s.ctx, "", "hunter22")
	s.True(domainerrors.HasCode(err, domainerrors.CodeInvalidInput))
}

func (s *AuthServiceSuite) TestLoginWithoutCompany() {
	hash, err := HashPassword("hunter22")
	s.Require().NoError(err)
	_, err = s.base.Create(s.ctx, entity.TypeUser, store.Record{
		"id": "admin-1", "email": "root@example.com", "passwordHash": hash,
	})
	s.Require().NoError(err)

	result, err := s.service.Login(s.ctx, "root@example.com", "hunter22")
	s.Require().NoError(err)
	s.Empty(result.CompanyID)

	claims, err := tokenService.ValidateToken(result.Token)
	s.Require().NoError(err)
	s.Empty(claims.CompanyID)
	s.Empty(claims.CompanyName)
}
