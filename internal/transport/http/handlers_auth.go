package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"nucleo/internal/auth"
	domainerrors "nucleo/pkg/domain-errors"
)

// AuthService is what the login endpoint needs from internal/auth.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
}

type AuthHandler struct {
	auth AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{auth: svc}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
	CompanyID   string `json:"company_id,omitempty"`
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domainerrors.New(domainerrors.CodeInvalidInput, "invalid request body"))
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: result.Token,
		TokenType:   "Bearer",
		UserID:      result.UserID,
		CompanyID:   result.CompanyID,
	})
}
