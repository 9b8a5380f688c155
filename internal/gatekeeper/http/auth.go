package http

import (
	"encoding/json"
	"net/http"

	"github.com/openpath/gatekeeper/internal/gatekeeper/service"
	"github.com/openpath/gatekeeper/pkg/httpx"
)

// AuthHandlers owns the login/refresh/logout/register endpoints.
type AuthHandlers struct {
	Tokens *service.TokenService
	Users  *service.UserService
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
		return
	}

	pair, err := h.Tokens.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, map[string]any{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    pair.TokenType,
		"expires_at":    pair.ExpiresAt,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, codeValidation, "refresh_token is required")
		return
	}

	pair, err := h.Tokens.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, map[string]any{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    pair.TokenType,
		"expires_at":    pair.ExpiresAt,
	})
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Logout revokes the presented access token and, when the client sends it
// along, the matching refresh token. Revocation is unconditional; logging
// out with an already-dead token still succeeds.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	raw, ok := bearerToken(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
		return
	}

	if err := h.Tokens.Revoke(r.Context(), raw); err != nil {
		writeServiceError(w, r, err)
		return
	}

	var body logoutRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.RefreshToken != "" {
		if err := h.Tokens.Revoke(r.Context(), body.RefreshToken); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	httpx.WriteSuccess(w, http.StatusOK, nil)
}

type registerRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
		return
	}

	user, err := h.Users.Register(r.Context(), service.RegisterInput{
		Username:    body.Username,
		Password:    body.Password,
		DisplayName: body.DisplayName,
		Email:       body.Email,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusCreated, map[string]any{
		"user": map[string]any{
			"id":           user.ID,
			"username":     user.Username,
			"display_name": user.DisplayName,
			"email":        user.Email,
		},
	})
}
