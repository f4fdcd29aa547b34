package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/lorrc/field-dispatch-bot/internal/auth"
	apperrors "github.com/lorrc/field-dispatch-bot/internal/core/errors"
)

// AuthHandler issues ops API tokens. There is a single operator account,
// configured through the environment.
type AuthHandler struct {
	adminUser    string
	passwordHash string
	tokenManager *auth.TokenManager
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewAuthHandler(adminUser, passwordHash string, tm *auth.TokenManager, eh *ErrorHandler, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		adminUser:    adminUser,
		passwordHash: passwordHash,
		tokenManager: tm,
		errorHandler: eh,
		logger:       logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid request body"))
		return
	}

	if req.Username != h.adminUser || h.passwordHash == "" {
		h.errorHandler.Handle(w, r, apperrors.ErrInvalidCredentials)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.passwordHash), []byte(req.Password)); err != nil {
		h.errorHandler.Handle(w, r, apperrors.ErrInvalidCredentials)
		return
	}

	token, err := h.tokenManager.GenerateToken(req.Username)
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewInternalError(err))
		return
	}

	h.logger.Info("ops login", "user", req.Username)
	WriteJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "Bearer"})
}
