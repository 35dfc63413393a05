package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"authsvc/dto"
	"authsvc/internal/oauth"
	"authsvc/internal/usecase"
	"authsvc/middleware"
	"authsvc/utils"

	"github.com/go-playground/validator/v10"
)

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

type Options struct {
	// FrontendRedirectURL receives the browser after a google login.
	FrontendRedirectURL string
	// SecureCookies marks auth cookies Secure (production).
	SecureCookies bool
}

type AuthHandler struct {
	authUsecase usecase.AuthUsecase
	validate    *validator.Validate
	opts        Options
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase usecase.AuthUsecase, opts Options, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	validate := validator.New()
	_ = validate.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxPasswordBytes
	})

	return &AuthHandler{
		authUsecase: authUsecase,
		validate:    validate,
		opts:        opts,
		logger:      logger,
	}
}

func (h *AuthHandler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg, slog.Any("error", err))
	utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
}

// email + password
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var input dto.Signup
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.validate.Struct(&input); err != nil {
		utils.WriteError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	_, err := h.authUsecase.Signup(r.Context(), &input)
	if err != nil {
		if errors.Is(err, usecase.ErrUserExists) {
			utils.WriteError(w, http.StatusConflict, "Account with this email already exists")
			return
		}
		h.internalError(w, r, "signup failed", err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, map[string]string{
		"message": "Signup Successful",
	})
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var input dto.Signin
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.validate.Struct(&input); err != nil {
		utils.WriteError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	response, err := h.authUsecase.Signin(r.Context(), &input)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUserNotFound):
			utils.WriteError(w, http.StatusNotFound, "User does not exist")
		case errors.Is(err, usecase.ErrInvalidCredentials):
			utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		default:
			h.internalError(w, r, "signin failed", err)
		}
		return
	}

	utils.WriteJSON(w, http.StatusOK, response)
}

// google auth
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, url, err := h.authUsecase.GoogleLoginURL(r.Context())
	if err != nil {
		if errors.Is(err, oauth.ErrClientNotConfigured) {
			utils.WriteError(w, http.StatusInternalServerError, "Missing CLIENT_ID")
			return
		}
		h.internalError(w, r, "google login failed", err)
		return
	}

	utils.SetStateCookie(w, state, usecase.StateTTL, h.opts.SecureCookies)
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		utils.WriteError(w, http.StatusBadRequest, "No code provided")
		return
	}

	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(utils.StateCookieName)
	if state == "" || err != nil || cookie.Value != state {
		utils.WriteError(w, http.StatusBadRequest, "Invalid state")
		return
	}

	token, err := h.authUsecase.GoogleCallback(r.Context(), code, state)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidState) {
			utils.WriteError(w, http.StatusBadRequest, "Invalid state")
			return
		}
		h.logger.ErrorContext(r.Context(), "google callback failed", slog.Any("error", err))
		utils.WriteError(w, http.StatusInternalServerError, "Authentication failed")
		return
	}

	utils.ClearStateCookie(w, h.opts.SecureCookies)
	utils.SetSessionCookie(w, token, utils.OAuthSessionTTL, h.opts.SecureCookies)
	http.Redirect(w, r, h.opts.FrontendRedirectURL, http.StatusFound)
}

func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	profile, err := h.authUsecase.Profile(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			utils.WriteError(w, http.StatusNotFound, "User not found")
			return
		}
		h.internalError(w, r, "get profile failed", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, profile)
}

func Health(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid body"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "invalid email"
	case "bcryptlen":
		return fe.Field() + " must be at most 72 bytes"
	default:
		return fe.Field() + " is invalid"
	}
}
