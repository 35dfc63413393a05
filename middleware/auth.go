package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"authsvc/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type key int

const UserContextKey key = 0

// sessionCookieNames are checked in order when no bearer header is sent.
var sessionCookieNames = []string{utils.SessionCookieName, "token", "accessToken", "access_token"}

var authAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authsvc_auth_attempts_total",
		Help: "Request authentication attempts by transport and outcome",
	},
	[]string{"method", "result"},
)

type authFailure struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	AuthMethod utils.AuthMethod `json:"authMethod,omitempty"`
}

type Authenticator struct {
	tokens *utils.TokenService
	logger *slog.Logger
}

func NewAuthenticator(tokens *utils.TokenService, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{tokens: tokens, logger: logger}
}

func IdentityFromContext(ctx context.Context) (*utils.Identity, bool) {
	identity, ok := ctx.Value(UserContextKey).(*utils.Identity)
	return identity, ok && identity != nil
}

// extractToken prefers the Authorization header. Once a Bearer prefix is
// present the cookies are not consulted, even if the bearer value is empty.
func extractToken(r *http.Request) (string, utils.AuthMethod) {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")), utils.MethodJWT
	}

	header := r.Header.Get("Cookie")
	if header == "" {
		return "", ""
	}
	cookies := utils.ParseCookies(header)
	for _, name := range sessionCookieNames {
		if v := cookies[name]; v != "" {
			return v, utils.MethodSession
		}
	}
	return "", ""
}

func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, method := extractToken(r)
		if token == "" {
			a.reject(w, r, http.StatusUnauthorized, "Access denied. No authentication token provided.", method, "missing")
			return
		}

		if !a.tokens.Configured() {
			a.logger.ErrorContext(r.Context(), "jwt secret not configured")
			a.reject(w, r, http.StatusInternalServerError, "Server configuration error", method, "misconfigured")
			return
		}

		identity, err := a.tokens.Verify(token)
		if err != nil {
			message, result := "Authentication failed", "invalid"
			switch {
			case errors.Is(err, utils.ErrTokenExpired):
				message, result = "Token has expired", "expired"
			case errors.Is(err, utils.ErrTokenMalformed):
				message, result = "Invalid token", "malformed"
			case errors.Is(err, utils.ErrTokenNotActive):
				message, result = "Token not active yet", "not_active"
			}
			a.logger.InfoContext(r.Context(), "token rejected",
				slog.String("auth_method", string(method)),
				slog.Any("error", err),
			)
			a.reject(w, r, http.StatusUnauthorized, message, method, result)
			return
		}

		identity.Method = method
		authAttemptsTotal.WithLabelValues(string(method), "ok").Inc()
		recordAuth(r.Context(), identity.UserID, method, "ok")
		a.logger.DebugContext(r.Context(), "authenticated",
			slog.String("user_id", identity.UserID),
			slog.String("auth_method", string(method)),
		)

		ctx := context.WithValue(r.Context(), UserContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireJWT only accepts a bearer Authorization header.
func (a *Authenticator) RequireJWT(next http.Handler) http.Handler {
	authenticated := a.Authenticate(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			a.reject(w, r, http.StatusUnauthorized, "JWT token required in Authorization header", utils.MethodJWT, "missing")
			return
		}
		authenticated.ServeHTTP(w, r)
	})
}

// RequireSession only accepts requests carrying a Cookie header.
func (a *Authenticator) RequireSession(next http.Handler) http.Handler {
	authenticated := a.Authenticate(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") == "" {
			a.reject(w, r, http.StatusUnauthorized, "Session cookie required", utils.MethodSession, "missing")
			return
		}
		authenticated.ServeHTTP(w, r)
	})
}

func (a *Authenticator) reject(w http.ResponseWriter, r *http.Request, status int, message string, method utils.AuthMethod, result string) {
	label := string(method)
	if label == "" {
		label = "none"
	}
	authAttemptsTotal.WithLabelValues(label, result).Inc()
	recordAuth(r.Context(), "", method, result)
	a.logger.DebugContext(r.Context(), "authentication failed",
		slog.String("path", r.URL.Path),
		slog.String("reason", result),
	)
	utils.WriteJSON(w, status, authFailure{
		Success:    false,
		Message:    message,
		AuthMethod: method,
	})
}
