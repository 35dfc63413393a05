package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"authsvc/utils"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type accessLogKey struct{}

// accessLogFields is filled in by handlers further down the chain and read by
// Logging once the request has been served.
type accessLogFields struct {
	mu         sync.Mutex
	userID     string
	authMethod utils.AuthMethod
	authResult string
}

func recordAuth(ctx context.Context, userID string, method utils.AuthMethod, result string) {
	fields, ok := ctx.Value(accessLogKey{}).(*accessLogFields)
	if !ok {
		return
	}
	fields.mu.Lock()
	defer fields.mu.Unlock()
	fields.userID = userID
	fields.authMethod = method
	fields.authResult = result
}

func (f *accessLogFields) attrs() []slog.Attr {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.authResult == "" {
		return nil
	}
	attrs := []slog.Attr{slog.String("auth_result", f.authResult)}
	if f.authMethod != "" {
		attrs = append(attrs, slog.String("auth_method", string(f.authMethod)))
	}
	if f.userID != "" {
		attrs = append(attrs, slog.String("user_id", f.userID))
	}
	return attrs
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rw *statusRecorder) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Logging writes one access log line per request. Requests that went through
// the Authenticator also carry the auth outcome and, on success, the user id.
func Logging(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			fields := &accessLogFields{}

			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), accessLogKey{}, fields)))

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", chimiddleware.GetReqID(r.Context())),
				slog.String("remote_addr", r.RemoteAddr),
			}
			attrs = append(attrs, fields.attrs()...)

			level := slog.LevelInfo
			if rec.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(r.Context(), level, "request", attrs...)
		})
	}
}
