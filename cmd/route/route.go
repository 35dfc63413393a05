package route

import (
	"log/slog"
	"net/http"

	"authsvc/internal/handler"
	"authsvc/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	AllowedOrigins []string
	Logger         *slog.Logger
}

func SetupRoute(auth *handler.AuthHandler, authn *middleware.Authenticator, opts Options) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", handler.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	//email + password
	r.HandleFunc("/auth/signup", auth.Signup).Methods(http.MethodPost)
	r.HandleFunc("/auth/signin", auth.Signin).Methods(http.MethodPost)

	//google login
	r.HandleFunc("/auth/google", auth.GoogleLogin).Methods(http.MethodGet)
	r.HandleFunc("/auth/callback", auth.GoogleCallback).Methods(http.MethodGet)

	secure := r.PathPrefix("/users").Subrouter()
	secure.Use(authn.Authenticate)

	secure.HandleFunc("/me", auth.GetProfile).Methods(http.MethodGet)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// outside mux so preflight requests reach cors before route matching
	return chi.Chain(
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		middleware.Logging(logger),
		chimiddleware.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
		middleware.Metrics(r),
	).Handler(r)
}
