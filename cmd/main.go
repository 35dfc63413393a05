package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"authsvc/cmd/config"
	"authsvc/cmd/database"
	"authsvc/cmd/route"
	"authsvc/internal/handler"
	"authsvc/internal/oauth"
	"authsvc/internal/repository"
	"authsvc/internal/usecase"
	"authsvc/middleware"
	"authsvc/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set, token issuance and protected routes will fail")
	}

	db, err := database.Connect(database.Config{
		Driver:     cfg.DBDriver,
		DSN:        cfg.DSN(),
		LogQueries: cfg.SlogLevel() == slog.LevelDebug,
	})
	if err != nil {
		return err
	}
	defer database.Close(db)
	logger.Info("connected to database", slog.String("driver", cfg.DBDriver))

	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
		logger.Info("database migrations completed")
	}

	var states repository.StateStore
	if cfg.RedisURL != "" {
		client, err := database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		states = repository.NewRedisStateStore(client)
		logger.Info("oauth state store: redis")
	} else {
		states = repository.NewMemoryStateStore()
		logger.Info("oauth state store: memory")
	}

	var mailer utils.Mailer = utils.LogMailer{Logger: logger}
	if cfg.SMTPHost != "" {
		mailer = utils.NewSMTPMailer(utils.MailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	}

	//google provider config
	var googleOpts []oauth.Option
	if cfg.GoogleVerifyIDToken && cfg.GoogleClientID != "" {
		verifier, err := oauth.NewGoogleVerifier(ctx, cfg.GoogleClientID)
		if err != nil {
			return err
		}
		googleOpts = append(googleOpts, oauth.WithVerifier(verifier))
	}
	google := oauth.NewGoogleClient(oauth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	}, googleOpts...)

	tokens := utils.NewTokenService(cfg.JWTSecret)

	//auth
	authRepo := repository.NewAuthRepository(db)
	authUsecase := usecase.NewAuthUsecase(authRepo, states, tokens, google, mailer, logger)
	authHandler := handler.NewAuthHandler(authUsecase, handler.Options{
		FrontendRedirectURL: cfg.FrontendRedirectURL,
		SecureCookies:       cfg.IsProduction(),
	}, logger)
	authn := middleware.NewAuthenticator(tokens, logger)

	r := route.SetupRoute(authHandler, authn, route.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", srv.Addr), slog.String("env", cfg.NodeEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped gracefully")
	return nil
}
