package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	NodeEnv string `env:"NODE_ENV" envDefault:"development"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	JWTSecret string `env:"JWT_SECRET"`

	// google provider
	GoogleClientID      string `env:"CLIENT_ID"`
	GoogleClientSecret  string `env:"CLIENT_SECRET"`
	GoogleRedirectURL   string `env:"GOOGLE_REDIRECT_URL" envDefault:"http://localhost:8080/auth/callback"`
	GoogleVerifyIDToken bool   `env:"GOOGLE_VERIFY_ID_TOKEN" envDefault:"false"`
	FrontendRedirectURL string `env:"FRONTEND_REDIRECT_URL" envDefault:"http://localhost:1856/actions"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:1856,https://web.gregthe.ai"`

	DBDriver    string `env:"DB_DRIVER" envDefault:"mysql"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBUser      string `env:"DB_USER" envDefault:"root"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBHost      string `env:"DB_HOST" envDefault:"127.0.0.1"`
	DBPort      string `env:"DB_PORT" envDefault:"3306"`
	DBName      string `env:"DB_NAME" envDefault:"authsvc"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	RedisURL string `env:"REDIS_URL"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"no-reply@localhost"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	for i, origin := range cfg.CORSAllowedOrigins {
		cfg.CORSAllowedOrigins[i] = strings.TrimRight(strings.TrimSpace(origin), "/")
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.NodeEnv == "production"
}

// DSN returns DATABASE_URL, or a MySQL DSN assembled from the DB_* parts.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	if strings.EqualFold(c.DBDriver, "sqlite") {
		return "file::memory:?cache=shared"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func (c *Config) SlogLevel() slog.Level {
	if strings.EqualFold(c.LogLevel, "debug") {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
