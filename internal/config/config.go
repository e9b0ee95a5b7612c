package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Tally"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"tally"`
		Migrate  bool   `envconfig:"DB_MIGRATE" default:"true"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		// MaxUploadBytes bounds multipart statement uploads.
		MaxUploadBytes int64 `envconfig:"SERVER_MAX_UPLOAD_BYTES" default:"10485760"`
	}

	Auth struct {
		JWTSecret string `envconfig:"AUTH_JWT_SECRET"`
	}

	CORS struct {
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	}

	Import struct {
		CardProvider    string `envconfig:"IMPORT_CARD_PROVIDER" default:"Revolut"`
		BankProvider    string `envconfig:"IMPORT_BANK_PROVIDER" default:"Bank"`
		CardMarker      string `envconfig:"IMPORT_CARD_TRANSFER_MARKER" default:"pocket"`
		BankMarker      string `envconfig:"IMPORT_BANK_TRANSFER_MARKER" default:""`
		LinkConcurrency int    `envconfig:"IMPORT_LINK_CONCURRENCY" default:"4"`
	}

	Category struct {
		DefaultExpense string `envconfig:"CATEGORY_DEFAULT_EXPENSE" default:"other-expense"`
		DefaultIncome  string `envconfig:"CATEGORY_DEFAULT_INCOME" default:"other-income"`
		TransferSlug   string `envconfig:"CATEGORY_TRANSFER_SLUG" default:"transfer"`
		RulesPath      string `envconfig:"CATEGORY_RULES_PATH"`
	}

	// TUI runs as a single local user.
	TUI struct {
		UserID string `envconfig:"TUI_USER_ID"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
