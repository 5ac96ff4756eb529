// Package config reads the library-desk settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Config holds the settings of the CLI and the library service.
type Config struct {
	DBPath   string `env:"LIBRARY_DB_PATH" envDefault:"library.db"`
	LogLevel string `env:"LIBRARY_LOG_LEVEL" envDefault:"info"`

	BcryptCost      int             `env:"LIBRARY_BCRYPT_COST" envDefault:"10"`
	FinePerDay      decimal.Decimal `env:"LIBRARY_FINE_PER_DAY" envDefault:"1.00"`
	UnpaidFineLimit decimal.Decimal `env:"LIBRARY_UNPAID_FINE_LIMIT" envDefault:"10.00"`

	AdminUsername string `env:"LIBRARY_ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"LIBRARY_ADMIN_PASSWORD" envDefault:"admin123"`
	AdminEmail    string `env:"LIBRARY_ADMIN_EMAIL" envDefault:"admin@library.local"`
}

// Load reads envFile (a missing file is fine) and then the process
// environment. Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that the library cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("LIBRARY_DB_PATH is empty"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LIBRARY_LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("LIBRARY_BCRYPT_COST %d is outside [%d, %d]", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost))
	}
	if !c.FinePerDay.IsPositive() {
		errs = append(errs, fmt.Errorf("LIBRARY_FINE_PER_DAY must be positive, got %s", c.FinePerDay))
	}
	if c.UnpaidFineLimit.IsNegative() {
		errs = append(errs, fmt.Errorf("LIBRARY_UNPAID_FINE_LIMIT cannot be negative, got %s", c.UnpaidFineLimit))
	}
	if strings.TrimSpace(c.AdminUsername) == "" {
		errs = append(errs, errors.New("LIBRARY_ADMIN_USERNAME is empty"))
	}
	if len(c.AdminPassword) < 6 {
		errs = append(errs, errors.New("LIBRARY_ADMIN_PASSWORD must be at least 6 characters"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
