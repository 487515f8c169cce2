// Package config loads server configuration from an optional YAML file
// with environment-variable overrides. Environment always wins, so a
// deployment can ship a config file and still override secrets per host.
//
// Recognized settings:
//
//	ADMIN_IDENTITY    chat ID of the sole administrator (0 disables admin commands)
//	CASHBACK_RATE     accrual rate, default 0.03
//	MAX_REDEEM_RATIO  redemption cap ratio, default 0.5
//	DB_PATH           SQLite database path, default cashback.db
//	PORT              HTTP port, default 8080
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	AdminID        int64   `yaml:"admin_identity"`
	CashbackRate   float64 `yaml:"cashback_rate"`
	MaxRedeemRatio float64 `yaml:"max_redeem_ratio"`
	DBPath         string  `yaml:"db_path"`
	Port           int     `yaml:"port"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		CashbackRate:   0.03,
		MaxRedeemRatio: 0.5,
		DBPath:         "cashback.db",
		Port:           8080,
	}
}

// Load reads the YAML file at path (skipped when path is empty or the
// file does not exist), applies environment overrides, and validates.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ADMIN_IDENTITY"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("ADMIN_IDENTITY: %w", err)
		}
		c.AdminID = id
	}
	if v := os.Getenv("CASHBACK_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CASHBACK_RATE: %w", err)
		}
		c.CashbackRate = rate
	}
	if v := os.Getenv("MAX_REDEEM_RATIO"); v != "" {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MAX_REDEEM_RATIO: %w", err)
		}
		c.MaxRedeemRatio = ratio
	}
	c.DBPath = getenv("DB_PATH", c.DBPath)
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = port
	}
	return nil
}

// Validate checks rate bounds. Rates must be in (0, 1].
func (c Config) Validate() error {
	if c.CashbackRate <= 0 || c.CashbackRate > 1 {
		return fmt.Errorf("cashback_rate must be in (0, 1], got %v", c.CashbackRate)
	}
	if c.MaxRedeemRatio <= 0 || c.MaxRedeemRatio > 1 {
		return fmt.Errorf("max_redeem_ratio must be in (0, 1], got %v", c.MaxRedeemRatio)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in (0, 65535], got %d", c.Port)
	}
	return nil
}

// CashbackRateDecimal returns the accrual rate for the ledger engine.
func (c Config) CashbackRateDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.CashbackRate)
}

// MaxRedeemRatioDecimal returns the cap ratio for the ledger engine.
func (c Config) MaxRedeemRatioDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxRedeemRatio)
}

// getenv retrieves the environment variable named by key, returning
// fallback when unset or empty.
func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
