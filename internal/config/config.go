// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"escrowpay/pkg/db"
)

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	ServerPort string
	DB         db.Config

	// FeeRate is the platform's cut of each release, e.g. 0.10 for 10%.
	FeeRate decimal.Decimal
	// OpeningBalance seeds newly provisioned wallets. Production default is
	// zero; a non-zero value is a development/test convenience only.
	OpeningBalance decimal.Decimal
	// PlatformUserID is the wallet that receives release fees. Zero disables
	// the credit (the fee is still recorded on the release ledger entry).
	PlatformUserID int64
	Currency       string

	StripeAPIKey     string
	StripeSuccessURL string
	StripeCancelURL  string
}

// LoadConfig loads configuration from the environment, preceded by a best-
// effort .env load for local development.
func LoadConfig() (*AppConfig, error) {
	_ = godotenv.Load()

	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}

	feeRate, err := getEnvDecimal("PLATFORM_FEE_RATE", "0.10")
	if err != nil {
		return nil, err
	}
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("PLATFORM_FEE_RATE must be in [0, 1), got %s", feeRate)
	}

	openingBalance, err := getEnvDecimal("OPENING_BALANCE", "0")
	if err != nil {
		return nil, err
	}
	if openingBalance.IsNegative() {
		return nil, fmt.Errorf("OPENING_BALANCE must not be negative, got %s", openingBalance)
	}

	platformUserID, err := getEnvInt64("PLATFORM_USER_ID", 0)
	if err != nil {
		return nil, err
	}

	return &AppConfig{
		ServerPort: getEnvString("SERVER_PORT", "8080"),
		DB: db.Config{
			Host:     getEnvString("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnvString("DB_USER", "user"),
			Password: getEnvString("DB_PASSWORD", "password"),
			DBName:   getEnvString("DB_NAME", "escrowpay"),
			SSLMode:  getEnvString("DB_SSLMODE", "disable"),
		},
		FeeRate:          feeRate,
		OpeningBalance:   openingBalance,
		PlatformUserID:   platformUserID,
		Currency:         getEnvString("CURRENCY", "usd"),
		StripeAPIKey:     os.Getenv("STRIPE_API_KEY"),
		StripeSuccessURL: getEnvString("STRIPE_SUCCESS_URL", "https://example.com/payment/success"),
		StripeCancelURL:  getEnvString("STRIPE_CANCEL_URL", "https://example.com/payment/cancel"),
	}, nil
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDecimal(key, fallback string) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		v = fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
