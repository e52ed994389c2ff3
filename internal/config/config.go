package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	DBSource string
	Port     string
	Env      string

	GatewayBaseURL   string
	GatewayKeyID     string
	GatewayKeySecret string
	GatewayTimeout   time.Duration

	// Commission rates in percent.
	ReferralRate      decimal.Decimal
	PlatformRate      decimal.Decimal
	SellerDefaultRate decimal.Decimal

	// Wallet user credited with platform commissions.
	PlatformUserID string
}

func Load() (*Config, error) {
	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	gatewayURL := os.Getenv("GATEWAY_BASE_URL")
	if gatewayURL == "" {
		gatewayURL = "https://api.razorpay.com"
	}

	platformUser := os.Getenv("PLATFORM_USER_ID")
	if platformUser == "" {
		return nil, fmt.Errorf("PLATFORM_USER_ID environment variable is required")
	}

	timeout := 10 * time.Second
	if v := os.Getenv("GATEWAY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid GATEWAY_TIMEOUT: %w", err)
		}
		timeout = d
	}

	referral, err := rate("REFERRAL_RATE_PCT", "20")
	if err != nil {
		return nil, err
	}
	platform, err := rate("PLATFORM_RATE_PCT", "10")
	if err != nil {
		return nil, err
	}
	seller, err := rate("SELLER_DEFAULT_RATE_PCT", "15")
	if err != nil {
		return nil, err
	}

	return &Config{
		DBSource:          dbSource,
		Port:              port,
		Env:               env,
		GatewayBaseURL:    gatewayURL,
		GatewayKeyID:      os.Getenv("GATEWAY_KEY_ID"),
		GatewayKeySecret:  os.Getenv("GATEWAY_KEY_SECRET"),
		GatewayTimeout:    timeout,
		ReferralRate:      referral,
		PlatformRate:      platform,
		SellerDefaultRate: seller,
		PlatformUserID:    platformUser,
	}, nil
}

func rate(envVar, fallback string) (decimal.Decimal, error) {
	v := os.Getenv(envVar)
	if v == "" {
		v = fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", envVar, err)
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, fmt.Errorf("%s must be between 0 and 100", envVar)
	}
	return d, nil
}
