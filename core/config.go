package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	EnvironmentSandbox    = "sandbox"
	EnvironmentProduction = "production"
)

const DefaultMetadataTTL = time.Hour

type PayPalConfig struct {
	ClientID     string        `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret string        `koanf:"client_secret" mapstructure:"client_secret"`
	Environment  string        `koanf:"environment" mapstructure:"environment"`
	BrandName    string        `koanf:"brand_name" mapstructure:"brand_name"`
	Currency     string        `koanf:"currency" mapstructure:"currency"`
	TokenTTL     time.Duration `koanf:"token_ttl" mapstructure:"token_ttl"`
}

// Enabled reports whether the account carries credentials; an adapter
// is only built for enabled accounts.
func (c PayPalConfig) Enabled() bool {
	return strings.TrimSpace(c.ClientID) != "" && strings.TrimSpace(c.ClientSecret) != ""
}

type CoinbaseConfig struct {
	APIKey        string `koanf:"api_key" mapstructure:"api_key"`
	WebhookSecret string `koanf:"webhook_secret" mapstructure:"webhook_secret"`
	BaseURL       string `koanf:"base_url" mapstructure:"base_url"`
	Currency      string `koanf:"currency" mapstructure:"currency"`
}

func (c CoinbaseConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	MetadataTTL time.Duration  `koanf:"metadata_ttl" mapstructure:"metadata_ttl"`
	PayPal      PayPalConfig   `koanf:"paypal" mapstructure:"paypal"`
	Coinbase    CoinbaseConfig `koanf:"coinbase" mapstructure:"coinbase"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "payments",
		MetadataTTL: DefaultMetadataTTL,
		PayPal: PayPalConfig{
			Environment: EnvironmentSandbox,
			Currency:    "EUR",
		},
		Coinbase: CoinbaseConfig{
			Currency: "EUR",
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.MetadataTTL < 0 {
		return fmt.Errorf("core: metadata_ttl must not be negative")
	}
	env := strings.TrimSpace(strings.ToLower(c.PayPal.Environment))
	if env != "" && env != EnvironmentSandbox && env != EnvironmentProduction {
		return fmt.Errorf("core: paypal environment %q is invalid", c.PayPal.Environment)
	}
	return nil
}
