// Package config loads process settings from an optional config file, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	Server struct {
		Port           string        `mapstructure:"port"`
		AllowedOrigins []string      `mapstructure:"allowed_origins"`
		ReadTimeout    time.Duration `mapstructure:"read_timeout"`
		WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"server"`
	DB struct {
		Driver         string        `mapstructure:"driver"`
		Host           string        `mapstructure:"host"`
		Port           string        `mapstructure:"port"`
		User           string        `mapstructure:"user"`
		Password       string        `mapstructure:"password"`
		DBName         string        `mapstructure:"name"`
		SSLMode        string        `mapstructure:"ssl_mode"`
		MaxOpenConns   int           `mapstructure:"max_open_conns"`
		MaxIdleConns   int           `mapstructure:"max_idle_conns"`
		ConnLifetime   time.Duration `mapstructure:"conn_lifetime"`
		ConnectRetries int           `mapstructure:"connect_retries"`
		MongoURI       string        `mapstructure:"mongo_uri"`
		MongoDatabase  string        `mapstructure:"mongo_database"`
	} `mapstructure:"db"`
	GPT struct {
		APIKey         string        `mapstructure:"api_key"`
		Model          string        `mapstructure:"model"`
		BaseURL        string        `mapstructure:"base_url"`
		RequestTimeout time.Duration `mapstructure:"request_timeout"`
	} `mapstructure:"gpt"`
	Auth struct {
		JWTSecret string        `mapstructure:"jwt_secret"`
		JWTIssuer string        `mapstructure:"jwt_issuer"`
		TokenTTL  time.Duration `mapstructure:"token_ttl"`
	} `mapstructure:"auth"`
	Telegram struct {
		Token   string `mapstructure:"token"`
		Enabled bool   `mapstructure:"enabled"`
	} `mapstructure:"telegram"`
	Stripe struct {
		SecretKey  string `mapstructure:"secret_key"`
		PublicKey  string `mapstructure:"public_key"`
		WebhookKey string `mapstructure:"webhook_key"`
		ProductID  string `mapstructure:"product_id"`
		PriceID    string `mapstructure:"price_id"`
		SuccessURL string `mapstructure:"success_url"`
		CancelURL  string `mapstructure:"cancel_url"`
	} `mapstructure:"stripe"`
	Billing struct {
		RequirePremium bool `mapstructure:"require_premium"`
	} `mapstructure:"billing"`
	Log struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
	} `mapstructure:"log"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

var defaults = map[string]interface{}{
	"server.port":            "8080",
	"server.allowed_origins": []string{"*"},
	"server.read_timeout":    10 * time.Second,
	"server.write_timeout":   120 * time.Second,

	"db.driver":          DriverPostgres,
	"db.host":            "localhost",
	"db.port":            "5432",
	"db.user":            "postgres",
	"db.password":        "postgres",
	"db.name":            "fitcoach",
	"db.ssl_mode":        "disable",
	"db.max_open_conns":  20,
	"db.max_idle_conns":  10,
	"db.conn_lifetime":   5 * time.Minute,
	"db.connect_retries": 5,
	"db.mongo_uri":       "mongodb://localhost:27017",
	"db.mongo_database":  "fitcoach",

	"gpt.api_key":         "",
	"gpt.model":           "gpt-4o-mini",
	"gpt.base_url":        "",
	"gpt.request_timeout": 90 * time.Second,

	"auth.jwt_secret": "",
	"auth.jwt_issuer": "fitcoach",
	"auth.token_ttl":  7 * 24 * time.Hour,

	"telegram.token":   "",
	"telegram.enabled": false,

	"stripe.secret_key":  "",
	"stripe.public_key":  "",
	"stripe.webhook_key": "",
	"stripe.product_id":  "",
	"stripe.price_id":    "",
	"stripe.success_url": "http://localhost:3000/billing/success",
	"stripe.cancel_url":  "http://localhost:3000/billing/cancel",

	"billing.require_premium": false,

	"log.level":       "info",
	"log.development": false,

	"shutdown_timeout": 10 * time.Second,
}

// Load reads config.yaml (optional), then .env, then the environment.
// Environment variables win: DB_DRIVER overrides db.driver.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.fitcoach")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// File values of the form ${ENV_VAR} are resolved from the environment.
	for _, key := range v.AllKeys() {
		value, ok := v.Get(key).(string)
		if !ok || !strings.HasPrefix(value, "${") || !strings.HasSuffix(value, "}") {
			continue
		}
		envVar := strings.TrimSuffix(strings.TrimPrefix(value, "${"), "}")
		v.Set(key, os.Getenv(envVar))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// BillingEnabled reports whether Stripe checkout can be offered.
func (c *Config) BillingEnabled() bool {
	return c.Stripe.SecretKey != ""
}

// Validate rejects configurations the process cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.GPT.APIKey == "" {
		errs = append(errs, errors.New("GPT API key is not configured"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT secret is not configured"))
	}
	switch c.DB.Driver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown DB driver %q", c.DB.Driver))
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram bot is enabled but no token is configured"))
	}
	if c.BillingEnabled() || c.Billing.RequirePremium {
		if c.Stripe.SecretKey == "" || c.Stripe.WebhookKey == "" || c.Stripe.PriceID == "" {
			errs = append(errs, errors.New("stripe configuration is incomplete"))
		}
	}
	return errors.Join(errs...)
}
