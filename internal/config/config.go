// Package config loads server settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mmynk/mealbox/internal/models"
)

// Cart store backends.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds the configuration for the server.
type Config struct {
	Port          int    `yaml:"port"`
	AllowedOrigin string `yaml:"allowed_origin"`

	BackendURL     string        `yaml:"backend_url"`
	BackendTimeout time.Duration `yaml:"backend_timeout"`

	PaymentURL         string `yaml:"payment_url"`
	PaymentAPIKey      string `yaml:"payment_api_key"`
	CheckoutSuccessURL string `yaml:"checkout_success_url"`
	CheckoutCancelURL  string `yaml:"checkout_cancel_url"`

	AddressURL      string        `yaml:"address_url"`
	AddressAPIKey   string        `yaml:"address_api_key"`
	AddressRPS      float64       `yaml:"address_rps"`
	AddressDebounce time.Duration `yaml:"address_debounce"`

	// SessionIdleTimeout ends in-memory sessions nobody has used for this long.
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`

	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`

	// CartStore is one of sqlite, redis or memory.
	CartStore     string        `yaml:"cart_store"`
	DBPath        string        `yaml:"db_path"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	CartTTL       time.Duration `yaml:"cart_ttl"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// RestrictedRoutes cannot order yet; RemappedRoutes see Monday/Thursday.
	RestrictedRoutes []int `yaml:"restricted_routes"`
	RemappedRoutes   []int `yaml:"remapped_routes"`

	// DoubleProteinSurchargeText is the decimal charge per double-protein
	// slot, e.g. "2.00". Parsed into DoubleProteinSurcharge on load.
	DoubleProteinSurchargeText string       `yaml:"double_protein_surcharge"`
	DoubleProteinSurcharge     models.Money `yaml:"-"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Port:                       8080,
		AllowedOrigin:              "*",
		BackendTimeout:             10 * time.Second,
		AddressRPS:                 10,
		AddressDebounce:            300 * time.Millisecond,
		SessionIdleTimeout:         2 * time.Hour,
		CartStore:                  StoreSQLite,
		DBPath:                     "./data/mealbox.db",
		CartTTL:                    30 * 24 * time.Hour,
		LogLevel:                   "info",
		LogFormat:                  "text",
		RestrictedRoutes:           []int{10, 12},
		DoubleProteinSurchargeText: "0",
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.AllowedOrigin, "ALLOWED_ORIGIN")
	setString(&c.BackendURL, "BACKEND_URL")
	setString(&c.PaymentURL, "PAYMENT_URL")
	setString(&c.PaymentAPIKey, "PAYMENT_API_KEY")
	setString(&c.CheckoutSuccessURL, "CHECKOUT_SUCCESS_URL")
	setString(&c.CheckoutCancelURL, "CHECKOUT_CANCEL_URL")
	setString(&c.AddressURL, "ADDRESS_URL")
	setString(&c.AddressAPIKey, "ADDRESS_API_KEY")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.JWTIssuer, "JWT_ISSUER")
	setString(&c.CartStore, "CART_STORE")
	setString(&c.DBPath, "DB_PATH")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.RedisPassword, "REDIS_PASSWORD")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.DoubleProteinSurchargeText, "DOUBLE_PROTEIN_SURCHARGE")

	if err := setInt(&c.Port, "PORT"); err != nil {
		return err
	}
	if err := setInt(&c.RedisDB, "REDIS_DB"); err != nil {
		return err
	}
	if v := os.Getenv("ADDRESS_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid ADDRESS_RPS %q: %w", v, err)
		}
		c.AddressRPS = rps
	}
	for key, dst := range map[string]*time.Duration{
		"BACKEND_TIMEOUT":      &c.BackendTimeout,
		"ADDRESS_DEBOUNCE":     &c.AddressDebounce,
		"CART_TTL":             &c.CartTTL,
		"SESSION_IDLE_TIMEOUT": &c.SessionIdleTimeout,
	} {
		if err := setDuration(dst, key); err != nil {
			return err
		}
	}
	for key, dst := range map[string]*[]int{
		"RESTRICTED_ROUTES": &c.RestrictedRoutes,
		"REMAPPED_ROUTES":   &c.RemappedRoutes,
	} {
		if err := setIntList(dst, key); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks required settings and parses derived values.
func (c *Config) Validate() error {
	required := []struct{ key, value string }{
		{"BACKEND_URL", c.BackendURL},
		{"PAYMENT_URL", c.PaymentURL},
		{"PAYMENT_API_KEY", c.PaymentAPIKey},
		{"ADDRESS_URL", c.AddressURL},
		{"JWT_SECRET", c.JWTSecret},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s environment variable not set", r.key)
		}
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.CartStore {
	case StoreSQLite, StoreMemory:
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when CART_STORE is redis")
		}
	default:
		return fmt.Errorf("unknown cart store %q (want sqlite, redis or memory)", c.CartStore)
	}
	if c.AddressRPS <= 0 {
		return fmt.Errorf("ADDRESS_RPS must be positive, got %v", c.AddressRPS)
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be positive, got %s", c.SessionIdleTimeout)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q (want text or json)", c.LogFormat)
	}

	surcharge, err := models.ParseMoney(strings.TrimSpace(c.DoubleProteinSurchargeText))
	if err != nil {
		return fmt.Errorf("invalid double protein surcharge: %w", err)
	}
	if surcharge < 0 {
		return fmt.Errorf("double protein surcharge must not be negative")
	}
	c.DoubleProteinSurcharge = surcharge
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

// setIntList parses a comma-separated list such as "10,12".
func setIntList(dst *[]int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("invalid %s entry %q: %w", key, part, err)
		}
		out = append(out, n)
	}
	*dst = out
	return nil
}
