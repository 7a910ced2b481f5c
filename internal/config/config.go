package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every setting of the portal API
type Config struct {
	Server struct {
		Port            string   `yaml:"port" env:"SERVER_PORT"`
		Mode            string   `yaml:"mode" env:"SERVER_MODE"`
		StoragePath     string   `yaml:"storage_path" env:"SERVER_STORAGE_PATH"`
		BaseURL         string   `yaml:"base_url" env:"SERVER_BASE_URL"`
		FrontendURL     string   `yaml:"frontend_url" env:"SERVER_FRONTEND_URL"`
		AllowedOrigins  []string `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS"`
		ShutdownTimeout string   `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
	} `yaml:"database"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Email struct {
		Provider       string `yaml:"provider" env:"EMAIL_PROVIDER"`
		FromName       string `yaml:"from_name" env:"EMAIL_FROM_NAME"`
		FromAddress    string `yaml:"from_address" env:"EMAIL_FROM_ADDRESS"`
		SMTPHost       string `yaml:"smtp_host" env:"SMTP_HOST"`
		SMTPPort       int    `yaml:"smtp_port" env:"SMTP_PORT"`
		SMTPUsername   string `yaml:"smtp_username" env:"SMTP_USERNAME"`
		SMTPPassword   string `yaml:"smtp_password" env:"SMTP_PASSWORD"`
		SMTPUseTLS     bool   `yaml:"smtp_use_tls" env:"SMTP_USE_TLS"`
		SendGridAPIKey string `yaml:"sendgrid_api_key" env:"SENDGRID_API_KEY"`
		Timeout        string `yaml:"timeout" env:"EMAIL_TIMEOUT"`
	} `yaml:"email"`

	Payment struct {
		Provider          string `yaml:"provider" env:"PAYMENT_PROVIDER"`
		Currency          string `yaml:"currency" env:"PAYMENT_CURRENCY"`
		Sandbox           bool   `yaml:"sandbox" env:"PAYMENT_SANDBOX"`
		PayPalClientID    string `yaml:"paypal_client_id" env:"PAYPAL_CLIENT_ID"`
		PayPalSecret      string `yaml:"paypal_secret" env:"PAYPAL_SECRET"`
		MidtransServerKey string `yaml:"midtrans_server_key" env:"MIDTRANS_SERVER_KEY"`
		ReturnURL         string `yaml:"return_url" env:"PAYMENT_RETURN_URL"`
		CancelURL         string `yaml:"cancel_url" env:"PAYMENT_CANCEL_URL"`
		Timeout           string `yaml:"timeout" env:"PAYMENT_TIMEOUT"`
		MaxAttempts       int    `yaml:"max_attempts" env:"PAYMENT_MAX_ATTEMPTS"`
		BackoffBase       string `yaml:"backoff_base" env:"PAYMENT_BACKOFF_BASE"`
	} `yaml:"payment"`

	Redis struct {
		Address  string `yaml:"address" env:"REDIS_ADDRESS"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`

	Presence struct {
		Window string `yaml:"window" env:"PRESENCE_WINDOW"`
	} `yaml:"presence"`

	Registration struct {
		GracePeriod       string `yaml:"grace_period" env:"REGISTRATION_GRACE_PERIOD"`
		UploadEditWindow  string `yaml:"upload_edit_window" env:"REGISTRATION_UPLOAD_EDIT_WINDOW"`
		MaxUploadSizeMB   int    `yaml:"max_upload_size_mb" env:"REGISTRATION_MAX_UPLOAD_SIZE_MB"`
		ResetTokenTimeout string `yaml:"reset_token_timeout" env:"REGISTRATION_RESET_TOKEN_TIMEOUT"`
	} `yaml:"registration"`

	Seed struct {
		Enabled       bool   `yaml:"enabled" env:"SEED_ENABLED"`
		AdminEmail    string `yaml:"admin_email" env:"SEED_ADMIN_EMAIL"`
		AdminPassword string `yaml:"admin_password" env:"SEED_ADMIN_PASSWORD"`
	} `yaml:"seed"`
}

// LoadConfig reads the YAML file (when present) over the defaults and applies
// environment overrides. A .env file next to the binary is honoured.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if err := loadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.StoragePath = "./uploads"
	config.Server.BaseURL = "http://localhost:8080"
	config.Server.FrontendURL = "http://localhost:3000"
	config.Server.AllowedOrigins = []string{"http://localhost:3000"}
	config.Server.ShutdownTimeout = "10s"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "studentportal"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsDir = ""

	config.JWT.AccessTokenExpiration = "24h"
	config.JWT.Issuer = "studentportal"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Email.Provider = "log"
	config.Email.FromName = "Student Portal"
	config.Email.FromAddress = "no-reply@studentportal.local"
	config.Email.SMTPPort = 587
	config.Email.Timeout = "10s"

	config.Payment.Provider = "paypal"
	config.Payment.Currency = "USD"
	config.Payment.Sandbox = true
	config.Payment.Timeout = "10s"
	config.Payment.MaxAttempts = 3
	config.Payment.BackoffBase = "200ms"

	config.Presence.Window = "5m"

	config.Registration.GracePeriod = "168h"
	config.Registration.UploadEditWindow = "168h"
	config.Registration.MaxUploadSizeMB = 10
	config.Registration.ResetTokenTimeout = "1h"

	config.Seed.Enabled = true
	config.Seed.AdminEmail = "admin@studentportal.local"
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	durations := map[string]string{
		"server.shutdown_timeout":          config.Server.ShutdownTimeout,
		"database.conn_max_lifetime":       config.Database.ConnMaxLifetime,
		"jwt.access_token_expiration":      config.JWT.AccessTokenExpiration,
		"email.timeout":                    config.Email.Timeout,
		"payment.timeout":                  config.Payment.Timeout,
		"payment.backoff_base":             config.Payment.BackoffBase,
		"presence.window":                  config.Presence.Window,
		"registration.grace_period":        config.Registration.GracePeriod,
		"registration.upload_edit_window":  config.Registration.UploadEditWindow,
		"registration.reset_token_timeout": config.Registration.ResetTokenTimeout,
	}
	for key, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
	}

	switch strings.ToLower(config.Email.Provider) {
	case "smtp", "sendgrid", "log":
	default:
		return fmt.Errorf("unsupported email provider %q", config.Email.Provider)
	}

	switch strings.ToLower(config.Payment.Provider) {
	case "paypal", "midtrans":
	default:
		return fmt.Errorf("unsupported payment provider %q", config.Payment.Provider)
	}

	if config.Payment.MaxAttempts < 1 {
		return fmt.Errorf("payment max_attempts must be at least 1")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// Duration parses a duration field that validateConfig has already checked.
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}
