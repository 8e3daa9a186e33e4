package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values. It is built once at startup and
// passed to the components that need it.
type Config struct {
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	Port     int    `mapstructure:"PORT"`

	// Calendar provider used for free/busy and, with EVENT_WRITER=provider, for events.
	CalendarProvider string `mapstructure:"CALENDAR_PROVIDER"`
	EventWriter      string `mapstructure:"EVENT_WRITER"`

	GraphTenantID     string `mapstructure:"GRAPH_TENANT_ID"`
	GraphClientID     string `mapstructure:"GRAPH_CLIENT_ID"`
	GraphClientSecret string `mapstructure:"GRAPH_CLIENT_SECRET"`
	GraphBaseURL      string `mapstructure:"GRAPH_BASE_URL"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleAccount      string `mapstructure:"GOOGLE_ACCOUNT"`

	ICloudUsername     string `mapstructure:"ICLOUD_USERNAME"`
	ICloudPassword     string `mapstructure:"ICLOUD_APP_SPECIFIC_PASSWORD"`
	ICloudCalendarName string `mapstructure:"ICLOUD_CALENDAR_NAME"`

	MongoURI        string `mapstructure:"MONGO_URI"`
	MongoDatabase   string `mapstructure:"MONGO_DATABASE"`
	MongoCollection string `mapstructure:"MONGO_COLLECTION"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Redis free/busy cache. Disabled when RedisAddr is empty.
	RedisAddr        string        `mapstructure:"REDIS_ADDR"`
	RedisPassword    string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB          int           `mapstructure:"REDIS_DB"`
	FreeBusyCacheTTL time.Duration `mapstructure:"FREEBUSY_CACHE_TTL"`

	MailTransport     string `mapstructure:"MAIL_TRANSPORT"`
	SMTPHost          string `mapstructure:"SMTP_HOST"`
	SMTPPort          int    `mapstructure:"SMTP_PORT"`
	SystemSenderEmail string `mapstructure:"SYSTEM_SENDER_EMAIL"`

	APIURL          string `mapstructure:"API_URL"`
	ClientURL       string `mapstructure:"CLIENT_URL"`
	DefaultTimeZone string `mapstructure:"DEFAULT_TIME_ZONE"`
	GridMinutes     int    `mapstructure:"GRID_MINUTES"`
}

var defaults = map[string]any{
	"ENV":                          "development",
	"LOG_LEVEL":                    "info",
	"PORT":                         8080,
	"CALENDAR_PROVIDER":            "graph",
	"EVENT_WRITER":                 "provider",
	"GRAPH_TENANT_ID":              "",
	"GRAPH_CLIENT_ID":              "",
	"GRAPH_CLIENT_SECRET":          "",
	"GRAPH_BASE_URL":               "https://graph.microsoft.com/v1.0",
	"GOOGLE_CLIENT_ID":             "",
	"GOOGLE_CLIENT_SECRET":         "",
	"GOOGLE_ACCOUNT":               "",
	"ICLOUD_USERNAME":              "",
	"ICLOUD_APP_SPECIFIC_PASSWORD": "",
	"ICLOUD_CALENDAR_NAME":         "",
	"MONGO_URI":                    "mongodb://localhost:27017",
	"MONGO_DATABASE":               "schedcal",
	"MONGO_COLLECTION":             "forms",
	"DATABASE_URL":                 "",
	"REDIS_ADDR":                   "",
	"REDIS_PASSWORD":               "",
	"REDIS_DB":                     0,
	"FREEBUSY_CACHE_TTL":           "5m",
	"MAIL_TRANSPORT":               "graph",
	"SMTP_HOST":                    "localhost",
	"SMTP_PORT":                    1025,
	"SYSTEM_SENDER_EMAIL":          "",
	"API_URL":                      "http://localhost:8080",
	"CLIENT_URL":                   "http://localhost:3000",
	"DEFAULT_TIME_ZONE":            "Asia/Tokyo",
	"GRID_MINUTES":                 30,
}

// Load reads .env (when present), an optional config.yaml and the environment.
// Environment variables win over the file.
func Load() (Config, error) {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether ENV is production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Validate reports every missing setting for the selected provider, event
// writer and mail transport.
func (c Config) Validate() error {
	var errs []error
	require := func(value, key string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}

	graphNeeded := false
	switch c.CalendarProvider {
	case "graph":
		graphNeeded = true
	case "google":
		require(c.GoogleAccount, "GOOGLE_ACCOUNT")
	default:
		errs = append(errs, fmt.Errorf("CALENDAR_PROVIDER must be graph or google, got %q", c.CalendarProvider))
	}

	switch c.EventWriter {
	case "provider":
	case "caldav":
		require(c.ICloudUsername, "ICLOUD_USERNAME")
		require(c.ICloudPassword, "ICLOUD_APP_SPECIFIC_PASSWORD")
		require(c.ICloudCalendarName, "ICLOUD_CALENDAR_NAME")
	default:
		errs = append(errs, fmt.Errorf("EVENT_WRITER must be provider or caldav, got %q", c.EventWriter))
	}

	switch c.MailTransport {
	case "graph":
		graphNeeded = true
	case "smtp":
		require(c.SMTPHost, "SMTP_HOST")
	default:
		errs = append(errs, fmt.Errorf("MAIL_TRANSPORT must be graph or smtp, got %q", c.MailTransport))
	}

	if graphNeeded {
		require(c.GraphTenantID, "GRAPH_TENANT_ID")
		require(c.GraphClientID, "GRAPH_CLIENT_ID")
		require(c.GraphClientSecret, "GRAPH_CLIENT_SECRET")
	}
	require(c.SystemSenderEmail, "SYSTEM_SENDER_EMAIL")
	require(c.MongoURI, "MONGO_URI")
	if c.GridMinutes < 0 {
		errs = append(errs, fmt.Errorf("GRID_MINUTES must not be negative, got %d", c.GridMinutes))
	}
	return errors.Join(errs...)
}
