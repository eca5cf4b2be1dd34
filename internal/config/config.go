package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Every process reads its configuration from the environment. The agent and
// the CLI act for one employee (EMPLOYEE_ID / COMPANY_CODE); the refresh
// worker uses COMPANY_CODE for every employee it reloads.

type Config struct {
	HRAPIURL     string        `mapstructure:"HR_API_URL"`
	HRAPITimeout time.Duration `mapstructure:"HR_API_TIMEOUT"`
	EmployeeID   string        `mapstructure:"EMPLOYEE_ID"`
	CompanyCode  string        `mapstructure:"COMPANY_CODE"`
	Timezone     string        `mapstructure:"TIMEZONE"`

	TickInterval              time.Duration `mapstructure:"TICK_INTERVAL"`
	LocationTimeout           time.Duration `mapstructure:"LOCATION_TIMEOUT"`
	LocationMaxAge            time.Duration `mapstructure:"LOCATION_MAX_AGE"`
	LocationLat               float64       `mapstructure:"LOCATION_LAT"`
	LocationLon               float64       `mapstructure:"LOCATION_LON"`
	LocationPermissionGranted bool          `mapstructure:"LOCATION_PERMISSION_GRANTED"`

	ServerPort     string `mapstructure:"SERVER_PORT"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	JournalEnabled bool   `mapstructure:"JOURNAL_ENABLED"`

	AWSRegion           string `mapstructure:"AWS_REGION"`
	AWSEndpoint         string `mapstructure:"AWS_ENDPOINT"`
	PunchEventsQueueURL string `mapstructure:"PUNCH_EVENTS_QUEUE_URL"`

	OTelExporterEndpoint string `mapstructure:"OTEL_EXPORTER_ENDPOINT"`
	IsLocalDev           bool   `mapstructure:"IS_LOCAL_DEV"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (Config, error) {
	v := viper.New()
	v.SetDefault("HR_API_URL", "http://localhost:8081")
	v.SetDefault("HR_API_TIMEOUT", "10s")
	v.SetDefault("EMPLOYEE_ID", "")
	v.SetDefault("COMPANY_CODE", "")
	v.SetDefault("TIMEZONE", "Asia/Kolkata")
	v.SetDefault("TICK_INTERVAL", "1s")
	v.SetDefault("LOCATION_TIMEOUT", "15s")
	v.SetDefault("LOCATION_MAX_AGE", "10s")
	v.SetDefault("LOCATION_LAT", 0.0)
	v.SetDefault("LOCATION_LON", 0.0)
	v.SetDefault("LOCATION_PERMISSION_GRANTED", true)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("DB_HOST", "db")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "attendance_db")
	v.SetDefault("JOURNAL_ENABLED", false)
	v.SetDefault("AWS_REGION", "us-east-1") // Default region for AWS services
	v.SetDefault("AWS_ENDPOINT", "http://localstack:4566")
	v.SetDefault("PUNCH_EVENTS_QUEUE_URL", "")
	v.SetDefault("OTEL_EXPORTER_ENDPOINT", "jaeger:4317")
	v.SetDefault("IS_LOCAL_DEV", false)

	// Read in environment variables that match the keys.
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks what every process needs to reach the HR backend.
// Credentials are checked only when requireCredentials is set.
func (c Config) Validate(requireCredentials bool) error {
	var errs []error
	if c.HRAPIURL == "" {
		errs = append(errs, errors.New("HR_API_URL is required"))
	} else if u, err := url.Parse(c.HRAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("HR_API_URL %q is not an absolute URL", c.HRAPIURL))
	}
	if requireCredentials && c.EmployeeID == "" {
		errs = append(errs, errors.New("EMPLOYEE_ID is required"))
	}
	if c.CompanyCode == "" {
		errs = append(errs, errors.New("COMPANY_CODE is required"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, errors.New("TICK_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

// Location returns the configured time zone, UTC if it cannot be loaded.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
