// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Denominator scopes for the customer conversion rate. The source data can be
// read either way, so the scope is configurable instead of hardcoded.
const (
	ConversionDenominatorFiltered   = "filtered"
	ConversionDenominatorUnfiltered = "unfiltered"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`

	// File paths
	DatabasePath          string `mapstructure:"storagepath"`
	DatabaseName          string `mapstructure:"-"` // Derived from other settings
	DataDirectory         string `mapstructure:"datadir"`
	PublicDirectory       string `mapstructure:"publicdir"`
	PublicAssetsUrlPrefix string `mapstructure:"publicassetsurlprefix"`

	// Remote dataset downloads. The session and pageview exports are too big
	// to ship with the repo, so they can be pulled from object storage.
	SessionsURL  string `mapstructure:"sessionsurl"`
	PageviewsURL string `mapstructure:"pageviewsurl"`

	// Funnel stage mapping override. Empty means the embedded default map.
	FunnelMapPath string `mapstructure:"funnelmappath"`

	// Denominator scope for the customer conversion rate:
	// "filtered" or "unfiltered" session users.
	ConversionDenominator string `mapstructure:"conversiondenominator"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseMaxOpenConns int `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int `mapstructure:"dbmaxidleconns"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		v.SetDefault("appname", "toylytics")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("storagepath", "storage")
		v.SetDefault("datadir", "data")
		v.SetDefault("publicdir", "public")
		v.SetDefault("publicassetsurlprefix", "/")
		v.SetDefault("sessionsurl", "")
		v.SetDefault("pageviewsurl", "")
		v.SetDefault("funnelmappath", "")
		v.SetDefault("conversiondenominator", ConversionDenominatorUnfiltered)
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)

		v.BindEnv("appname", "TOYLYTICS_APP_NAME")
		v.BindEnv("appport", "TOYLYTICS_APP_PORT")
		v.BindEnv("environment", "TOYLYTICS_ENV")
		v.BindEnv("loglevel", "TOYLYTICS_LOG_LEVEL")
		v.BindEnv("storagepath", "TOYLYTICS_STORAGE_PATH")
		v.BindEnv("datadir", "TOYLYTICS_DATA_DIR")
		v.BindEnv("publicdir", "TOYLYTICS_PUBLIC_DIR")
		v.BindEnv("publicassetsurlprefix", "TOYLYTICS_PUBLIC_ASSETS_URL_PREFIX")
		v.BindEnv("sessionsurl", "TOYLYTICS_SESSIONS_URL")
		v.BindEnv("pageviewsurl", "TOYLYTICS_PAGEVIEWS_URL")
		v.BindEnv("funnelmappath", "TOYLYTICS_FUNNEL_MAP_PATH")
		v.BindEnv("conversiondenominator", "TOYLYTICS_CONVERSION_DENOMINATOR")
		v.BindEnv("logsdir", "TOYLYTICS_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "TOYLYTICS_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "TOYLYTICS_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "TOYLYTICS_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbmaxopenconns", "TOYLYTICS_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "TOYLYTICS_DB_MAX_IDLE_CONNS")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		cfg.DatabaseName = cfg.GetDatabasePath()
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validScopes := map[string]bool{
		ConversionDenominatorFiltered:   true,
		ConversionDenominatorUnfiltered: true,
	}
	if !validScopes[c.ConversionDenominator] {
		return fmt.Errorf("invalid conversion denominator scope: %s", c.ConversionDenominator)
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP server port (implements cartridge.Config interface).
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetPublicDirectory returns the path to public/static assets (implements cartridge.Config interface).
func (c *Config) GetPublicDirectory() string {
	return c.PublicDirectory
}

// GetAssetsPrefix returns the URL prefix for static assets (implements cartridge.Config interface).
func (c *Config) GetAssetsPrefix() string {
	return c.PublicAssetsUrlPrefix
}

// GetAppName returns the application name (implements cartridge.FactoryConfig interface).
func (c *Config) GetAppName() string {
	return c.AppName
}

// DatabaseDSN returns the database connection string (implements cartridge.FactoryConfig interface).
func (c *Config) DatabaseDSN() string {
	return c.GetDatabasePath()
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment.
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1 (required for in-memory database stability)
// - Development/Production: 10 (allows concurrent reads for parallel dashboard queries)
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}

	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment.
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 5
}

// GetLogLevel returns the log level as a string (implements cartridge.LogConfigProvider).
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// GetLogDirectory returns the logs directory (implements cartridge.LogConfigProvider).
func (c *Config) GetLogDirectory() string {
	return c.LogsDirectory
}

// GetLogMaxSizeMB returns the max log file size in MB (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxSizeMB() int {
	return c.LogsMaxSizeInMb
}

// GetLogMaxBackups returns the max number of log backups (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxBackups() int {
	return c.LogsMaxBackups
}

// GetLogMaxAgeDays returns the max age in days for log files (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxAgeDays() int {
	return c.LogsMaxAgeInDays
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
