package config_test

import (
	"testing"

	"github.com/karloscodes/cartridge"
	"github.com/stretchr/testify/assert"

	"toylytics/internal/config"
)

// The application shell consumes Config through the cartridge interface; a
// missing accessor must fail at compile time, not at wiring time.
var _ cartridge.Config = (*config.Config)(nil)

func TestCartridgeAccessors(t *testing.T) {
	cfg := &config.Config{
		AppName:               "toylytics",
		AppPort:               "3000",
		Environment:           config.Test,
		LogLevel:              config.LogLevelError,
		PublicDirectory:       "public",
		PublicAssetsUrlPrefix: "/",
		LogsDirectory:         "logs",
	}

	assert.Equal(t, "3000", cfg.GetPort())
	assert.Equal(t, "toylytics", cfg.GetAppName())
	assert.Equal(t, "public", cfg.GetPublicDirectory())
	assert.Equal(t, "/", cfg.GetAssetsPrefix())
	assert.Equal(t, "error", cfg.GetLogLevel())
	assert.Equal(t, "logs", cfg.GetLogDirectory())
}

func TestConnectionPoolDefaultsByEnvironment(t *testing.T) {
	test := &config.Config{Environment: config.Test}
	assert.Equal(t, 1, test.GetMaxOpenConns())
	assert.Equal(t, 1, test.GetMaxIdleConns())

	prod := &config.Config{Environment: config.Production}
	assert.Equal(t, 10, prod.GetMaxOpenConns())
	assert.Equal(t, 5, prod.GetMaxIdleConns())

	pinned := &config.Config{Environment: config.Production, DatabaseMaxOpenConns: 3}
	assert.Equal(t, 3, pinned.GetMaxOpenConns())
}
