package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		StoreBackend:    BackendFile,
		StoreKey:        "posts",
		StoreDir:        "/tmp/postdesk",
		PageSize:        6,
		ToastDurationMS: 2400,
		RedisURL:        "localhost:6379",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"valid file backend", func(*Config) {}, false},
		{"empty store key", func(c *Config) { c.StoreKey = " " }, true},
		{"zero page size", func(c *Config) { c.PageSize = 0 }, true},
		{"zero toast duration", func(c *Config) { c.ToastDurationMS = 0 }, true},
		{"unknown backend", func(c *Config) { c.StoreBackend = "etcd" }, true},
		{"memory backend", func(c *Config) { c.StoreBackend = BackendMemory }, false},
		{"sqlite without path", func(c *Config) { c.StoreBackend = BackendSQLite }, true},
		{"mongo without uri", func(c *Config) { c.StoreBackend = BackendMongo }, true},
		{"notify redis without url", func(c *Config) { c.NotifyRedis = true; c.RedisURL = "" }, true},
		{
			"production postgres with default password",
			func(c *Config) {
				c.Env = "production"
				c.StoreBackend = BackendPostgres
				c.DBHost = "db"
				c.DBName = "postdesk"
				c.DBPassword = "password"
			},
			true,
		},
		{
			"production postgres with strong password",
			func(c *Config) {
				c.Env = "prod"
				c.StoreBackend = BackendPostgres
				c.DBHost = "db"
				c.DBName = "postdesk"
				c.DBPassword = "a-much-better-secret"
				c.DBSSLMode = "require"
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_DefaultsAndNormalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("STORE_BACKEND")
	defer viper.Reset()

	os.Setenv("APP_ENV", "test")
	os.Setenv("STORE_BACKEND", "  MEMORY ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, c.StoreBackend)
	assert.Equal(t, "post-management-system::posts", c.StoreKey)
	assert.Equal(t, 6, c.PageSize)
	assert.Equal(t, 2400*time.Millisecond, c.ToastDuration())
}
