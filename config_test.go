package rsajwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "HS256", cfg.HeaderAlg)
	assert.Equal(t, DefaultMaxTokenLength, cfg.MaxTokenLength)
	assert.False(t, cfg.EnableRevocation)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"custom alg", func(c *Config) { c.HeaderAlg = "RS-BYTE" }, false},
		{"empty alg", func(c *Config) { c.HeaderAlg = "" }, true},
		{"alg too long", func(c *Config) { c.HeaderAlg = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" }, true},
		{"alg with backslash", func(c *Config) { c.HeaderAlg = `HS\256` }, true},
		{"alg with newline", func(c *Config) { c.HeaderAlg = "HS\n256" }, true},
		{"alg with script", func(c *Config) { c.HeaderAlg = "<script>" }, true},
		{"zero length", func(c *Config) { c.MaxTokenLength = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	var nilConfig *Config
	assert.ErrorIs(t, nilConfig.Validate(), ErrInvalidConfig)
}

func TestRevocationConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RevocationConfig)
		wantErr bool
	}{
		{"default", func(*RevocationConfig) {}, false},
		{"empty store type", func(c *RevocationConfig) { c.StoreType = "" }, false},
		{"redis with url", func(c *RevocationConfig) {
			c.StoreType = "redis"
			c.RedisURL = "redis://localhost:6379/0"
		}, false},
		{"redis without url", func(c *RevocationConfig) { c.StoreType = "redis" }, true},
		{"unknown store", func(c *RevocationConfig) { c.StoreType = "etcd" }, true},
		{"zero ttl", func(c *RevocationConfig) { c.TTL = 0 }, true},
		{"auto cleanup without interval", func(c *RevocationConfig) { c.CleanupInterval = 0 }, true},
		{"no interval without auto cleanup", func(c *RevocationConfig) {
			c.CleanupInterval = 0
			c.EnableAutoCleanup = false
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRevocationConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.Equal(t, 24*time.Hour, DefaultRevocationConfig().TTL)
}

func TestValidateTokenSize(t *testing.T) {
	assert.ErrorIs(t, validateTokenSize("", 10), ErrEmptyToken)
	assert.NoError(t, validateTokenSize("a.b.c", 5))
	assert.ErrorIs(t, validateTokenSize("a.b.cd", 5), ErrTokenTooLarge)
}

func TestContainsDangerousPattern(t *testing.T) {
	assert.True(t, containsDangerousPattern("JavaScript:alert"))
	assert.True(t, containsDangerousPattern("x/../y"))
	assert.False(t, containsDangerousPattern("HS256"))
	assert.False(t, containsDangerousPattern("abc"))
}
