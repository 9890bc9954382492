package rsajwt

import (
	"fmt"
	"time"
)

const (
	// DefaultHeaderAlg is the "alg" label written into every header. Existing
	// peers emit this label for the per-byte RSA scheme, and verification
	// never reads it.
	DefaultHeaderAlg = "HS256"

	// DefaultMaxTokenLength bounds tokens accepted by Verify. Signatures take
	// BlockSize bytes per signing-input byte, so tokens are several times the
	// size of their payload.
	DefaultMaxTokenLength = 32768

	maxHeaderAlgLength = 32
)

// Config represents processor configuration
type Config struct {
	// HeaderAlg is the "alg" header value; fixed for the processor's lifetime
	HeaderAlg string `toml:"header_alg" json:"header_alg"`

	// MaxTokenLength rejects longer tokens before any decoding
	MaxTokenLength int `toml:"max_token_length" json:"max_token_length"`

	// EnableRevocation enables RevokeToken and the revocation check in Verify
	EnableRevocation bool `toml:"enable_revocation" json:"enable_revocation"`
}

// DefaultConfig returns the default processor configuration
func DefaultConfig() Config {
	return Config{
		HeaderAlg:        DefaultHeaderAlg,
		MaxTokenLength:   DefaultMaxTokenLength,
		EnableRevocation: false,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c == nil {
		return ErrInvalidConfig
	}

	if c.HeaderAlg == "" {
		return fmt.Errorf("%w: header alg cannot be empty", ErrInvalidConfig)
	}
	if err := validateHeaderField("header_alg", c.HeaderAlg, maxHeaderAlgLength); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.MaxTokenLength <= 0 {
		return fmt.Errorf("%w: max token length must be positive", ErrInvalidConfig)
	}

	return nil
}

// RevocationConfig represents revocation store configuration
type RevocationConfig struct {
	// CleanupInterval specifies how often expired entries are removed
	CleanupInterval time.Duration `toml:"cleanup_interval" json:"cleanup_interval"`

	// MaxSize defines the maximum number of entries held by the memory store
	MaxSize int `toml:"max_size" json:"max_size"`

	// EnableAutoCleanup enables automatic cleanup of expired entries
	EnableAutoCleanup bool `toml:"enable_auto_cleanup" json:"enable_auto_cleanup"`

	// StoreType is "memory" or "redis"
	StoreType string `toml:"store_type" json:"store_type"`

	// RedisURL is the connection URL when StoreType is "redis"
	RedisURL string `toml:"redis_url" json:"redis_url"`

	// TTL is how long a revoked token stays rejected
	TTL time.Duration `toml:"ttl" json:"ttl"`
}

// DefaultRevocationConfig returns the default revocation configuration
func DefaultRevocationConfig() RevocationConfig {
	return RevocationConfig{
		CleanupInterval:   5 * time.Minute,
		MaxSize:           100000,
		EnableAutoCleanup: true,
		StoreType:         "memory",
		TTL:               24 * time.Hour,
	}
}

// Validate validates the revocation configuration
func (c *RevocationConfig) Validate() error {
	if c == nil {
		return ErrInvalidConfig
	}

	switch c.StoreType {
	case "", "memory":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("%w: redis store requires a URL", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store type %q", ErrInvalidConfig, c.StoreType)
	}

	if c.TTL <= 0 {
		return fmt.Errorf("%w: revocation TTL must be positive", ErrInvalidConfig)
	}
	if c.EnableAutoCleanup && c.CleanupInterval <= 0 {
		return fmt.Errorf("%w: cleanup interval must be positive", ErrInvalidConfig)
	}

	return nil
}
