// Package blacklist keeps short-lived sets of rejected identifiers: revoked
// token fingerprints and already-delivered message IDs.
package blacklist

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/cybergodev/rsajwt/internal/core"
)

// Store defines the interface for blacklist storage implementations
type Store interface {
	// Add adds an entry to the blacklist with expiration time
	Add(id string, expiresAt time.Time) error

	// AddIfAbsent adds an entry unless a live one exists. It reports whether
	// the entry was added.
	AddIfAbsent(id string, expiresAt time.Time) (bool, error)

	// Contains checks if a live entry exists
	Contains(id string) (bool, error)

	// Remove removes an entry from the blacklist
	Remove(id string) error

	// Cleanup removes expired entries and returns how many were removed
	Cleanup() (int, error)

	// Size returns the current number of entries
	Size() (int, error)

	// Close closes the store and releases resources
	Close() error
}

// Manager manages revocation on top of a Store
type Manager interface {
	// BlacklistToken adds a token fingerprint to the blacklist
	BlacklistToken(fingerprint string, expiresAt time.Time) error

	// IsBlacklisted checks if a fingerprint is blacklisted
	IsBlacklisted(fingerprint string) (bool, error)

	// BlacklistTokenString fingerprints a token string and blacklists it for
	// the configured TTL
	BlacklistTokenString(tokenString string) error

	// IsTokenStringBlacklisted fingerprints a token string and looks it up
	IsTokenStringBlacklisted(tokenString string) (bool, error)

	// Close closes the manager and underlying store
	Close() error
}

// Config represents blacklist configuration
type Config struct {
	// CleanupInterval defines how often to run cleanup of expired entries
	CleanupInterval time.Duration `json:"cleanup_interval"`

	// MaxSize defines the maximum number of entries to keep in memory
	MaxSize int `json:"max_size"`

	// EnableAutoCleanup enables automatic cleanup of expired entries
	EnableAutoCleanup bool `json:"enable_auto_cleanup"`

	// StoreType is "memory" (default) or "redis"
	StoreType string `json:"store_type"`

	// RedisURL is used when StoreType is "redis"
	RedisURL string `json:"redis_url"`

	// KeyPrefix namespaces redis keys
	KeyPrefix string `json:"key_prefix"`

	// TokenTTL is how long a revoked token stays blacklisted
	TokenTTL time.Duration `json:"token_ttl"`
}

// NewStore creates a new store based on the configuration
func NewStore(config Config) (Store, error) {
	switch config.StoreType {
	case "", "memory":
		return NewMemoryStore(config.MaxSize), nil
	case "redis":
		return NewRedisStore(RedisOptions{URL: config.RedisURL, KeyPrefix: config.KeyPrefix})
	default:
		return nil, fmt.Errorf("unknown blacklist store type %q", config.StoreType)
	}
}

// Fingerprint identifies a token by the SHA-256 of its signature segment.
// Tokens carry no ID claim, and the signature covers both other segments.
func Fingerprint(tokenString string) (string, error) {
	_, _, signature, err := core.Segments(tokenString)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(signature))
	return hex.EncodeToString(sum[:]), nil
}
