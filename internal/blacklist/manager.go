package blacklist

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultTokenTTL = 24 * time.Hour

var errManagerClosed = errors.New("blacklist manager is closed")

// manager implements Manager on top of a Store, optionally sweeping expired
// entries in the background.
type manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time

	mu     sync.RWMutex
	closed bool

	stop chan struct{}
	done chan struct{}
}

// NewManager wraps store. With EnableAutoCleanup and a positive
// CleanupInterval a goroutine calls Store.Cleanup until Close.
func NewManager(store Store, config Config) Manager {
	ttl := config.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	m := &manager{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}

	if config.EnableAutoCleanup && config.CleanupInterval > 0 {
		m.stop = make(chan struct{})
		m.done = make(chan struct{})
		go m.sweep(config.CleanupInterval)
	}

	return m
}

// BlacklistToken adds a fingerprint until expiresAt
func (m *manager) BlacklistToken(fingerprint string, expiresAt time.Time) error {
	if fingerprint == "" {
		return errors.New("token fingerprint cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errManagerClosed
	}

	return m.store.Add(fingerprint, expiresAt)
}

// IsBlacklisted reports whether fingerprint has a live entry
func (m *manager) IsBlacklisted(fingerprint string) (bool, error) {
	if fingerprint == "" {
		return false, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, errManagerClosed
	}

	return m.store.Contains(fingerprint)
}

// BlacklistTokenString revokes a token for the configured TTL
func (m *manager) BlacklistTokenString(tokenString string) error {
	fingerprint, err := Fingerprint(tokenString)
	if err != nil {
		return fmt.Errorf("failed to fingerprint token: %w", err)
	}
	return m.BlacklistToken(fingerprint, m.now().Add(m.ttl))
}

// IsTokenStringBlacklisted reports whether a token has been revoked
func (m *manager) IsTokenStringBlacklisted(tokenString string) (bool, error) {
	fingerprint, err := Fingerprint(tokenString)
	if err != nil {
		return false, fmt.Errorf("failed to fingerprint token: %w", err)
	}
	return m.IsBlacklisted(fingerprint)
}

// Close stops the sweeper and closes the store. Later calls return nil.
func (m *manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	if m.stop != nil {
		close(m.stop)
		<-m.done
	}

	return m.store.Close()
}

func (m *manager) sweep(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performCleanup()
		case <-m.stop:
			return
		}
	}
}

func (m *manager) performCleanup() {
	removed, err := m.store.Cleanup()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "performCleanup",
			"error":    err.Error(),
		}).Warn("Blacklist cleanup failed")
		return
	}
	if removed > 0 {
		logrus.WithFields(logrus.Fields{
			"function": "performCleanup",
			"removed":  removed,
		}).Debug("Removed expired blacklist entries")
	}
}
