package rsajwt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/cybergodev/rsajwt/internal/base64url"
	"github.com/cybergodev/rsajwt/internal/blacklist"
	"github.com/cybergodev/rsajwt/internal/core"
	"github.com/cybergodev/rsajwt/internal/security"
	"github.com/cybergodev/rsajwt/internal/signing"
)

// Processor issues and verifies tokens with one KeySet. It is safe for
// concurrent use; Issue and Verify only take a read lock.
type Processor struct {
	keys           KeySet
	method         signing.Method
	maxTokenLength int
	revocations    blacklist.Manager

	mu     sync.RWMutex
	closed bool
}

// New creates a Processor for keys with optional configuration
func New(keys KeySet, config ...Config) (*Processor, error) {
	return NewWithRevocation(keys, DefaultRevocationConfig(), config...)
}

// NewWithRevocation creates a Processor with a custom revocation store. The
// store is only opened when Config.EnableRevocation is set.
func NewWithRevocation(keys KeySet, revocationConfig RevocationConfig, config ...Config) (*Processor, error) {
	if err := keys.Validate(); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.HeaderAlg == "" {
		cfg.HeaderAlg = DefaultHeaderAlg
	}
	if cfg.MaxTokenLength == 0 {
		cfg.MaxTokenLength = DefaultMaxTokenLength
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	processor := &Processor{
		keys:           keys,
		method:         signing.NewRSAByteMethod(cfg.HeaderAlg),
		maxTokenLength: cfg.MaxTokenLength,
	}

	if cfg.EnableRevocation {
		if err := revocationConfig.Validate(); err != nil {
			return nil, fmt.Errorf("revocation configuration validation failed: %w", err)
		}

		internalConfig := blacklist.Config{
			CleanupInterval:   revocationConfig.CleanupInterval,
			MaxSize:           revocationConfig.MaxSize,
			EnableAutoCleanup: revocationConfig.EnableAutoCleanup,
			StoreType:         revocationConfig.StoreType,
			RedisURL:          revocationConfig.RedisURL,
			TokenTTL:          revocationConfig.TTL,
		}
		store, err := blacklist.NewStore(internalConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to open revocation store: %w", err)
		}
		processor.revocations = blacklist.NewManager(store, internalConfig)
	}

	runtime.SetFinalizer(processor, (*Processor).finalize)
	return processor, nil
}

// Issue signs payload with the signing key and returns the token string
func (p *Processor) Issue(payload any) (string, error) {
	return p.IssueWithContext(context.Background(), payload)
}

// IssueWithContext issues a token with context support
func (p *Processor) IssueWithContext(ctx context.Context, payload any) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.checkClosed(); err != nil {
		return "", err
	}

	return issue(p.method, payload, p.keys.Signing)
}

// Verify checks token with the verifying key and returns its canonical payload
func (p *Processor) Verify(tokenString string) (json.RawMessage, error) {
	return p.VerifyWithContext(context.Background(), tokenString)
}

// VerifyWithContext verifies a token with context support
func (p *Processor) VerifyWithContext(ctx context.Context, tokenString string) (json.RawMessage, error) {
	if err := validateTokenSize(tokenString, p.maxTokenLength); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.checkClosed(); err != nil {
		return nil, err
	}

	payload, err := verify(p.method, tokenString, p.keys.Verifying)
	if err != nil {
		if errors.Is(err, ErrSignatureInvalid) {
			security.SecureRandomDelay()
		}
		return nil, err
	}

	if p.revocations != nil {
		revoked, err := p.revocations.IsTokenStringBlacklisted(tokenString)
		if err != nil {
			return nil, fmt.Errorf("revocation check failed: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return payload, nil
}

// VerifyInto verifies token and unmarshals its payload into dest
func (p *Processor) VerifyInto(tokenString string, dest any) error {
	payload, err := p.Verify(tokenString)
	if err != nil {
		return err
	}
	return unmarshalPayload(payload, dest)
}

// Encrypt transforms data byte by byte with the public exponent and returns
// the packed blocks as base64url. Decrypt reverses it with the private
// exponent.
func (p *Processor) Encrypt(data []byte) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.checkClosed(); err != nil {
		return "", err
	}

	key := p.keys.Verifying
	blocks := signing.EncryptBytes(data, key)
	return base64url.Encode(signing.PackBlocks(blocks, signing.BlockSize(key.Modulus))), nil
}

// Decrypt recovers the bytes of a ciphertext produced by Encrypt
func (p *Processor) Decrypt(ciphertext string) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.checkClosed(); err != nil {
		return nil, err
	}

	key := p.keys.Signing
	raw, err := base64url.DecodeRaw(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	blocks, err := signing.UnpackBlocks(raw, signing.BlockSize(key.Modulus))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}

	return signing.DecryptBlocks(blocks, key), nil
}

// RevokeToken adds a token to the revocation store, preventing its future use
func (p *Processor) RevokeToken(tokenString string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.checkClosed(); err != nil {
		return err
	}
	if p.revocations == nil {
		return fmt.Errorf("%w: revocation is disabled", ErrInvalidConfig)
	}

	return p.revocations.BlacklistTokenString(tokenString)
}

// IsTokenRevoked checks if a token is in the revocation store
func (p *Processor) IsTokenRevoked(tokenString string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.checkClosed(); err != nil {
		return false, err
	}
	if p.revocations == nil {
		return false, nil
	}

	return p.revocations.IsTokenStringBlacklisted(tokenString)
}

// Close shuts down the processor and its revocation store
func (p *Processor) Close() error {
	return p.CloseWithContext(context.Background())
}

// CloseWithContext shuts down the processor with context support
func (p *Processor) CloseWithContext(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrProcessorClosed
	}

	var closeErr error

	if p.revocations != nil {
		done := make(chan error, 1)
		go func() {
			done <- p.revocations.Close()
		}()

		select {
		case err := <-done:
			if err != nil {
				closeErr = fmt.Errorf("revocation store close failed: %w", err)
			}
		case <-ctx.Done():
			closeErr = fmt.Errorf("revocation store close timeout: %w", ctx.Err())
		}
	}

	p.closed = true
	runtime.SetFinalizer(p, nil)
	return closeErr
}

// finalize is called by the garbage collector to ensure resources are cleaned up
func (p *Processor) finalize() {
	if !p.closed {
		p.Close()
	}
}

func (p *Processor) checkClosed() error {
	if p.closed {
		return ErrProcessorClosed
	}
	return nil
}

// IsClosed returns true if the processor has been closed
func (p *Processor) IsClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

func issue(method signing.Method, payload any, key KeyPair) (string, error) {
	token, err := core.NewTokenWithClaims(method, payload)
	if err != nil {
		return "", err
	}
	return token.SignedString(key)
}

func verify(method signing.Method, tokenString string, key KeyPair) (json.RawMessage, error) {
	token, err := core.Parse(tokenString, method, func(*core.Core) (any, error) {
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	return token.Claims, nil
}

func unmarshalPayload(payload json.RawMessage, dest any) error {
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}
