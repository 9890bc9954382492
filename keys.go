package rsajwt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cybergodev/rsajwt/internal/security"
	"github.com/cybergodev/rsajwt/internal/signing"
)

// KeyPair is a modulus and one exponent. Signing uses the private exponent,
// verification the public one; both share the modulus.
//
// Each byte is transformed as its own block, so the modulus must be at least
// 256 or distinct bytes collide. NewKeySet and the loaders enforce this.
type KeyPair = signing.KeyPair

// KeySet holds both halves of a key record. It is immutable once built and
// safe to share between goroutines.
type KeySet struct {
	Signing   KeyPair `json:"signing"`
	Verifying KeyPair `json:"verifying"`
}

// NewKeySet builds and validates a KeySet from the three values of a key record.
func NewKeySet(modulus, publicExponent, privateExponent uint64) (KeySet, error) {
	ks := KeySet{
		Signing:   KeyPair{Modulus: modulus, Exponent: privateExponent},
		Verifying: KeyPair{Modulus: modulus, Exponent: publicExponent},
	}
	if err := ks.Validate(); err != nil {
		return KeySet{}, err
	}
	return ks, nil
}

// Validate checks both halves of the set.
func (k KeySet) Validate() error {
	if k.Signing.Modulus != k.Verifying.Modulus {
		return &KeyLoadError{Err: fmt.Errorf("signing modulus %d differs from verifying modulus %d", k.Signing.Modulus, k.Verifying.Modulus)}
	}
	if err := security.CheckKeyPair(k.Verifying.Modulus, k.Verifying.Exponent); err != nil {
		return &KeyLoadError{Line: 2, Err: fmt.Errorf("public exponent: %w", err)}
	}
	if err := security.CheckKeyPair(k.Signing.Modulus, k.Signing.Exponent); err != nil {
		return &KeyLoadError{Line: 3, Err: fmt.Errorf("private exponent: %w", err)}
	}
	return nil
}

// ParseKeys reads a key record: modulus, public exponent and private
// exponent, one unsigned decimal per line. Blank lines are skipped.
func ParseKeys(r io.Reader) (KeySet, error) {
	var values [3]uint64
	count := 0
	lineNo := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if count == len(values) {
			return KeySet{}, &KeyLoadError{Line: lineNo, Err: errors.New("unexpected value after private exponent")}
		}

		v, err := strconv.ParseUint(line, 10, 64)
		if err != nil {
			return KeySet{}, &KeyLoadError{Line: lineNo, Err: fmt.Errorf("invalid unsigned integer %q", line)}
		}
		values[count] = v
		count++
	}
	if err := scanner.Err(); err != nil {
		return KeySet{}, &KeyLoadError{Err: err}
	}
	if count < len(values) {
		return KeySet{}, &KeyLoadError{Err: fmt.Errorf("expected 3 values (modulus, public exponent, private exponent), got %d", count)}
	}

	return NewKeySet(values[0], values[1], values[2])
}

// LoadKeyFile reads and parses the key record at path. Callers load it once at
// startup and pass the KeySet to Issue, Verify or New.
func LoadKeyFile(path string) (KeySet, error) {
	f, err := os.Open(path)
	if err != nil {
		return KeySet{}, &KeyLoadError{Path: path, Err: err}
	}
	defer f.Close()

	ks, err := ParseKeys(f)
	if err != nil {
		var kle *KeyLoadError
		if errors.As(err, &kle) {
			kle.Path = path
		}
		return KeySet{}, err
	}
	return ks, nil
}
