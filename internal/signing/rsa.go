package signing

import (
	"fmt"

	"github.com/cybergodev/rsajwt/internal/base64url"
	"github.com/cybergodev/rsajwt/internal/security"
)

// rsaByteMethod signs every byte of the signing string as its own RSA block.
// There is no hashing and no padding: the signature grows with the input and
// the verifier recovers the signing string itself.
type rsaByteMethod struct {
	name string
}

// NewRSAByteMethod returns the per-byte RSA method advertising alg in headers.
func NewRSAByteMethod(alg string) Method {
	return &rsaByteMethod{name: alg}
}

func (m *rsaByteMethod) Alg() string {
	return m.name
}

func (m *rsaByteMethod) Sign(signingString string, key any) (string, error) {
	kp, err := keyPairOf(key)
	if err != nil {
		return "", err
	}

	blocks := EncryptBytes([]byte(signingString), kp)
	return base64url.Encode(PackBlocks(blocks, BlockSize(kp.Modulus))), nil
}

func (m *rsaByteMethod) Verify(signingString string, signature string, key any) error {
	kp, err := keyPairOf(key)
	if err != nil {
		return err
	}

	sigBytes, err := base64url.DecodeRaw(signature)
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", err)
	}

	blocks, err := UnpackBlocks(sigBytes, BlockSize(kp.Modulus))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	if len(blocks) != len(signingString) {
		return fmt.Errorf("%w: %d blocks for %d bytes of signing input", ErrSignatureInvalid, len(blocks), len(signingString))
	}

	recovered := make([]byte, len(blocks))
	defer security.ZeroBytes(recovered)

	for i, c := range blocks {
		// Residues at or above the modulus are never produced by Sign, and
		// recovered values above 255 would alias a byte once truncated.
		if c >= kp.Modulus {
			return fmt.Errorf("%w: block %d out of range", ErrSignatureInvalid, i)
		}
		v := ModPow(c, kp.Exponent, kp.Modulus)
		if v > 0xFF {
			return fmt.Errorf("%w: block %d does not recover a byte", ErrSignatureInvalid, i)
		}
		recovered[i] = byte(v)
	}

	if !security.SecureCompare(recovered, []byte(signingString)) {
		return ErrSignatureInvalid
	}
	return nil
}

func keyPairOf(key any) (KeyPair, error) {
	var kp KeyPair
	switch k := key.(type) {
	case KeyPair:
		kp = k
	case *KeyPair:
		if k == nil {
			return KeyPair{}, fmt.Errorf("key pair is nil")
		}
		kp = *k
	default:
		return KeyPair{}, fmt.Errorf("RSA key must be KeyPair or *KeyPair, got %T", key)
	}

	if kp.Modulus == 0 {
		return KeyPair{}, fmt.Errorf("key pair modulus must be positive")
	}
	return kp, nil
}
