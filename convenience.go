package rsajwt

import (
	"encoding/json"

	"github.com/cybergodev/rsajwt/internal/security"
	"github.com/cybergodev/rsajwt/internal/signing"
)

var defaultMethod = signing.NewRSAByteMethod(DefaultHeaderAlg)

// Issue signs payload with signingKey and returns "header.payload.signature".
// This is a convenience function for simple use cases without revocation
// or a token length limit. For long-running services, use the Processor API.
func Issue(payload any, signingKey KeyPair) (string, error) {
	if err := checkKey(signingKey); err != nil {
		return "", err
	}
	return issue(defaultMethod, payload, signingKey)
}

// Verify checks token with verifyingKey and returns its canonical payload.
// This is a convenience function for simple use cases without revocation
// or a token length limit. For long-running services, use the Processor API.
func Verify(tokenString string, verifyingKey KeyPair) (json.RawMessage, error) {
	if err := checkKey(verifyingKey); err != nil {
		return nil, err
	}
	return verify(defaultMethod, tokenString, verifyingKey)
}

// VerifyInto verifies token and unmarshals its payload into dest.
func VerifyInto(tokenString string, verifyingKey KeyPair, dest any) error {
	payload, err := Verify(tokenString, verifyingKey)
	if err != nil {
		return err
	}
	return unmarshalPayload(payload, dest)
}

func checkKey(key KeyPair) error {
	if err := security.CheckKeyPair(key.Modulus, key.Exponent); err != nil {
		return &KeyLoadError{Err: err}
	}
	return nil
}
