package security

import (
	"fmt"
)

// MinModulus is the smallest modulus for which every byte value is a distinct
// residue, so the per-byte transform stays invertible.
const MinModulus = 256

// CheckKeyPair reports why a (modulus, exponent) pair cannot be used for the
// per-byte transform, or nil when it can.
func CheckKeyPair(modulus, exponent uint64) error {
	if modulus < MinModulus {
		return fmt.Errorf("modulus %d is below %d: byte values would not survive the transform", modulus, MinModulus)
	}
	if modulus%2 == 0 {
		return fmt.Errorf("modulus %d is even", modulus)
	}
	if exponent < 2 {
		return fmt.Errorf("exponent %d leaves the input unchanged or constant", exponent)
	}
	if exponent >= modulus {
		return fmt.Errorf("exponent %d is not smaller than modulus %d", exponent, modulus)
	}
	return nil
}
