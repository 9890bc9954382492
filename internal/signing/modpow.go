package signing

import (
	"errors"
	"fmt"
	"math/bits"
)

var errBlockLength = errors.New("block stream length is not a multiple of the block size")

// KeyPair is one half of a textbook RSA key: a modulus and the exponent applied
// under it. Signing and verifying pairs share the modulus.
type KeyPair struct {
	Modulus  uint64 `json:"modulus"`
	Exponent uint64 `json:"exponent"`
}

// ModPow computes base^exponent mod modulus by square-and-multiply. Products
// are formed in 128 bits so any 64-bit modulus is safe. It panics if modulus
// is zero.
func ModPow(base, exponent, modulus uint64) uint64 {
	if modulus == 0 {
		panic("signing: ModPow with zero modulus")
	}
	if modulus == 1 {
		return 0
	}

	result := uint64(1)
	base %= modulus
	for exponent > 0 {
		if exponent&1 == 1 {
			result = mulMod(result, base, modulus)
		}
		base = mulMod(base, base, modulus)
		exponent >>= 1
	}
	return result
}

// mulMod requires a, b < m, which keeps the high word below m for Div64.
func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi, lo, m)
	return rem
}

// Transform applies ModPow with key to every value independently. The same
// call encrypts or decrypts; only the exponent decides the direction.
func Transform(values []uint64, key KeyPair) []uint64 {
	out := make([]uint64, len(values))
	for i, v := range values {
		out[i] = ModPow(v, key.Exponent, key.Modulus)
	}
	return out
}

// EncryptBytes lifts each byte to its own block and transforms it. Bytes not
// below key.Modulus are reduced first and cannot be recovered.
func EncryptBytes(data []byte, key KeyPair) []uint64 {
	values := make([]uint64, len(data))
	for i, b := range data {
		values[i] = uint64(b)
	}
	return Transform(values, key)
}

// DecryptBlocks transforms each block and truncates the result to a byte.
func DecryptBlocks(blocks []uint64, key KeyPair) []byte {
	values := Transform(blocks, key)
	out := make([]byte, len(values))
	for i, v := range values {
		out[i] = byte(v)
	}
	return out
}

// BlockSize is the number of bytes needed to hold any residue of modulus.
func BlockSize(modulus uint64) int {
	if modulus <= 1 {
		return 1
	}
	return (bits.Len64(modulus-1) + 7) / 8
}

// PackBlocks writes every block big-endian in exactly size bytes.
func PackBlocks(blocks []uint64, size int) []byte {
	out := make([]byte, len(blocks)*size)
	for i, v := range blocks {
		for j := size - 1; j >= 0; j-- {
			out[i*size+j] = byte(v)
			v >>= 8
		}
	}
	return out
}

// UnpackBlocks is the inverse of PackBlocks.
func UnpackBlocks(data []byte, size int) ([]uint64, error) {
	if size <= 0 || size > 8 {
		return nil, fmt.Errorf("invalid block size %d", size)
	}
	if len(data)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes, block size %d", errBlockLength, len(data), size)
	}

	blocks := make([]uint64, len(data)/size)
	for i := range blocks {
		var v uint64
		for _, b := range data[i*size : (i+1)*size] {
			v = v<<8 | uint64(b)
		}
		blocks[i] = v
	}
	return blocks, nil
}
