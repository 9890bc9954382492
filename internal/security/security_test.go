package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckKeyPair(t *testing.T) {
	tests := []struct {
		name     string
		modulus  uint64
		exponent uint64
		wantErr  bool
	}{
		{"textbook public", 3233, 17, false},
		{"textbook private", 3233, 2753, false},
		{"modulus below byte range", 187, 3, true},
		{"modulus exactly 255", 255, 7, true},
		{"even modulus", 4096, 17, true},
		{"identity exponent", 3233, 1, true},
		{"zero exponent", 3233, 0, true},
		{"exponent too large", 3233, 4000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckKeyPair(tt.modulus, tt.exponent)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSecureCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b []byte
		want bool
	}{
		{"equal", []byte("abc.def"), []byte("abc.def"), true},
		{"both empty", nil, []byte{}, true},
		{"differ in last byte", []byte("abc"), []byte("abd"), false},
		{"prefix", []byte("abc"), []byte("abcd"), false},
		{"zero padded", []byte{1, 0}, []byte{1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SecureCompare(tt.a, tt.b))
		})
	}
}

func TestZeroBytes(t *testing.T) {
	data := []byte("sensitive-data-to-zero")
	ZeroBytes(data)
	assert.Equal(t, make([]byte, len(data)), data)

	ZeroBytes(nil)
}
