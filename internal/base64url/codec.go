// Package base64url implements the URL-safe base64 alphabet at the bit level.
//
// Decoding is lenient about length: trailing '=' characters are stripped and
// any final group of fewer than 8 bits is dropped instead of rejected.
package base64url

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

var (
	ErrInvalidCharacter = errors.New("invalid base64url character")
	ErrInvalidEncoding  = errors.New("decoded segment is not valid UTF-8")
	ErrInvalidJSON      = errors.New("decoded segment is not valid JSON")
)

var decodeMap = func() [256]int8 {
	var m [256]int8
	for i := range m {
		m[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		m[alphabet[i]] = int8(i)
	}
	return m
}()

// Encode returns the unpadded base64url encoding of data.
func Encode(data []byte) string {
	bits := NewBitBuffer(len(data) * 8)
	for _, c := range data {
		bits.AppendBits(uint64(c), 8)
	}

	n := (bits.Len() + 5) / 6
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = alphabet[bits.ReadBits(i*6, 6)]
	}
	return string(out)
}

// DecodeRaw decodes s into bytes without interpreting them.
func DecodeRaw(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")

	bits := NewBitBuffer(len(s) * 6)
	for i := 0; i < len(s); i++ {
		idx := decodeMap[s[i]]
		if idx < 0 {
			return nil, fmt.Errorf("%w %q at position %d", ErrInvalidCharacter, s[i], i)
		}
		bits.AppendBits(uint64(idx), 6)
	}

	return bits.Bytes(), nil
}

// DecodeText decodes s and requires the result to be valid UTF-8.
func DecodeText(s string) (string, error) {
	raw, err := DecodeRaw(s)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", ErrInvalidEncoding
	}
	return string(raw), nil
}

// DecodeJSON decodes a segment carrying JSON and returns its canonical form.
func DecodeJSON(s string) (string, error) {
	text, err := DecodeText(s)
	if err != nil {
		return "", err
	}
	return Canonicalize([]byte(text))
}

// Canonicalize parses data as a single JSON value and re-serializes it compactly
// with object keys sorted. Numbers keep their original text.
func Canonicalize(data []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return "", fmt.Errorf("%w: trailing data after value", ErrInvalidJSON)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	return strings.TrimSuffix(buf.String(), "\n"), nil
}
