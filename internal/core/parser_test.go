package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybergodev/rsajwt/internal/base64url"
	"github.com/cybergodev/rsajwt/internal/signing"
)

var (
	testPrivate = signing.KeyPair{Modulus: 3233, Exponent: 2753}
	testPublic  = signing.KeyPair{Modulus: 3233, Exponent: 17}
	testMethod  = signing.NewRSAByteMethod("HS256")
)

func publicKey(*Core) (any, error) { return testPublic, nil }

func issue(t *testing.T, claims any) string {
	t.Helper()
	token, err := NewTokenWithClaims(testMethod, claims)
	require.NoError(t, err)
	s, err := token.SignedString(testPrivate)
	require.NoError(t, err)
	return s
}

func TestNewTokenWithClaims(t *testing.T) {
	token, err := NewTokenWithClaims(testMethod, map[string]any{"sub": "user123"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"alg":"HS256","typ":"JWT"}`, string(token.Header))
	assert.Equal(t, `{"alg":"HS256","typ":"JWT"}`, string(token.Header), "header field order is fixed")
	assert.Equal(t, `{"sub":"user123"}`, string(token.Claims))
	assert.Equal(t, testMethod, token.Method)
}

func TestNewTokenWithRawClaims(t *testing.T) {
	token, err := NewTokenWithClaims(testMethod, []byte(`{ "a" : 1 }`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(token.Claims))

	_, err = NewTokenWithClaims(testMethod, json.RawMessage(`{broken`))
	assert.ErrorIs(t, err, signing.ErrSerialization)

	_, err = NewTokenWithClaims(testMethod, make(chan int))
	assert.ErrorIs(t, err, signing.ErrSerialization)

	// Valid JSON syntax, but the string literal holds a stray 0xff byte.
	_, err = NewTokenWithClaims(testMethod, json.RawMessage("\"\xff\""))
	assert.ErrorIs(t, err, signing.ErrSerialization)
	assert.Contains(t, err.Error(), "UTF-8")

	_, err = NewTokenWithClaims(testMethod, []byte("{\"a\":\"ok\xc3\"}"))
	assert.ErrorIs(t, err, signing.ErrSerialization)
}

func TestEmptyTokenIsMalformed(t *testing.T) {
	_, _, _, err := Segments("")
	assert.ErrorIs(t, err, ErrEmptyToken)
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestSplit3(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   [3]string
		wantOk bool
	}{
		{"valid format", "header.payload.signature", [3]string{"header", "payload", "signature"}, true},
		{"empty segments", "..", [3]string{"", "", ""}, true},
		{"only one separator", "header.payload", [3]string{}, false},
		{"no separator", "headerPayloadSignature", [3]string{}, false},
		{"empty string", "", [3]string{}, false},
		{"extra separators", "a.b.c.d", [3]string{}, false},
		{"trailing separator", "a.b.c.", [3]string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p1, p2, p3, ok := split3(tt.input, '.')
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, [3]string{p1, p2, p3})
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tokenString := issue(t, map[string]any{"username": "a", "text": "hi"})

	token, err := Parse(tokenString, testMethod, publicKey)
	require.NoError(t, err)

	assert.True(t, token.Valid)
	assert.Equal(t, tokenString, token.Raw)
	assert.Equal(t, `{"alg":"HS256","typ":"JWT"}`, string(token.Header))
	assert.Equal(t, `{"text":"hi","username":"a"}`, string(token.Claims))
	assert.Equal(t, tokenString[:strings.LastIndexByte(tokenString, '.')], token.SigningInput())
}

func TestParseErrors(t *testing.T) {
	valid := issue(t, map[string]any{"k": "v"})
	h, p, s, err := Segments(valid)
	require.NoError(t, err)

	notJSON := base64url.Encode([]byte("not json"))
	badUTF8 := base64url.Encode([]byte{0xff, 0xfe})

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"empty", "", ErrEmptyToken},
		{"two segments", h + "." + p, ErrMalformedToken},
		{"four segments", valid + ".extra", ErrMalformedToken},
		{"header not json", notJSON + "." + p + "." + s, base64url.ErrInvalidJSON},
		{"payload not json", h + "." + notJSON + "." + s, base64url.ErrInvalidJSON},
		{"header not utf8", badUTF8 + "." + p + "." + s, base64url.ErrInvalidEncoding},
		{"header bad character", "ey!J." + p + "." + s, base64url.ErrInvalidCharacter},
		{"signature from other token", h + "." + p + "." + base64url.Encode([]byte{0, 1}), signing.ErrSignatureInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := Parse(tt.token, testMethod, publicKey)
			assert.Nil(t, token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseKeyFuncError(t *testing.T) {
	boom := errors.New("no key")
	_, err := Parse(issue(t, 1), testMethod, func(*Core) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestParseSignatureCoversEncodedSegments(t *testing.T) {
	// Re-encoding the payload with different whitespace keeps the JSON
	// meaning but changes the signing input, so the signature must fail.
	valid := issue(t, map[string]any{"a": 1})
	h, _, s, err := Segments(valid)
	require.NoError(t, err)

	respaced := base64url.Encode([]byte(`{ "a": 1 }`))
	_, err = Parse(h+"."+respaced+"."+s, testMethod, publicKey)
	assert.ErrorIs(t, err, signing.ErrSignatureInvalid)
}

func TestParseUnverified(t *testing.T) {
	valid := issue(t, map[string]any{"z": true, "a": nil})
	h, p, _, err := Segments(valid)
	require.NoError(t, err)

	token, err := ParseUnverified(h + "." + p + ".garbage")
	require.NoError(t, err)
	assert.False(t, token.Valid)
	assert.Equal(t, "garbage", token.Signature)
	assert.Equal(t, `{"a":null,"z":true}`, string(token.Claims))
}
