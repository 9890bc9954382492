package core

import (
	"encoding/json"

	"github.com/cybergodev/rsajwt/internal/signing"
)

// TokenType is the fixed "typ" header value.
const TokenType = "JWT"

// Header is the fixed-shape token header. Field order is part of the wire
// format: alg first, then typ.
type Header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// Core represents a token with header, payload, and signature. Header and
// Claims hold compact JSON when issuing and canonical JSON after parsing.
type Core struct {
	Header    json.RawMessage `json:"header"`
	Claims    json.RawMessage `json:"claims"`
	Signature string          `json:"-"`
	Method    signing.Method  `json:"-"`
	Valid     bool            `json:"-"`
	Raw       string          `json:"-"`
}
