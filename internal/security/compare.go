package security

import (
	"crypto/rand"
	"crypto/subtle"
	"runtime"
	"time"
)

// ZeroBytes overwrites recovered plaintext once it is no longer needed.
func ZeroBytes(data []byte) {
	clear(data)
	runtime.KeepAlive(data)
}

// SecureCompare reports whether a and b hold the same bytes. The content
// comparison does not stop at the first difference; lengths are public.
func SecureCompare(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// SecureRandomDelay sleeps between 10 and 99µs. Verification failures call it
// so rejected tokens do not all return at the same instant.
func SecureRandomDelay() {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		b[0] = 0
	}
	time.Sleep(time.Duration(10+int(b[0])%90) * time.Microsecond)
}
