// Package securemem stores sensitive values (the provider API key) in
// memguard-protected memory so they do not linger in regular heap memory,
// swap or core dumps.
package securemem

import (
	"crypto/subtle"

	"github.com/awnumar/memguard"
)

// String holds a sensitive string in encrypted, locked memory.
type String struct {
	buf     *memguard.LockedBuffer
	invalid bool
}

// NewString moves the given plaintext into protected memory.
func NewString(plaintext string) *String {
	return &String{
		buf: memguard.NewBufferFromBytes([]byte(plaintext)),
	}
}

// String returns a plaintext copy. The copy lives in regular memory;
// callers should keep its lifetime short.
func (s *String) String() string {
	if s == nil || s.invalid || s.buf == nil {
		return ""
	}
	return string(s.buf.Bytes())
}

// IsEmpty reports whether the value is empty or already destroyed.
func (s *String) IsEmpty() bool {
	if s == nil || s.invalid || s.buf == nil {
		return true
	}
	return len(s.buf.Bytes()) == 0
}

// Equal compares against a plaintext candidate in constant time.
func (s *String) Equal(candidate string) bool {
	if s == nil || s.invalid || s.buf == nil {
		return candidate == ""
	}
	return subtle.ConstantTimeCompare(s.buf.Bytes(), []byte(candidate)) == 1
}

// Destroy wipes the protected memory. The value is unusable afterwards.
func (s *String) Destroy() {
	if s == nil || s.buf == nil {
		return
	}
	s.buf.Destroy()
	s.invalid = true
}
