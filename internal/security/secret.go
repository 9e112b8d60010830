// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package security provides a small wrapper for sensitive in-memory values
// like API keys and access tokens. A Secret never leaks its contents
// through fmt or JSON, and can be zeroed once it has been handed off.
package security

// Redacted is what a Secret prints as.
const Redacted = "[SECRET]"

// Secret holds a sensitive byte string. The zero value is an empty secret.
type Secret struct {
	value []byte
}

// FromString wraps a string in a Secret. The string's bytes are copied so
// the Secret owns its storage.
func FromString(s string) Secret {
	return FromBytes([]byte(s))
}

// FromBytes wraps a byte slice in a Secret, copying it.
func FromBytes(b []byte) Secret {
	if len(b) == 0 {
		return Secret{}
	}
	value := make([]byte, len(b))
	copy(value, b)
	return Secret{value: value}
}

// Bytes returns the underlying storage. Callers that only need transient
// access should prefer Reveal and let the Secret keep ownership.
func (s Secret) Bytes() []byte {
	return s.value
}

// Reveal returns the secret as a string.
func (s Secret) Reveal() string {
	return string(s.value)
}

// Zero overwrites the underlying storage. The Secret stays usable but
// empty-equivalent afterwards.
func (s *Secret) Zero() {
	for i := range s.value {
		s.value[i] = 0
	}
}

// String implements fmt.Stringer and always redacts.
func (s Secret) String() string {
	return Redacted
}

// MarshalJSON redacts the value; secrets never serialize in the clear.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + Redacted + `"`), nil
}
