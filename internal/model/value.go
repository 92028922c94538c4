package model

// Value is a tagged variant over plaintext and ciphertext strings. It is
// never a subclassed string: callers must test IsSecret before treating
// Raw as plaintext.
type Value struct {
	Raw      string
	IsSecret bool
}

// Plain constructs a plaintext value.
func Plain(s string) Value { return Value{Raw: s} }

// Cipher constructs an opaque ciphertext value. Raw carries the
// base64-encoded ciphertext tagged by the codec's !secret scalar.
func Cipher(s string) Value { return Value{Raw: s, IsSecret: true} }
