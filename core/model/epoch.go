package model

import "sync/atomic"

// Token identifies the epoch a deferred piece of work was issued under.
type Token uint64

// Epoch is a monotonically increasing generation counter. Every reset or
// regeneration advances it; deferred callbacks compare their Token against
// the current value before applying results.
type Epoch struct {
	v atomic.Uint64
}

// Current returns the token for work issued now.
func (e *Epoch) Current() Token {
	return Token(e.v.Load())
}

// Advance invalidates all outstanding tokens and returns the new one.
func (e *Epoch) Advance() Token {
	return Token(e.v.Add(1))
}

// Valid reports whether t is still the current epoch.
func (e *Epoch) Valid(t Token) bool {
	return Token(e.v.Load()) == t
}
