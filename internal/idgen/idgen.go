// Package idgen provides the identifier generators used for feature requests
// and comments.
package idgen

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generator produces identifiers that are unique for the lifetime of the process.
type Generator interface {
	NewID() string
}

// Func adapts a plain function into a Generator.
type Func func() string

// NewID calls f.
func (f Func) NewID() string { return f() }

// Scheme names a generator implementation selectable from configuration.
type Scheme string

// Supported schemes.
const (
	SchemeNanoID   Scheme = "nanoid"
	SchemeUUID     Scheme = "uuid"
	SchemeSequence Scheme = "sequence"
)

const (
	nanoAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	nanoSize     = 12
)

// Sequence hands out monotonically increasing, zero padded identifiers.
// It is safe for concurrent use.
type Sequence struct {
	prefix string
	next   atomic.Uint64
}

// NewSequence returns a sequence whose first identifier is start.
func NewSequence(prefix string, start uint64) *Sequence {
	s := &Sequence{prefix: prefix}
	s.next.Store(start)
	return s
}

// NewID returns the next identifier in the sequence.
func (s *Sequence) NewID() string {
	n := s.next.Add(1) - 1
	return fmt.Sprintf("%s%06d", s.prefix, n)
}

// Observe advances the sequence past id when id belongs to it, so
// identifiers loaded from storage are never handed out again.
func (s *Sequence) Observe(id string) {
	rest, ok := strings.CutPrefix(id, s.prefix)
	if !ok {
		return
	}
	n, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return
	}
	for {
		cur := s.next.Load()
		if n < cur || s.next.CompareAndSwap(cur, n+1) {
			return
		}
	}
}

// Observer is implemented by generators that must learn about identifiers
// assigned elsewhere.
type Observer interface {
	Observe(id string)
}

// UUID returns a generator of random (v4) UUIDs prefixed with prefix.
func UUID(prefix string) Generator {
	return Func(func() string { return prefix + uuid.NewString() })
}

// NanoID returns a generator of lowercase alphanumeric nanoids prefixed with prefix.
func NanoID(prefix string) Generator {
	return Func(func() string { return prefix + gonanoid.MustGenerate(nanoAlphabet, nanoSize) })
}

// New builds a generator for the named scheme. An empty scheme selects nanoid.
func New(scheme Scheme, prefix string) (Generator, error) {
	switch Scheme(strings.ToLower(string(scheme))) {
	case "", SchemeNanoID:
		return NanoID(prefix), nil
	case SchemeUUID:
		return UUID(prefix), nil
	case SchemeSequence:
		return NewSequence(prefix, 1), nil
	default:
		return nil, fmt.Errorf("unknown id scheme %q", scheme)
	}
}
