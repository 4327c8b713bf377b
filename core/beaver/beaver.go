// Package beaver defines the preprocessing interface of the engine: the
// supply of Beaver triples and of the shared MAC key. The package only
// consumes preprocessing material; generating it securely (via OT or a
// trusted dealer) is a separate subsystem.
package beaver

import (
	"errors"

	"github.com/renloq/spdz255/core/math/ristretto"
)

var ErrExhausted = errors.New("beaver: preprocessing material exhausted")

// ScalarShare is one party's additive share of a secret scalar together
// with its share of the SPDZ MAC on that scalar. For parties 0 and 1,
//
//	Value₀ + Value₁ = x
//	Mac₀ + Mac₁ = k·x
//
// where k is the session MAC key, itself additively shared.
type ScalarShare struct {
	Value *ristretto.Scalar
	Mac   *ristretto.Scalar
}

// Zeroize overwrites the share material.
func (s *ScalarShare) Zeroize() {
	if s.Value != nil {
		s.Value.Zeroize()
	}
	if s.Mac != nil {
		s.Mac.Zeroize()
	}
}

// Triple is one party's share of a Beaver triple (a, b, c) with
// c = a·b. A triple is correlated one-shot randomness: it is handed out
// by value, consumed by exactly one multiplication, and never reused.
// Reuse breaks the secrecy of the multiplied values, which is why
// NextTriple transfers ownership instead of lending it.
type Triple struct {
	A, B, C ScalarShare
}

// Zeroize overwrites all six scalars of the triple share.
func (t *Triple) Zeroize() {
	t.A.Zeroize()
	t.B.Zeroize()
	t.C.Zeroize()
}

// Supplier provides preprocessing material to a single session. A
// supplier is owned exclusively by its session and is not safe for
// concurrent use.
type Supplier interface {
	// NextTriple hands out the next unused triple share, or
	// ErrExhausted when the stock is drained. The caller owns the
	// returned triple.
	NextTriple() (Triple, error)

	// MacKeyShare returns this party's additive share of the session
	// MAC key. Called once at session start.
	MacKeyShare() *ristretto.Scalar
}

// Limit wraps a supplier and cuts it off after n triples, which is how
// tests exercise the exhaustion path.
func Limit(s Supplier, n int) Supplier {
	return &limited{inner: s, remaining: n}
}

type limited struct {
	inner     Supplier
	remaining int
}

func (l *limited) NextTriple() (Triple, error) {
	if l.remaining <= 0 {
		return Triple{}, ErrExhausted
	}
	l.remaining--
	return l.inner.NextTriple()
}

func (l *limited) MacKeyShare() *ristretto.Scalar {
	return l.inner.MacKeyShare()
}
