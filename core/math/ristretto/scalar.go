// Package ristretto adapts the ristretto255 prime-order group and its
// scalar field behind a small, stable interface. All values are fixed
// width (32-byte canonical encodings) and all equality checks are
// constant time; nothing in this package formats secret material.
package ristretto

import (
	"math/big"

	rst "github.com/bwesterb/go-ristretto"
	"github.com/pkg/errors"
)

// EncodedSize is the canonical encoding size of both scalars and group
// elements, in bytes.
const EncodedSize = 32

var ErrNonCanonicalScalar = errors.New("ristretto: non-canonical scalar encoding")

// Scalar is an element of the ristretto255 scalar field.
//
// The zero value is the additive identity and ready to use. Arithmetic
// methods write their result into the receiver and return it, matching
// the underlying library's chaining style; arguments are never modified.
type Scalar struct {
	v rst.Scalar
}

// NewScalar returns a new scalar set to zero.
func NewScalar() *Scalar {
	var s Scalar
	s.v.SetZero()
	return &s
}

// Set sets s to a and returns s.
func (s *Scalar) Set(a *Scalar) *Scalar {
	s.v.Set(&a.v)
	return s
}

// SetZero sets s to the additive identity.
func (s *Scalar) SetZero() *Scalar {
	s.v.SetZero()
	return s
}

// SetOne sets s to the multiplicative identity.
func (s *Scalar) SetOne() *Scalar {
	s.v.SetOne()
	return s
}

// SetUint64 sets s to the field element representing x.
func (s *Scalar) SetUint64(x uint64) *Scalar {
	s.v.SetBigInt(new(big.Int).SetUint64(x))
	return s
}

// Uint64 returns the integer representative of s. The result is only
// meaningful for scalars known to fit in 64 bits; it exists for test
// harnesses and demos, never for secret material.
func (s *Scalar) Uint64() uint64 {
	return s.v.BigInt().Uint64()
}

// Add sets s = a + b and returns s.
func (s *Scalar) Add(a, b *Scalar) *Scalar {
	s.v.Add(&a.v, &b.v)
	return s
}

// Sub sets s = a - b and returns s.
func (s *Scalar) Sub(a, b *Scalar) *Scalar {
	s.v.Sub(&a.v, &b.v)
	return s
}

// Neg sets s = -a and returns s.
func (s *Scalar) Neg(a *Scalar) *Scalar {
	s.v.Neg(&a.v)
	return s
}

// Mul sets s = a * b and returns s.
func (s *Scalar) Mul(a, b *Scalar) *Scalar {
	s.v.Mul(&a.v, &b.v)
	return s
}

// Inverse sets s to the multiplicative inverse of a and returns s.
func (s *Scalar) Inverse(a *Scalar) *Scalar {
	s.v.Inverse(&a.v)
	return s
}

// Rand sets s to a uniformly random scalar drawn from crypto/rand and
// returns s.
func (s *Scalar) Rand() *Scalar {
	s.v.Rand()
	return s
}

// Derive deterministically derives a scalar from buf and returns s.
func (s *Scalar) Derive(buf []byte) *Scalar {
	s.v.Derive(buf)
	return s
}

// Equal reports whether s == a in constant time.
func (s *Scalar) Equal(a *Scalar) bool {
	return s.v.EqualsI(&a.v) == 1
}

// IsZero reports whether s is the additive identity in constant time.
func (s *Scalar) IsZero() bool {
	var zero rst.Scalar
	zero.SetZero()
	return s.v.EqualsI(&zero) == 1
}

// BytesInto writes the canonical 32-byte encoding of s into buf.
func (s *Scalar) BytesInto(buf *[EncodedSize]byte) {
	s.v.BytesInto(buf)
}

// Bytes returns the canonical 32-byte encoding of s.
func (s *Scalar) Bytes() []byte {
	var buf [EncodedSize]byte
	s.v.BytesInto(&buf)
	return buf[:]
}

// SetBytes decodes a canonical 32-byte scalar encoding into s. The
// encoding is rejected if it is not fully reduced.
func (s *Scalar) SetBytes(buf *[EncodedSize]byte) error {
	s.v.SetBytes(buf)
	var round [EncodedSize]byte
	s.v.BytesInto(&round)
	if round != *buf {
		s.v.SetZero()
		return ErrNonCanonicalScalar
	}
	return nil
}

// SetReduced decodes 32 little-endian bytes into s, reducing modulo the
// group order. Unlike SetBytes it accepts any input; it is meant for
// deriving scalars from raw randomness.
func (s *Scalar) SetReduced(buf *[EncodedSize]byte) *Scalar {
	s.v.SetBytes(buf)
	return s
}

// Zeroize overwrites s with zero. It is best effort: Go gives no
// guarantee about copies the compiler may have made.
func (s *Scalar) Zeroize() {
	s.v.SetZero()
}
