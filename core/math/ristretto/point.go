package ristretto

import (
	rst "github.com/bwesterb/go-ristretto"
	"github.com/pkg/errors"
)

var ErrInvalidPoint = errors.New("ristretto: invalid point encoding")

// Point is an element of the ristretto255 group.
//
// The zero value is not initialized; use NewPoint or one of the Set
// methods before use. As with Scalar, methods write into the receiver
// and return it, leaving their arguments untouched.
type Point struct {
	v rst.Point
}

// NewPoint returns a new point set to the group identity.
func NewPoint() *Point {
	var p Point
	p.v.SetZero()
	return &p
}

// Set sets p to q and returns p.
func (p *Point) Set(q *Point) *Point {
	p.v.Set(&q.v)
	return p
}

// SetIdentity sets p to the group identity.
func (p *Point) SetIdentity() *Point {
	p.v.SetZero()
	return p
}

// SetBase sets p to the canonical group generator.
func (p *Point) SetBase() *Point {
	p.v.SetBase()
	return p
}

// Add sets p = q + r and returns p.
func (p *Point) Add(q, r *Point) *Point {
	p.v.Add(&q.v, &r.v)
	return p
}

// Sub sets p = q - r and returns p.
func (p *Point) Sub(q, r *Point) *Point {
	p.v.Sub(&q.v, &r.v)
	return p
}

// Neg sets p = -q and returns p.
func (p *Point) Neg(q *Point) *Point {
	p.v.Neg(&q.v)
	return p
}

// ScalarMult sets p = s * q and returns p. The multiplication is
// constant time in s.
func (p *Point) ScalarMult(q *Point, s *Scalar) *Point {
	p.v.ScalarMult(&q.v, &s.v)
	return p
}

// ScalarBaseMult sets p = s * G for the canonical generator G and
// returns p.
func (p *Point) ScalarBaseMult(s *Scalar) *Point {
	p.v.ScalarMultBase(&s.v)
	return p
}

// Rand sets p to a uniformly random group element drawn from
// crypto/rand and returns p.
func (p *Point) Rand() *Point {
	p.v.Rand()
	return p
}

// Derive deterministically derives a point from buf and returns p.
func (p *Point) Derive(buf []byte) *Point {
	p.v.Derive(buf)
	return p
}

// Equal reports whether p == q in constant time.
func (p *Point) Equal(q *Point) bool {
	return p.v.EqualsI(&q.v) == 1
}

// IsIdentity reports whether p is the group identity in constant time.
func (p *Point) IsIdentity() bool {
	var id rst.Point
	id.SetZero()
	return p.v.EqualsI(&id) == 1
}

// BytesInto writes the canonical 32-byte encoding of p into buf.
func (p *Point) BytesInto(buf *[EncodedSize]byte) {
	p.v.BytesInto(buf)
}

// Bytes returns the canonical 32-byte encoding of p.
func (p *Point) Bytes() []byte {
	var buf [EncodedSize]byte
	p.v.BytesInto(&buf)
	return buf[:]
}

// SetBytes decodes a canonical 32-byte point encoding into p,
// rejecting encodings that are not valid ristretto255 elements.
func (p *Point) SetBytes(buf *[EncodedSize]byte) error {
	if !p.v.SetBytes(buf) {
		p.v.SetZero()
		return ErrInvalidPoint
	}
	return nil
}

// Zeroize overwrites p with the identity. Best effort, as for
// Scalar.Zeroize.
func (p *Point) Zeroize() {
	p.v.SetZero()
}
