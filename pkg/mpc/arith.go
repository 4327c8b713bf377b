package mpc

import (
	"github.com/renloq/spdz255/core/math/ristretto"
)

// Local share arithmetic. None of these touch the network: because the
// MAC is linear in the value, linear operations on (value, mac) pairs
// preserve the authentication invariant without interaction.
//
// Public constants follow the usual two-party convention: party 0 folds
// the constant into its value share while party 1 leaves its share
// untouched, and both parties fold k_i·c into their MAC shares.

// Public wraps a plaintext scalar both parties know into a share.
func (s *Session) Public(v *ristretto.Scalar) *Share {
	mac := ristretto.NewScalar().Mul(s.keyShare(), v)
	return newShare(ristretto.NewScalar().Set(v), mac, Public)
}

// PublicUint64 is a convenience for Public over small integers.
func (s *Session) PublicUint64(v uint64) *Share {
	return s.Public(ristretto.NewScalar().SetUint64(v))
}

// Add returns a share of a + b.
func (s *Session) Add(a, b *Share) *Share {
	switch {
	case a.vis == Public && b.vis == Public,
		a.vis == Shared && b.vis == Shared:
		return newShare(
			ristretto.NewScalar().Add(a.value, b.value),
			ristretto.NewScalar().Add(a.mac, b.mac),
			a.vis,
		)
	case a.vis == Public:
		return s.Add(b, a)
	default:
		// a is shared, b is public.
		value := ristretto.NewScalar().Set(a.value)
		if s.party == 0 {
			value.Add(value, b.value)
		}
		return newShare(value, ristretto.NewScalar().Add(a.mac, b.mac), Shared)
	}
}

// Neg returns a share of -a.
func (s *Session) Neg(a *Share) *Share {
	return newShare(
		ristretto.NewScalar().Neg(a.value),
		ristretto.NewScalar().Neg(a.mac),
		a.vis,
	)
}

// Sub returns a share of a - b.
func (s *Session) Sub(a, b *Share) *Share {
	return s.Add(a, s.Neg(b))
}

// AddPublic returns a share of a + c for a public constant c.
func (s *Session) AddPublic(a *Share, c *ristretto.Scalar) *Share {
	return s.Add(a, s.Public(c))
}

// SubPublic returns a share of a - c for a public constant c.
func (s *Session) SubPublic(a *Share, c *ristretto.Scalar) *Share {
	return s.Sub(a, s.Public(c))
}

// MulPublic returns a share of a·c for a public constant c. Scaling
// both components keeps the MAC aligned whatever a's visibility.
func (s *Session) MulPublic(a *Share, c *ristretto.Scalar) *Share {
	return newShare(
		ristretto.NewScalar().Mul(a.value, c),
		ristretto.NewScalar().Mul(a.mac, c),
		a.vis,
	)
}

// PublicPoint wraps a plaintext group element into a point share.
func (s *Session) PublicPoint(p *ristretto.Point) *PointShare {
	mac := ristretto.NewPoint().ScalarMult(p, s.keyShare())
	return newPointShare(ristretto.NewPoint().Set(p), mac, Public)
}

// AddPoints returns a share of P + Q.
func (s *Session) AddPoints(a, b *PointShare) *PointShare {
	switch {
	case a.vis == Public && b.vis == Public,
		a.vis == Shared && b.vis == Shared:
		return newPointShare(
			ristretto.NewPoint().Add(a.value, b.value),
			ristretto.NewPoint().Add(a.mac, b.mac),
			a.vis,
		)
	case a.vis == Public:
		return s.AddPoints(b, a)
	default:
		value := ristretto.NewPoint().Set(a.value)
		if s.party == 0 {
			value.Add(value, b.value)
		}
		return newPointShare(value, ristretto.NewPoint().Add(a.mac, b.mac), Shared)
	}
}

// NegPoint returns a share of -P.
func (s *Session) NegPoint(a *PointShare) *PointShare {
	return newPointShare(
		ristretto.NewPoint().Neg(a.value),
		ristretto.NewPoint().Neg(a.mac),
		a.vis,
	)
}

// SubPoints returns a share of P - Q.
func (s *Session) SubPoints(a, b *PointShare) *PointShare {
	return s.AddPoints(a, s.NegPoint(b))
}

// MulPublicPoint returns a share of c·P for a public scalar c.
func (s *Session) MulPublicPoint(a *PointShare, c *ristretto.Scalar) *PointShare {
	return newPointShare(
		ristretto.NewPoint().ScalarMult(a.value, c),
		ristretto.NewPoint().ScalarMult(a.mac, c),
		a.vis,
	)
}

// ScalarBaseMul lifts a scalar share of x to a point share of x·G.
// Both components move through the same homomorphism, so the MAC sum
// becomes k·x·G as required.
func (s *Session) ScalarBaseMul(a *Share) *PointShare {
	return newPointShare(
		ristretto.NewPoint().ScalarBaseMult(a.value),
		ristretto.NewPoint().ScalarBaseMult(a.mac),
		a.vis,
	)
}

// ScalarPointMul returns a share of x·P for a scalar share of x and a
// plaintext point P.
func (s *Session) ScalarPointMul(a *Share, p *ristretto.Point) *PointShare {
	return newPointShare(
		ristretto.NewPoint().ScalarMult(p, a.value),
		ristretto.NewPoint().ScalarMult(p, a.mac),
		a.vis,
	)
}
