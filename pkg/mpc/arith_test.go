package mpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/renloq/spdz255/core/math/ristretto"
)

func TestLinearOpsOpenCorrectly(t *testing.T) {
	s0, s1 := sessionPair(t)
	ctx := context.Background()

	runBoth(t, s0, s1, func(s *Session) error {
		x, err := s.Input(ctx, 0, ownerOnly(s, 0, 7))
		if err != nil {
			return err
		}
		y, err := s.Input(ctx, 1, ownerOnly(s, 1, 6))
		if err != nil {
			return err
		}

		sum := s.Add(x, y)
		diff := s.Sub(x, y)
		shifted := s.AddPublic(x, ristretto.NewScalar().SetUint64(100))
		scaled := s.MulPublic(y, ristretto.NewScalar().SetUint64(10))
		neg := s.Neg(x)
		mixed := s.Add(x, s.PublicUint64(5))

		vals, err := s.Open(ctx, sum, diff, shifted, scaled, mixed)
		if err != nil {
			return err
		}
		assert.Equal(t, uint64(13), vals[0].Uint64())
		assert.Equal(t, uint64(1), vals[1].Uint64())
		assert.Equal(t, uint64(107), vals[2].Uint64())
		assert.Equal(t, uint64(60), vals[3].Uint64())
		assert.Equal(t, uint64(12), vals[4].Uint64())

		// -7 + 7 opens to zero.
		back, err := s.Open(ctx, s.AddPublic(neg, ristretto.NewScalar().SetUint64(7)))
		if err != nil {
			return err
		}
		assert.True(t, back[0].IsZero())
		return nil
	})
}

func TestSubtractingShareFromItselfOpensToZero(t *testing.T) {
	s0, s1 := sessionPair(t)
	ctx := context.Background()

	runBoth(t, s0, s1, func(s *Session) error {
		x, err := s.Input(ctx, 0, ownerOnly(s, 0, 999))
		if err != nil {
			return err
		}
		vals, err := s.Open(ctx, s.Sub(x, x))
		if err != nil {
			return err
		}
		assert.True(t, vals[0].IsZero())
		return nil
	})
}

func TestPublicSharesOpenLocally(t *testing.T) {
	s0, s1 := sessionPair(t)
	ctx := context.Background()

	runBoth(t, s0, s1, func(s *Session) error {
		p := s.PublicUint64(31337)
		assert.Equal(t, Public, p.Visibility())

		vals, err := s.Open(ctx, p)
		if err != nil {
			return err
		}
		assert.Equal(t, uint64(31337), vals[0].Uint64())
		return nil
	})
}

func TestPointShareAlgebra(t *testing.T) {
	s0, s1 := sessionPair(t)
	ctx := context.Background()

	runBoth(t, s0, s1, func(s *Session) error {
		x, err := s.Input(ctx, 0, ownerOnly(s, 0, 3))
		if err != nil {
			return err
		}
		y, err := s.Input(ctx, 1, ownerOnly(s, 1, 5))
		if err != nil {
			return err
		}

		// Lift both scalars and add in the group: (3+5)·G.
		sum := s.AddPoints(s.ScalarBaseMul(x), s.ScalarBaseMul(y))
		doubled := s.MulPublicPoint(sum, ristretto.NewScalar().SetUint64(2))

		pts, err := s.OpenPoints(ctx, sum, doubled)
		if err != nil {
			return err
		}
		eight := ristretto.NewPoint().ScalarBaseMult(ristretto.NewScalar().SetUint64(8))
		sixteen := ristretto.NewPoint().ScalarBaseMult(ristretto.NewScalar().SetUint64(16))
		assert.True(t, pts[0].Equal(eight))
		assert.True(t, pts[1].Equal(sixteen))

		// P - P opens to the identity.
		zero, err := s.OpenPoints(ctx, s.SubPoints(sum, sum))
		if err != nil {
			return err
		}
		assert.True(t, zero[0].IsIdentity())
		return nil
	})
}

func TestInputPoint(t *testing.T) {
	s0, s1 := sessionPair(t)
	ctx := context.Background()

	secret := ristretto.NewPoint().ScalarBaseMult(ristretto.NewScalar().SetUint64(77))

	runBoth(t, s0, s1, func(s *Session) error {
		var mine *ristretto.Point
		if s.Party() == 1 {
			mine = secret
		}
		p, err := s.InputPoint(ctx, 1, mine)
		if err != nil {
			return err
		}
		assert.Equal(t, Shared, p.Visibility())

		pts, err := s.OpenPoints(ctx, p)
		if err != nil {
			return err
		}
		assert.True(t, pts[0].Equal(secret))
		return nil
	})
}
