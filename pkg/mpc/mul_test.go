package mpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renloq/spdz255/core/beaver"
	"github.com/renloq/spdz255/core/math/ristretto"
)

func TestMulSevenTimesSix(t *testing.T) {
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

		z, err := s.Mul(ctx, x, y)
		if err != nil {
			return err
		}
		assert.Equal(t, Shared, z.Visibility())

		vals, err := s.Open(ctx, z)
		if err != nil {
			return err
		}
		assert.Equal(t, uint64(42), vals[0].Uint64())
		return nil
	})
}

// A batch must produce the same products as issuing the
// multiplications one by one: batching only changes message framing.
func TestMulBatchMatchesSequential(t *testing.T) {
	s0, s1 := sessionPair(t)
	ctx := context.Background()

	inputs := [][2]uint64{{2, 3}, {10, 10}, {1, 0}, {12345, 2}}

	runBoth(t, s0, s1, func(s *Session) error {
		var xs, ys []*Share
		for _, pair := range inputs {
			x, err := s.Input(ctx, 0, ownerOnly(s, 0, pair[0]))
			if err != nil {
				return err
			}
			y, err := s.Input(ctx, 1, ownerOnly(s, 1, pair[1]))
			if err != nil {
				return err
			}
			xs = append(xs, x)
			ys = append(ys, y)
		}

		batched, err := s.MulBatch(ctx, xs, ys)
		if err != nil {
			return err
		}
		var single []*Share
		for i := range xs {
			z, err := s.Mul(ctx, xs[i], ys[i])
			if err != nil {
				return err
			}
			single = append(single, z)
		}

		opened, err := s.Open(ctx, append(batched, single...)...)
		if err != nil {
			return err
		}
		for i, pair := range inputs {
			want := pair[0] * pair[1]
			assert.Equal(t, want, opened[i].Uint64(), "batched product %d", i)
			assert.Equal(t, want, opened[len(inputs)+i].Uint64(), "sequential product %d", i)
		}
		return nil
	})
}

func TestMulWithPublicOperands(t *testing.T) {
	s0, s1 := sessionPair(t)
	ctx := context.Background()

	runBoth(t, s0, s1, func(s *Session) error {
		x, err := s.Input(ctx, 0, ownerOnly(s, 0, 9))
		if err != nil {
			return err
		}

		// Neither of these consumes a triple.
		half, err := s.Mul(ctx, x, s.PublicUint64(4))
		if err != nil {
			return err
		}
		both, err := s.Mul(ctx, s.PublicUint64(3), s.PublicUint64(5))
		if err != nil {
			return err
		}
		assert.Equal(t, Public, both.Visibility())

		vals, err := s.Open(ctx, half, both)
		if err != nil {
			return err
		}
		assert.Equal(t, uint64(36), vals[0].Uint64())
		assert.Equal(t, uint64(15), vals[1].Uint64())
		return nil
	})
}

func TestMulPoint(t *testing.T) {
	s0, s1 := sessionPair(t)
	ctx := context.Background()

	secret := ristretto.NewPoint().ScalarBaseMult(ristretto.NewScalar().SetUint64(11))

	runBoth(t, s0, s1, func(s *Session) error {
		x, err := s.Input(ctx, 0, ownerOnly(s, 0, 13))
		if err != nil {
			return err
		}
		var mine *ristretto.Point
		if s.Party() == 1 {
			mine = secret
		}
		p, err := s.InputPoint(ctx, 1, mine)
		if err != nil {
			return err
		}

		z, err := s.MulPoint(ctx, x, p)
		if err != nil {
			return err
		}
		pts, err := s.OpenPoints(ctx, z)
		if err != nil {
			return err
		}
		want := ristretto.NewPoint().ScalarBaseMult(ristretto.NewScalar().SetUint64(13 * 11))
		assert.True(t, pts[0].Equal(want))
		return nil
	})
}

// Running out of triples fails the multiplication but leaves the
// session running: preprocessing exhaustion is caller-recoverable.
func TestTripleExhaustionIsNotFatal(t *testing.T) {
	src0, src1 := testSources(t)
	s0, s1 := sessionPairWith(t, beaver.Limit(src0, 2), beaver.Limit(src1, 2))
	ctx := context.Background()

	runBoth(t, s0, s1, func(s *Session) error {
		// The two inputs burn the whole allowance.
		x, err := s.Input(ctx, 0, ownerOnly(s, 0, 7))
		if err != nil {
			return err
		}
		y, err := s.Input(ctx, 1, ownerOnly(s, 1, 6))
		if err != nil {
			return err
		}

		_, err = s.BeginMul(x, y)
		require.ErrorIs(t, err, ErrPreprocessingExhausted)
		require.Equal(t, StateRunning, s.State())

		// Linear work still goes through.
		vals, err := s.Open(ctx, s.Add(x, y))
		if err != nil {
			return err
		}
		assert.Equal(t, uint64(13), vals[0].Uint64())
		return nil
	})
}
