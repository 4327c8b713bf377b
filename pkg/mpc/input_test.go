package mpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/renloq/spdz255/core/math/ristretto"
)

func TestInputOwnerContract(t *testing.T) {
	s0, s1 := sessionPair(t)
	_ = s1

	_, err := s0.BeginInput(5, ristretto.NewScalar().SetOne())
	assert.Error(t, err)

	// The owner must supply a plaintext.
	_, err = s0.BeginInput(0, nil)
	assert.Error(t, err)

	// The other party must not.
	_, err = s0.BeginInput(1, ristretto.NewScalar().SetOne())
	assert.Error(t, err)
}

func TestInputRoundTrip(t *testing.T) {
	s0, s1 := sessionPair(t)
	ctx := context.Background()

	runBoth(t, s0, s1, func(s *Session) error {
		x, err := s.Input(ctx, 0, ownerOnly(s, 0, 12345))
		if err != nil {
			return err
		}
		assert.Equal(t, Shared, x.Visibility())

		vals, err := s.Open(ctx, x)
		if err != nil {
			return err
		}
		assert.Equal(t, uint64(12345), vals[0].Uint64())
		return nil
	})
}

// Inputs from both owners interleave freely with other operations.
func TestInterleavedInputs(t *testing.T) {
	s0, s1 := sessionPair(t)
	ctx := context.Background()

	runBoth(t, s0, s1, func(s *Session) error {
		a, err := s.BeginInput(0, ownerOnly(s, 0, 1))
		if err != nil {
			return err
		}
		b, err := s.BeginInput(1, ownerOnly(s, 1, 2))
		if err != nil {
			return err
		}
		c, err := s.BeginInput(0, ownerOnly(s, 0, 3))
		if err != nil {
			return err
		}

		sc, err := c.Await(ctx)
		if err != nil {
			return err
		}
		sa, err := a.Await(ctx)
		if err != nil {
			return err
		}
		sb, err := b.Await(ctx)
		if err != nil {
			return err
		}

		vals, err := s.Open(ctx, s.Add(s.Add(sa, sb), sc))
		if err != nil {
			return err
		}
		assert.Equal(t, uint64(6), vals[0].Uint64())
		return nil
	})
}
