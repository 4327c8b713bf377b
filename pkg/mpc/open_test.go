package mpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renloq/spdz255/core/math/ristretto"
)

// A corrupted value share must be caught by the MAC check on both
// sides, and the failure must poison the session.
func TestTamperedValueShareAborts(t *testing.T) {
	testTamperedOpen(t, func(sh *Share) {
		sh.value.Add(sh.value, ristretto.NewScalar().SetOne())
	})
}

func TestTamperedMacShareAborts(t *testing.T) {
	testTamperedOpen(t, func(sh *Share) {
		sh.mac.Add(sh.mac, ristretto.NewScalar().SetOne())
	})
}

func testTamperedOpen(t *testing.T, corrupt func(*Share)) {
	t.Helper()
	s0, s1 := sessionPair(t)
	ctx := context.Background()

	e0, e1 := runBothErr(s0, s1, func(s *Session) error {
		x, err := s.Input(ctx, 0, ownerOnly(s, 0, 7))
		if err != nil {
			return err
		}
		if s.Party() == 0 {
			corrupt(x)
		}
		_, err = s.Open(ctx, x)
		return err
	})
	require.ErrorIs(t, e0, ErrAuthenticationFailure)
	require.ErrorIs(t, e1, ErrAuthenticationFailure)

	assert.Equal(t, StateAborted, s0.State())
	assert.Equal(t, StateAborted, s1.State())
	assert.ErrorIs(t, s0.Err(), ErrAuthenticationFailure)
	assert.ErrorIs(t, s1.Err(), ErrAuthenticationFailure)

	// The abort is permanent.
	_, err := s0.BeginInput(0, ristretto.NewScalar().SetOne())
	assert.ErrorIs(t, err, ErrSessionAborted)
	_, err = s1.BeginInput(0, nil)
	assert.ErrorIs(t, err, ErrSessionAborted)
}

// A tampered point share trips the group-element MAC check the same
// way.
func TestTamperedPointShareAborts(t *testing.T) {
	s0, s1 := sessionPair(t)
	ctx := context.Background()

	e0, e1 := runBothErr(s0, s1, func(s *Session) error {
		x, err := s.Input(ctx, 0, ownerOnly(s, 0, 5))
		if err != nil {
			return err
		}
		p := s.ScalarBaseMul(x)
		if s.Party() == 1 {
			p.value.Add(p.value, ristretto.NewPoint().SetBase())
		}
		_, err = s.OpenPoints(ctx, p)
		return err
	})
	require.ErrorIs(t, e0, ErrAuthenticationFailure)
	require.ErrorIs(t, e1, ErrAuthenticationFailure)
}
