package mpc

import (
	"github.com/renloq/spdz255/core/math/ristretto"
)

// Visibility tags how much of a value each party holds.
type Visibility uint8

const (
	// Shared marks a value that is additively secret-shared; neither
	// party learns anything from its own share alone.
	Shared Visibility = iota
	// Public marks a value both parties know in the clear. Public
	// shares still carry a MAC share so they compose with shared ones.
	Public
)

func (v Visibility) String() string {
	switch v {
	case Shared:
		return "shared"
	case Public:
		return "public"
	default:
		return "unknown"
	}
}

// Share is one party's authenticated share of a scalar. For a Shared
// value x under session MAC key k,
//
//	value₀ + value₁ = x
//	mac₀ + mac₁ = k·x
//
// For a Public value both parties store the full plaintext in value and
// their own k_i·x in mac, which preserves the MAC sum identity.
//
// Shares are immutable: every arithmetic operation returns a new share.
// A share can only be turned into a plaintext through Session.Open,
// which performs the MAC check.
type Share struct {
	value *ristretto.Scalar
	mac   *ristretto.Scalar
	vis   Visibility
}

func newShare(value, mac *ristretto.Scalar, vis Visibility) *Share {
	return &Share{value: value, mac: mac, vis: vis}
}

// Visibility returns the share's visibility tag.
func (sh *Share) Visibility() Visibility { return sh.vis }

// Clone returns an independent copy of the share.
func (sh *Share) Clone() *Share {
	return newShare(
		ristretto.NewScalar().Set(sh.value),
		ristretto.NewScalar().Set(sh.mac),
		sh.vis,
	)
}

// Zeroize overwrites the share material. Call it on shares that are no
// longer needed; sessions cannot reach caller-held shares on teardown.
func (sh *Share) Zeroize() {
	sh.value.Zeroize()
	sh.mac.Zeroize()
}

// PointShare is the group-element analogue of Share: an authenticated
// share of a ristretto255 point P with mac shares summing to k·P.
type PointShare struct {
	value *ristretto.Point
	mac   *ristretto.Point
	vis   Visibility
}

func newPointShare(value, mac *ristretto.Point, vis Visibility) *PointShare {
	return &PointShare{value: value, mac: mac, vis: vis}
}

// Visibility returns the share's visibility tag.
func (sh *PointShare) Visibility() Visibility { return sh.vis }

// Clone returns an independent copy of the share.
func (sh *PointShare) Clone() *PointShare {
	return newPointShare(
		ristretto.NewPoint().Set(sh.value),
		ristretto.NewPoint().Set(sh.mac),
		sh.vis,
	)
}

// Zeroize overwrites the share material.
func (sh *PointShare) Zeroize() {
	sh.value.Zeroize()
	sh.mac.Zeroize()
}
