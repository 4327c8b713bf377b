package beaver

import (
	"io"

	"github.com/pkg/errors"

	"github.com/renloq/spdz255/core/math/ristretto"
	"github.com/renloq/spdz255/core/math/sample"
)

// SeededSource derives triples and the MAC key share deterministically
// from a shared seed. Both parties construct one from the same seed and
// their own party id; because they expand the identical keystream, the
// shares they draw are consistent with each other.
//
// This is strictly test and demo material: either party can reconstruct
// the other's shares from the seed, so it provides no security against
// the counterparty. Production deployments must plug in a supplier
// backed by a real preprocessing protocol.
type SeededSource struct {
	party int
	rng   io.Reader

	key      *ristretto.Scalar
	keyShare *ristretto.Scalar
}

var _ Supplier = (*SeededSource)(nil)

// NewSeededSource builds the insecure deterministic supplier for the
// given party (0 or 1) and seed.
func NewSeededSource(party int, seed [sample.SeedSize]byte) (*SeededSource, error) {
	if party != 0 && party != 1 {
		return nil, errors.Errorf("beaver: invalid party id %d", party)
	}

	rng := sample.NewReader(seed)
	key, err := sample.Scalar(rng)
	if err != nil {
		return nil, err
	}
	keyLow, err := sample.Scalar(rng)
	if err != nil {
		return nil, err
	}

	share := keyLow
	if party == 1 {
		share = ristretto.NewScalar().Sub(key, keyLow)
	}

	return &SeededSource{
		party:    party,
		rng:      rng,
		key:      key,
		keyShare: share,
	}, nil
}

// MacKeyShare implements Supplier.
func (s *SeededSource) MacKeyShare() *ristretto.Scalar {
	return ristretto.NewScalar().Set(s.keyShare)
}

// NextTriple implements Supplier. Both parties must call it in lockstep
// (the same number of times, in the same order) for their streams to
// stay aligned.
func (s *SeededSource) NextTriple() (Triple, error) {
	a, err := sample.Scalar(s.rng)
	if err != nil {
		return Triple{}, err
	}
	b, err := sample.Scalar(s.rng)
	if err != nil {
		return Triple{}, err
	}
	c := ristretto.NewScalar().Mul(a, b)

	var t Triple
	for i, v := range []*ristretto.Scalar{a, b, c} {
		share, err := s.splitAuthenticated(v)
		if err != nil {
			return Triple{}, err
		}
		switch i {
		case 0:
			t.A = share
		case 1:
			t.B = share
		case 2:
			t.C = share
		}
	}
	return t, nil
}

// splitAuthenticated draws the party-0 halves of an additive sharing of
// v and of its MAC, then returns whichever half belongs to this party.
func (s *SeededSource) splitAuthenticated(v *ristretto.Scalar) (ScalarShare, error) {
	mac := ristretto.NewScalar().Mul(s.key, v)

	vLow, err := sample.Scalar(s.rng)
	if err != nil {
		return ScalarShare{}, err
	}
	macLow, err := sample.Scalar(s.rng)
	if err != nil {
		return ScalarShare{}, err
	}

	if s.party == 0 {
		return ScalarShare{Value: vLow, Mac: macLow}, nil
	}
	return ScalarShare{
		Value: ristretto.NewScalar().Sub(v, vLow),
		Mac:   ristretto.NewScalar().Sub(mac, macLow),
	}, nil
}

// Zeroize erases the dealer key material.
func (s *SeededSource) Zeroize() {
	s.key.Zeroize()
	s.keyShare.Zeroize()
}
