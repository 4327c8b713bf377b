package mpc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/renloq/spdz255/core/beaver"
	"github.com/renloq/spdz255/core/math/ristretto"
)

// MulOp is an in-flight batched multiplication of share pairs.
//
// Each shared×shared product burns one Beaver triple (a, b, c=ab):
// both parties open d = x−a and e = y−b, then recombine locally as
// z = c + e·x + d·y − d·e, with the MAC share tracking the same
// identity under k_i. All masked differences of the batch travel in a
// single open round trip.
type MulOp struct {
	s    *Session
	open *OpenOp

	xs, ys  []*Share
	triples []beaver.Triple
	net     []int // pair indices that consumed a triple

	res []*Share // fast-path results, filled at issue time
}

// BeginMulBatch starts multiplying xs[i]·ys[i] pairwise. Pairs with a
// Public operand are resolved locally and consume no triple.
//
// Exhaustion of the triple supply fails the batch with
// ErrPreprocessingExhausted before anything is sent; the session stays
// usable.
func (s *Session) BeginMulBatch(xs, ys []*Share) (*MulOp, error) {
	if len(xs) != len(ys) {
		return nil, errors.New("mpc: multiplication batch length mismatch")
	}
	op := &MulOp{
		s:   s,
		xs:  append([]*Share(nil), xs...),
		ys:  append([]*Share(nil), ys...),
		res: make([]*Share, len(xs)),
	}

	var masked []*Share
	for i := range xs {
		x, y := xs[i], ys[i]
		switch {
		case x.vis == Public && y.vis == Public:
			op.res[i] = s.Public(ristretto.NewScalar().Mul(x.value, y.value))
		case x.vis == Public:
			op.res[i] = s.MulPublic(y, x.value)
		case y.vis == Public:
			op.res[i] = s.MulPublic(x, y.value)
		default:
			t, err := s.src.NextTriple()
			if err != nil {
				for _, used := range op.triples {
					used.Zeroize()
				}
				return nil, err
			}
			op.triples = append(op.triples, t)
			op.net = append(op.net, i)
			masked = append(masked,
				s.Sub(x, newShare(t.A.Value, t.A.Mac, Shared)),
				s.Sub(y, newShare(t.B.Value, t.B.Mac, Shared)),
			)
		}
	}

	open, err := s.BeginOpen(masked...)
	if err != nil {
		return nil, err
	}
	op.open = open
	return op, nil
}

// BeginMul starts a single multiplication.
func (s *Session) BeginMul(x, y *Share) (*MulOp, error) {
	return s.BeginMulBatch([]*Share{x}, []*Share{y})
}

// Mul multiplies two shares and waits for the result.
func (s *Session) Mul(ctx context.Context, x, y *Share) (*Share, error) {
	op, err := s.BeginMul(x, y)
	if err != nil {
		return nil, err
	}
	res, err := op.Await(ctx)
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

// MulBatch multiplies share pairs and waits for the results.
func (s *Session) MulBatch(ctx context.Context, xs, ys []*Share) ([]*Share, error) {
	op, err := s.BeginMulBatch(xs, ys)
	if err != nil {
		return nil, err
	}
	return op.Await(ctx)
}

// Await blocks until the batch's masked differences are opened and
// verified, then recombines the products.
func (op *MulOp) Await(ctx context.Context) ([]*Share, error) {
	vals, err := op.open.Await(ctx)
	if err != nil {
		return nil, err
	}

	key := op.s.keyShare()
	defer key.Zeroize()

	for w, i := range op.net {
		d, e := vals[2*w], vals[2*w+1]
		x, y, t := op.xs[i], op.ys[i], op.triples[w]

		// z_i = c_i + e·x_i + d·y_i − d·e  (the d·e term enters once,
		// via party 0).
		z := ristretto.NewScalar().Set(t.C.Value)
		z.Add(z, ristretto.NewScalar().Mul(e, x.value))
		z.Add(z, ristretto.NewScalar().Mul(d, y.value))

		de := ristretto.NewScalar().Mul(d, e)
		if op.s.party == 0 {
			z.Sub(z, de)
		}

		// m_i = mc_i + e·mx_i + d·my_i − k_i·d·e
		m := ristretto.NewScalar().Set(t.C.Mac)
		m.Add(m, ristretto.NewScalar().Mul(e, x.mac))
		m.Add(m, ristretto.NewScalar().Mul(d, y.mac))
		m.Sub(m, ristretto.NewScalar().Mul(key, de))

		op.res[i] = newShare(z, m, Shared)
		t.Zeroize()
	}
	op.triples, op.net = nil, nil
	return op.res, nil
}

// MulPointOp is an in-flight multiplication of a scalar share with a
// point share.
type MulPointOp struct {
	s *Session

	openD *OpenOp      // d = x − a
	openE *OpenPointOp // E = P − b·G

	x *Share
	p *PointShare
	t beaver.Triple

	res *PointShare // fast-path result
}

// BeginMulPoint starts computing a share of x·P from a scalar share
// and a point share. The same triple algebra applies in the exponent:
// with d = x−a and E = P−bG opened,
//
//	x·P = a·E + c·G + d·b·G + d·E
//
// and every term on the right is either public or locally computable
// from held shares.
func (s *Session) BeginMulPoint(x *Share, p *PointShare) (*MulPointOp, error) {
	op := &MulPointOp{s: s, x: x, p: p}

	switch {
	case x.vis == Public:
		op.res = s.MulPublicPoint(p, x.value)
		return op, nil
	case p.vis == Public:
		op.res = s.ScalarPointMul(x, p.value)
		return op, nil
	}

	t, err := s.src.NextTriple()
	if err != nil {
		return nil, err
	}
	op.t = t

	openD, err := s.BeginOpen(s.Sub(x, newShare(t.A.Value, t.A.Mac, Shared)))
	if err != nil {
		return nil, err
	}
	bG := s.ScalarBaseMul(newShare(t.B.Value, t.B.Mac, Shared))
	openE, err := s.BeginOpenPoints(s.SubPoints(p, bG))
	if err != nil {
		return nil, err
	}
	op.openD, op.openE = openD, openE
	return op, nil
}

// MulPoint multiplies a scalar share with a point share and waits for
// the result.
func (s *Session) MulPoint(ctx context.Context, x *Share, p *PointShare) (*PointShare, error) {
	op, err := s.BeginMulPoint(x, p)
	if err != nil {
		return nil, err
	}
	return op.Await(ctx)
}

// Await blocks until both masked openings complete, then recombines.
func (op *MulPointOp) Await(ctx context.Context) (*PointShare, error) {
	if op.res != nil {
		return op.res, nil
	}
	ds, err := op.openD.Await(ctx)
	if err != nil {
		return nil, err
	}
	es, err := op.openE.Await(ctx)
	if err != nil {
		return nil, err
	}
	d, e := ds[0], es[0]

	key := op.s.keyShare()
	defer key.Zeroize()

	// z_i = a_i·E + c_i·G + d·b_i·G + d·E  (d·E enters via party 0)
	z := ristretto.NewPoint().ScalarMult(e, op.t.A.Value)
	z.Add(z, ristretto.NewPoint().ScalarBaseMult(op.t.C.Value))
	z.Add(z, ristretto.NewPoint().ScalarBaseMult(ristretto.NewScalar().Mul(d, op.t.B.Value)))

	dE := ristretto.NewPoint().ScalarMult(e, d)
	if op.s.party == 0 {
		z.Add(z, dE)
	}

	// m_i = ma_i·E + mc_i·G + d·mb_i·G + k_i·d·E
	m := ristretto.NewPoint().ScalarMult(e, op.t.A.Mac)
	m.Add(m, ristretto.NewPoint().ScalarBaseMult(op.t.C.Mac))
	m.Add(m, ristretto.NewPoint().ScalarBaseMult(ristretto.NewScalar().Mul(d, op.t.B.Mac)))
	m.Add(m, ristretto.NewPoint().ScalarMult(dE, key))

	op.t.Zeroize()
	op.res = newPointShare(z, m, Shared)
	return op.res, nil
}
