package mpc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/renloq/spdz255/core/math/ristretto"
	"github.com/renloq/spdz255/lib/wire"
)

// InputOp is an in-flight secret input contribution.
//
// Inputs ride on a burned triple: its authenticated [a] serves as a
// one-time mask. The other party reveals its mask share to the owner,
// the owner broadcasts δ = x − a, and both parties set [x] = [a] + δ
// using the public-constant rule. The mask is uniform and used once,
// so δ leaks nothing about x.
type InputOp struct {
	s     *Session
	seq   uint64
	owner int

	x    *ristretto.Scalar // owner only
	mask *Share            // the authenticated [a]

	res  *Share
	err  error
	done chan struct{}
}

// BeginInput starts contributing a secret input owned by party owner.
// The owner passes its plaintext x; the other party passes nil. Both
// parties must call BeginInput with the same owner at the same point
// in the operation order.
func (s *Session) BeginInput(owner int, x *ristretto.Scalar) (*InputOp, error) {
	if owner != 0 && owner != 1 {
		return nil, errors.Errorf("mpc: invalid input owner %d", owner)
	}
	if (s.party == owner) != (x != nil) {
		return nil, errors.New("mpc: plaintext must be supplied by the owner only")
	}

	t, err := s.src.NextTriple()
	if err != nil {
		return nil, err
	}
	// [a] becomes the mask; b and c are burned with it.
	t.B.Zeroize()
	t.C.Zeroize()

	op := &InputOp{
		s:     s,
		owner: owner,
		mask:  newShare(t.A.Value, t.A.Mac, Shared),
		done:  make(chan struct{}),
	}

	seq, err := s.reserveSeq()
	if err != nil {
		return nil, err
	}
	op.seq = seq

	if s.party == owner {
		op.x = ristretto.NewScalar().Set(x)
	} else {
		var word wire.Word
		op.mask.value.BytesInto((*[32]byte)(&word))
		if err := s.sendMsg(wire.KindInputMask, seq, []wire.Word{word}); err != nil {
			return nil, s.abort(err)
		}
	}
	if err := s.activate(seq, op); err != nil {
		return nil, err
	}
	return op, nil
}

// Input contributes a secret input and waits for the resulting share.
func (s *Session) Input(ctx context.Context, owner int, x *ristretto.Scalar) (*Share, error) {
	op, err := s.BeginInput(owner, x)
	if err != nil {
		return nil, err
	}
	return op.Await(ctx)
}

func (op *InputOp) handle(msg *wire.Message) error {
	if len(msg.Words) != 1 {
		return op.fail(errors.WithMessage(ErrProtocolViolation, "input message size mismatch"))
	}
	word := ristretto.NewScalar()
	if err := word.SetBytes((*[32]byte)(&msg.Words[0])); err != nil {
		return op.fail(errors.WithMessage(ErrProtocolViolation, err.Error()))
	}

	mine := op.s.party == op.owner
	switch {
	case mine && msg.Kind == wire.KindInputMask:
		// Reconstruct the mask, publish the correction.
		a := ristretto.NewScalar().Add(op.mask.value, word)
		delta := ristretto.NewScalar().Sub(op.x, a)
		a.Zeroize()
		op.x.Zeroize()

		var out wire.Word
		delta.BytesInto((*[32]byte)(&out))
		if err := op.s.sendMsg(wire.KindInputDelta, op.seq, []wire.Word{out}); err != nil {
			return op.fail(err)
		}
		op.finish(delta)
		return nil

	case !mine && msg.Kind == wire.KindInputDelta:
		op.finish(word)
		return nil

	default:
		return op.fail(errors.WithMessage(ErrProtocolViolation, "unexpected message kind in input"))
	}
}

// finish applies the public correction to the mask share. The mask's
// MAC carries over, so the result is authenticated without a check.
func (op *InputOp) finish(delta *ristretto.Scalar) {
	op.res = op.s.AddPublic(op.mask, delta)
	op.mask.Zeroize()
	op.s.retire(op.seq)
	close(op.done)
}

func (op *InputOp) fail(err error) error {
	op.err = err
	op.s.retire(op.seq)
	close(op.done)
	return err
}

// Await blocks until the input share is established.
func (op *InputOp) Await(ctx context.Context) (*Share, error) {
	select {
	case <-op.done:
	case <-op.s.ctx.Done():
		select {
		case <-op.done:
		default:
			return nil, op.s.failure()
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if op.err != nil {
		return nil, op.err
	}
	return op.res, nil
}

// InputPointOp is the group-element analogue of InputOp: the owner
// contributes a secret point, masked by the lift [a·G] of a burned
// triple's [a].
type InputPointOp struct {
	s     *Session
	seq   uint64
	owner int

	p    *ristretto.Point
	mask *PointShare

	res  *PointShare
	err  error
	done chan struct{}
}

// BeginInputPoint starts contributing a secret point owned by party
// owner. The non-owner reveals a_i·G rather than a_i, which is all the
// owner needs to unmask.
func (s *Session) BeginInputPoint(owner int, p *ristretto.Point) (*InputPointOp, error) {
	if owner != 0 && owner != 1 {
		return nil, errors.Errorf("mpc: invalid input owner %d", owner)
	}
	if (s.party == owner) != (p != nil) {
		return nil, errors.New("mpc: plaintext must be supplied by the owner only")
	}

	t, err := s.src.NextTriple()
	if err != nil {
		return nil, err
	}
	t.B.Zeroize()
	t.C.Zeroize()
	maskScalar := newShare(t.A.Value, t.A.Mac, Shared)

	op := &InputPointOp{
		s:     s,
		owner: owner,
		mask:  s.ScalarBaseMul(maskScalar),
		done:  make(chan struct{}),
	}
	maskScalar.Zeroize()

	seq, err := s.reserveSeq()
	if err != nil {
		return nil, err
	}
	op.seq = seq

	if s.party == owner {
		op.p = ristretto.NewPoint().Set(p)
	} else {
		var word wire.Word
		op.mask.value.BytesInto((*[32]byte)(&word))
		if err := s.sendMsg(wire.KindInputMask, seq, []wire.Word{word}); err != nil {
			return nil, s.abort(err)
		}
	}
	if err := s.activate(seq, op); err != nil {
		return nil, err
	}
	return op, nil
}

// InputPoint contributes a secret point and waits for the resulting
// share.
func (s *Session) InputPoint(ctx context.Context, owner int, p *ristretto.Point) (*PointShare, error) {
	op, err := s.BeginInputPoint(owner, p)
	if err != nil {
		return nil, err
	}
	return op.Await(ctx)
}

func (op *InputPointOp) handle(msg *wire.Message) error {
	if len(msg.Words) != 1 {
		return op.fail(errors.WithMessage(ErrProtocolViolation, "input message size mismatch"))
	}
	word := ristretto.NewPoint()
	if err := word.SetBytes((*[32]byte)(&msg.Words[0])); err != nil {
		return op.fail(errors.WithMessage(ErrProtocolViolation, err.Error()))
	}

	mine := op.s.party == op.owner
	switch {
	case mine && msg.Kind == wire.KindInputMask:
		aG := ristretto.NewPoint().Add(op.mask.value, word)
		delta := ristretto.NewPoint().Sub(op.p, aG)
		op.p.Zeroize()

		var out wire.Word
		delta.BytesInto((*[32]byte)(&out))
		if err := op.s.sendMsg(wire.KindInputDelta, op.seq, []wire.Word{out}); err != nil {
			return op.fail(err)
		}
		op.finish(delta)
		return nil

	case !mine && msg.Kind == wire.KindInputDelta:
		op.finish(word)
		return nil

	default:
		return op.fail(errors.WithMessage(ErrProtocolViolation, "unexpected message kind in input"))
	}
}

func (op *InputPointOp) finish(delta *ristretto.Point) {
	op.res = op.s.AddPoints(op.mask, op.s.PublicPoint(delta))
	op.mask.Zeroize()
	op.s.retire(op.seq)
	close(op.done)
}

func (op *InputPointOp) fail(err error) error {
	op.err = err
	op.s.retire(op.seq)
	close(op.done)
	return err
}

// Await blocks until the input share is established.
func (op *InputPointOp) Await(ctx context.Context) (*PointShare, error) {
	select {
	case <-op.done:
	case <-op.s.ctx.Done():
		select {
		case <-op.done:
		default:
			return nil, op.s.failure()
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if op.err != nil {
		return nil, op.err
	}
	return op.res, nil
}
