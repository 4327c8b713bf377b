package mpc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/renloq/spdz255/core/math/ristretto"
	"github.com/renloq/spdz255/lib/wire"
)

// OpenOp is an in-flight batched open of scalar shares.
type OpenOp struct {
	s   *Session
	seq uint64

	shares []*Share
	net    []int // indices that require the two-phase exchange

	sigma []*ristretto.Scalar // local MAC checks, set on the share phase

	res  []*ristretto.Scalar
	err  error
	done chan struct{}
}

// BeginOpen starts opening a batch of shares. The returned operation
// must eventually be awaited. Public shares in the batch are resolved
// locally; only Shared entries cost communication.
func (s *Session) BeginOpen(shares ...*Share) (*OpenOp, error) {
	op := &OpenOp{
		s:      s,
		shares: append([]*Share(nil), shares...),
		res:    make([]*ristretto.Scalar, len(shares)),
		done:   make(chan struct{}),
	}
	for i, sh := range shares {
		if sh == nil || sh.value == nil {
			return nil, errors.New("mpc: open of zero-valued share")
		}
		if sh.vis == Public {
			op.res[i] = ristretto.NewScalar().Set(sh.value)
			continue
		}
		op.net = append(op.net, i)
	}
	if len(op.net) == 0 {
		close(op.done)
		return op, nil
	}

	seq, err := s.reserveSeq()
	if err != nil {
		return nil, err
	}
	op.seq = seq

	words := make([]wire.Word, len(op.net))
	for w, i := range op.net {
		shares[i].value.BytesInto((*[32]byte)(&words[w]))
	}
	if err := s.sendMsg(wire.KindOpenShare, seq, words); err != nil {
		return nil, s.abort(err)
	}
	if err := s.activate(seq, op); err != nil {
		return nil, err
	}
	return op, nil
}

// Open opens a batch of shares and waits for the result.
func (s *Session) Open(ctx context.Context, shares ...*Share) ([]*ristretto.Scalar, error) {
	op, err := s.BeginOpen(shares...)
	if err != nil {
		return nil, err
	}
	return op.Await(ctx)
}

func (op *OpenOp) handle(msg *wire.Message) error {
	switch msg.Kind {
	case wire.KindOpenShare:
		return op.onShares(msg)
	case wire.KindOpenCheck:
		return op.onCheck(msg)
	default:
		return op.fail(errors.WithMessage(ErrProtocolViolation, "unexpected message kind in open"))
	}
}

// onShares combines the peer's value shares with ours, derives the
// local MAC checks and sends them. The plaintexts are now fixed; they
// are released only if the check phase succeeds.
func (op *OpenOp) onShares(msg *wire.Message) error {
	if op.sigma != nil {
		return op.fail(errors.WithMessage(ErrProtocolViolation, "duplicate share message"))
	}
	if len(msg.Words) != len(op.net) {
		return op.fail(errors.WithMessage(ErrProtocolViolation, "open batch size mismatch"))
	}

	key := op.s.keyShare()
	defer key.Zeroize()

	op.sigma = make([]*ristretto.Scalar, len(op.net))
	words := make([]wire.Word, len(op.net))
	for w, i := range op.net {
		theirs := ristretto.NewScalar()
		if err := theirs.SetBytes((*[32]byte)(&msg.Words[w])); err != nil {
			return op.fail(errors.WithMessage(ErrProtocolViolation, err.Error()))
		}
		v := ristretto.NewScalar().Add(op.shares[i].value, theirs)

		// sigma = mac - k*v; the two parties' sigmas sum to zero iff
		// the opened value matches its MAC.
		sigma := ristretto.NewScalar().Mul(key, v)
		sigma.Sub(op.shares[i].mac, sigma)

		op.res[i] = v
		op.sigma[w] = sigma
		sigma.BytesInto((*[32]byte)(&words[w]))
	}
	if err := op.s.sendMsg(wire.KindOpenCheck, op.seq, words); err != nil {
		return op.fail(err)
	}
	return nil
}

// onCheck verifies that the peer's MAC checks cancel ours. Any
// mismatch is treated as tampering and aborts the session.
func (op *OpenOp) onCheck(msg *wire.Message) error {
	if op.sigma == nil {
		return op.fail(errors.WithMessage(ErrProtocolViolation, "check before shares"))
	}
	if len(msg.Words) != len(op.net) {
		return op.fail(errors.WithMessage(ErrProtocolViolation, "check batch size mismatch"))
	}

	ok := true
	for w := range op.net {
		theirs := ristretto.NewScalar()
		if err := theirs.SetBytes((*[32]byte)(&msg.Words[w])); err != nil {
			return op.fail(errors.WithMessage(ErrProtocolViolation, err.Error()))
		}
		sum := ristretto.NewScalar().Add(op.sigma[w], theirs)
		ok = ok && sum.IsZero()
	}
	if !ok {
		return op.fail(ErrAuthenticationFailure)
	}
	op.resolve()
	return nil
}

func (op *OpenOp) resolve() {
	op.s.retire(op.seq)
	close(op.done)
}

func (op *OpenOp) fail(err error) error {
	op.err = err
	op.s.retire(op.seq)
	close(op.done)
	return err
}

// Await blocks until the open completes, the session dies, or ctx is
// cancelled. On success it returns the plaintexts in batch order.
func (op *OpenOp) Await(ctx context.Context) ([]*ristretto.Scalar, error) {
	select {
	case <-op.done:
	case <-op.s.ctx.Done():
		// The failing operation resolves before the session is torn
		// down, so prefer its verdict over the generic abort.
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

// OpenPointOp is an in-flight batched open of point shares.
type OpenPointOp struct {
	s   *Session
	seq uint64

	shares []*PointShare
	net    []int

	sigma []*ristretto.Point

	res  []*ristretto.Point
	err  error
	done chan struct{}
}

// BeginOpenPoints starts opening a batch of point shares.
func (s *Session) BeginOpenPoints(shares ...*PointShare) (*OpenPointOp, error) {
	op := &OpenPointOp{
		s:      s,
		shares: append([]*PointShare(nil), shares...),
		res:    make([]*ristretto.Point, len(shares)),
		done:   make(chan struct{}),
	}
	for i, sh := range shares {
		if sh == nil || sh.value == nil {
			return nil, errors.New("mpc: open of zero-valued point share")
		}
		if sh.vis == Public {
			op.res[i] = ristretto.NewPoint().Set(sh.value)
			continue
		}
		op.net = append(op.net, i)
	}
	if len(op.net) == 0 {
		close(op.done)
		return op, nil
	}

	seq, err := s.reserveSeq()
	if err != nil {
		return nil, err
	}
	op.seq = seq

	words := make([]wire.Word, len(op.net))
	for w, i := range op.net {
		shares[i].value.BytesInto((*[32]byte)(&words[w]))
	}
	if err := s.sendMsg(wire.KindOpenShare, seq, words); err != nil {
		return nil, s.abort(err)
	}
	if err := s.activate(seq, op); err != nil {
		return nil, err
	}
	return op, nil
}

// OpenPoints opens a batch of point shares and waits for the result.
func (s *Session) OpenPoints(ctx context.Context, shares ...*PointShare) ([]*ristretto.Point, error) {
	op, err := s.BeginOpenPoints(shares...)
	if err != nil {
		return nil, err
	}
	return op.Await(ctx)
}

func (op *OpenPointOp) handle(msg *wire.Message) error {
	switch msg.Kind {
	case wire.KindOpenShare:
		return op.onShares(msg)
	case wire.KindOpenCheck:
		return op.onCheck(msg)
	default:
		return op.fail(errors.WithMessage(ErrProtocolViolation, "unexpected message kind in open"))
	}
}

func (op *OpenPointOp) onShares(msg *wire.Message) error {
	if op.sigma != nil {
		return op.fail(errors.WithMessage(ErrProtocolViolation, "duplicate share message"))
	}
	if len(msg.Words) != len(op.net) {
		return op.fail(errors.WithMessage(ErrProtocolViolation, "open batch size mismatch"))
	}

	key := op.s.keyShare()
	defer key.Zeroize()

	op.sigma = make([]*ristretto.Point, len(op.net))
	words := make([]wire.Word, len(op.net))
	for w, i := range op.net {
		theirs := ristretto.NewPoint()
		if err := theirs.SetBytes((*[32]byte)(&msg.Words[w])); err != nil {
			return op.fail(errors.WithMessage(ErrProtocolViolation, err.Error()))
		}
		v := ristretto.NewPoint().Add(op.shares[i].value, theirs)

		sigma := ristretto.NewPoint().ScalarMult(v, key)
		sigma.Sub(op.shares[i].mac, sigma)

		op.res[i] = v
		op.sigma[w] = sigma
		sigma.BytesInto((*[32]byte)(&words[w]))
	}
	if err := op.s.sendMsg(wire.KindOpenCheck, op.seq, words); err != nil {
		return op.fail(err)
	}
	return nil
}

func (op *OpenPointOp) onCheck(msg *wire.Message) error {
	if op.sigma == nil {
		return op.fail(errors.WithMessage(ErrProtocolViolation, "check before shares"))
	}
	if len(msg.Words) != len(op.net) {
		return op.fail(errors.WithMessage(ErrProtocolViolation, "check batch size mismatch"))
	}

	ok := true
	for w := range op.net {
		theirs := ristretto.NewPoint()
		if err := theirs.SetBytes((*[32]byte)(&msg.Words[w])); err != nil {
			return op.fail(errors.WithMessage(ErrProtocolViolation, err.Error()))
		}
		sum := ristretto.NewPoint().Add(op.sigma[w], theirs)
		ok = ok && sum.IsIdentity()
	}
	if !ok {
		return op.fail(ErrAuthenticationFailure)
	}
	op.resolve()
	return nil
}

func (op *OpenPointOp) resolve() {
	op.s.retire(op.seq)
	close(op.done)
}

func (op *OpenPointOp) fail(err error) error {
	op.err = err
	op.s.retire(op.seq)
	close(op.done)
	return err
}

// Await blocks until the open completes, the session dies, or ctx is
// cancelled.
func (op *OpenPointOp) Await(ctx context.Context) ([]*ristretto.Point, error) {
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
