package mpc

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/zeebo/blake3"

	"github.com/renloq/spdz255/core/math/ristretto"
	"github.com/renloq/spdz255/lib/wire"
)

// CommitOpenOp is an in-flight committed open of scalar shares.
//
// A plain open lets a rushing party pick its value share after seeing
// the peer's. CommitOpen closes that window: each party first commits
// to its value shares under a random blinder, reveals only after
// holding the peer's commitments, and checks the reveal against the
// commitment before running the usual MAC check.
type CommitOpenOp struct {
	s   *Session
	seq uint64

	shares   []*Share
	net      []int
	blinders []wire.Word
	theirCom []wire.Word         // peer commitments, set on the commit phase
	sigma    []*ristretto.Scalar // local MAC checks, set on the reveal phase

	res  []*ristretto.Scalar
	err  error
	done chan struct{}
}

// BeginCommitOpen starts a committed open of a batch of shares.
func (s *Session) BeginCommitOpen(shares ...*Share) (*CommitOpenOp, error) {
	op := &CommitOpenOp{
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

	op.blinders = make([]wire.Word, len(op.net))
	words := make([]wire.Word, len(op.net))
	for w, i := range op.net {
		if _, err := rand.Read(op.blinders[w][:]); err != nil {
			return nil, errors.WithMessage(err, "mpc: draw commitment blinder")
		}
		op.commitment(w, shares[i], &op.blinders[w], &words[w])
	}
	if err := s.sendMsg(wire.KindCommit, seq, words); err != nil {
		return nil, s.abort(err)
	}
	if err := s.activate(seq, op); err != nil {
		return nil, err
	}
	return op, nil
}

// CommitOpen opens a batch of shares through commitments and waits for
// the result.
func (s *Session) CommitOpen(ctx context.Context, shares ...*Share) ([]*ristretto.Scalar, error) {
	op, err := s.BeginCommitOpen(shares...)
	if err != nil {
		return nil, err
	}
	return op.Await(ctx)
}

// commitment hashes one value share under the session transcript. The
// party id in the preimage keeps the two parties' commitment domains
// disjoint.
func (op *CommitOpenOp) commitment(w int, sh *Share, blinder, out *wire.Word) {
	op.commitmentFor(op.s.party, w, sh.value, blinder, out)
}

func (op *CommitOpenOp) commitmentFor(party, w int, value *ristretto.Scalar, blinder, out *wire.Word) {
	var buf [8]byte
	h := blake3.New()
	h.Write(op.s.ssid[:])
	binary.BigEndian.PutUint64(buf[:], op.seq)
	h.Write(buf[:])
	h.Write([]byte{byte(party)})
	binary.BigEndian.PutUint64(buf[:], uint64(w))
	h.Write(buf[:])
	h.Write(blinder[:])
	var enc [32]byte
	value.BytesInto(&enc)
	h.Write(enc[:])
	copy(out[:], h.Sum(nil))
}

func (op *CommitOpenOp) handle(msg *wire.Message) error {
	switch msg.Kind {
	case wire.KindCommit:
		return op.onCommit(msg)
	case wire.KindDecommit:
		return op.onDecommit(msg)
	case wire.KindOpenCheck:
		return op.onCheck(msg)
	default:
		return op.fail(errors.WithMessage(ErrProtocolViolation, "unexpected message kind in committed open"))
	}
}

// onCommit records the peer's commitments and releases our reveal.
func (op *CommitOpenOp) onCommit(msg *wire.Message) error {
	if op.theirCom != nil {
		return op.fail(errors.WithMessage(ErrProtocolViolation, "duplicate commit message"))
	}
	if len(msg.Words) != len(op.net) {
		return op.fail(errors.WithMessage(ErrProtocolViolation, "commit batch size mismatch"))
	}
	op.theirCom = append([]wire.Word(nil), msg.Words...)

	words := make([]wire.Word, 2*len(op.net))
	for w, i := range op.net {
		words[2*w] = op.blinders[w]
		op.shares[i].value.BytesInto((*[32]byte)(&words[2*w+1]))
	}
	return op.sendOr(wire.KindDecommit, words)
}

// onDecommit checks the reveal against the stored commitments, then
// proceeds exactly as a plain open: combine, derive sigma, send it.
func (op *CommitOpenOp) onDecommit(msg *wire.Message) error {
	if op.theirCom == nil {
		return op.fail(errors.WithMessage(ErrProtocolViolation, "decommit before commit"))
	}
	if op.sigma != nil {
		return op.fail(errors.WithMessage(ErrProtocolViolation, "duplicate decommit message"))
	}
	if len(msg.Words) != 2*len(op.net) {
		return op.fail(errors.WithMessage(ErrProtocolViolation, "decommit batch size mismatch"))
	}

	key := op.s.keyShare()
	defer key.Zeroize()

	op.sigma = make([]*ristretto.Scalar, len(op.net))
	words := make([]wire.Word, len(op.net))
	ok := 1
	for w, i := range op.net {
		blinder := msg.Words[2*w]
		theirs := ristretto.NewScalar()
		if err := theirs.SetBytes((*[32]byte)(&msg.Words[2*w+1])); err != nil {
			return op.fail(errors.WithMessage(ErrProtocolViolation, err.Error()))
		}

		var expect wire.Word
		op.commitmentFor(1-op.s.party, w, theirs, &blinder, &expect)
		ok &= subtle.ConstantTimeCompare(expect[:], op.theirCom[w][:])

		v := ristretto.NewScalar().Add(op.shares[i].value, theirs)
		sigma := ristretto.NewScalar().Mul(key, v)
		sigma.Sub(op.shares[i].mac, sigma)

		op.res[i] = v
		op.sigma[w] = sigma
		sigma.BytesInto((*[32]byte)(&words[w]))
	}
	if ok != 1 {
		return op.fail(ErrAuthenticationFailure)
	}
	return op.sendOr(wire.KindOpenCheck, words)
}

func (op *CommitOpenOp) onCheck(msg *wire.Message) error {
	if op.sigma == nil {
		return op.fail(errors.WithMessage(ErrProtocolViolation, "check before decommit"))
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

func (op *CommitOpenOp) sendOr(kind wire.Kind, words []wire.Word) error {
	if err := op.s.sendMsg(kind, op.seq, words); err != nil {
		return op.fail(err)
	}
	return nil
}

func (op *CommitOpenOp) resolve() {
	op.s.retire(op.seq)
	close(op.done)
}

func (op *CommitOpenOp) fail(err error) error {
	op.err = err
	op.s.retire(op.seq)
	close(op.done)
	return err
}

// Await blocks until the committed open completes.
func (op *CommitOpenOp) Await(ctx context.Context) ([]*ristretto.Scalar, error) {
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
