package mpc

import (
	"context"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"

	"github.com/renloq/spdz255/core/beaver"
	"github.com/renloq/spdz255/core/math/ristretto"
	"github.com/renloq/spdz255/lib/transport"
	"github.com/renloq/spdz255/lib/wire"
)

const (
	protocolID      = "spdz255/v1"
	protocolVersion = 1
)

// State is the lifecycle state of a session.
type State uint8

const (
	StateInitializing State = iota
	StateRunning
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Config configures a session. The channel and the supplier become the
// exclusive property of the session for its lifetime.
type Config struct {
	// Party is this party's identity, 0 or 1.
	Party int
	// Channel is the established, mutually authenticated duplex
	// channel to the peer.
	Channel transport.Channel
	// Source supplies Beaver triples and the MAC key share.
	Source beaver.Supplier
}

// handler consumes the inbound messages of one in-flight operation.
// Handlers run on the session's dispatch goroutine, one at a time.
type handler interface {
	handle(msg *wire.Message) error
}

// Session is one party's end of a joint computation. All share
// operations hang off it.
//
// Operations must be issued from a single goroutine so that both
// parties assign identical sequence numbers to corresponding
// operations. Issued operations may be awaited in any order; their
// responses are matched by sequence number, not arrival order.
type Session struct {
	party int
	ch    transport.Channel
	src   beaver.Supplier
	ssid  [32]byte

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State
	cause   error
	nextSeq uint64
	ops     map[uint64]handler
	pending map[uint64]struct{} // reserved locally, handler not yet installed
	backlog map[uint64][]*wire.Message
	macKey  *ristretto.Scalar

	// hmu serializes handler execution between the receive loop and
	// backlog replay during operation registration.
	hmu sync.Mutex
}

// NewSession performs the handshake and returns a running session.
func NewSession(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Party != 0 && cfg.Party != 1 {
		return nil, errors.Errorf("mpc: invalid party id %d", cfg.Party)
	}
	if cfg.Channel == nil {
		return nil, errors.New("mpc: channel required")
	}
	if cfg.Source == nil {
		return nil, errors.New("mpc: preprocessing supplier required")
	}

	nonce := uuid.New()
	mine := &wire.Hello{
		Protocol: protocolID,
		Version:  protocolVersion,
		Party:    uint8(cfg.Party),
		Nonce:    nonce[:],
	}
	theirs, err := exchangeHello(ctx, cfg.Channel, mine)
	if err != nil {
		return nil, err
	}
	if theirs.Protocol != protocolID || theirs.Version != protocolVersion {
		return nil, errors.WithMessage(ErrProtocolViolation, "handshake mismatch")
	}
	if int(theirs.Party) != 1-cfg.Party {
		return nil, errors.WithMessage(ErrProtocolViolation, "peer claims wrong party id")
	}
	if len(theirs.Nonce) == 0 {
		return nil, errors.WithMessage(ErrProtocolViolation, "empty handshake nonce")
	}

	s := &Session{
		party:   cfg.Party,
		ch:      cfg.Channel,
		src:     cfg.Source,
		ssid:    deriveSSID(cfg.Party, mine, theirs),
		state:   StateRunning,
		ops:     make(map[uint64]handler),
		pending: make(map[uint64]struct{}),
		backlog: make(map[uint64][]*wire.Message),
		macKey:  cfg.Source.MacKeyShare(),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	go s.recvLoop()
	return s, nil
}

func exchangeHello(ctx context.Context, ch transport.Channel, mine *wire.Hello) (*wire.Hello, error) {
	body, err := cbor.Marshal(mine)
	if err != nil {
		return nil, errors.WithMessage(err, "mpc: encode hello")
	}
	frame, err := (&wire.Message{Kind: wire.KindHello, Blob: body}).Encode()
	if err != nil {
		return nil, err
	}
	if err := ch.Send(ctx, frame); err != nil {
		return nil, errors.WithMessage(ErrChannelClosed, err.Error())
	}

	reply, err := ch.Recv(ctx)
	if err != nil {
		return nil, errors.WithMessage(ErrChannelClosed, err.Error())
	}
	msg, err := wire.Decode(reply)
	if err != nil {
		return nil, errors.WithMessage(ErrProtocolViolation, err.Error())
	}
	if msg.Kind != wire.KindHello {
		return nil, errors.WithMessage(ErrProtocolViolation, "expected hello")
	}
	var theirs wire.Hello
	if err := cbor.Unmarshal(msg.Blob, &theirs); err != nil {
		return nil, errors.WithMessage(ErrProtocolViolation, err.Error())
	}
	return &theirs, nil
}

// deriveSSID binds the session identifier to both parties' handshake
// nonces, ordered by party id so both ends derive the same value.
func deriveSSID(party int, mine, theirs *wire.Hello) [32]byte {
	first, second := mine, theirs
	if party == 1 {
		first, second = theirs, mine
	}
	h := blake3.New()
	h.Write([]byte(protocolID))
	h.Write(first.Nonce)
	h.Write(second.Nonce)

	var ssid [32]byte
	copy(ssid[:], h.Sum(nil))
	return ssid
}

// Party returns this party's identity (0 or 1).
func (s *Session) Party() int { return s.party }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that aborted the session, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

// keyShare returns a copy of this party's MAC key share.
func (s *Session) keyShare() *ristretto.Scalar {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ristretto.NewScalar().Set(s.macKey)
}

// Finish completes the session: no further operations are accepted and
// session-held key material is erased. Shares held by the caller
// survive; zeroize them separately once their plaintexts are extracted.
func (s *Session) Finish() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrSessionAborted
	}
	s.state = StateCompleted
	s.macKey.Zeroize()
	s.mu.Unlock()

	s.cancel()
	return s.ch.Close()
}

// Abort tears the session down. Every in-flight and subsequent
// operation fails with ErrSessionAborted.
func (s *Session) Abort() {
	s.abort(ErrSessionAborted)
}

// abort moves the session to Aborted with the given cause and returns
// that cause, so failure paths can `return s.abort(err)`. The first
// cause wins; later calls return ErrSessionAborted.
func (s *Session) abort(cause error) error {
	s.mu.Lock()
	if s.state == StateAborted || s.state == StateCompleted {
		s.mu.Unlock()
		return ErrSessionAborted
	}
	s.state = StateAborted
	s.cause = cause
	s.macKey.Zeroize()
	s.ops = make(map[uint64]handler)
	s.pending = make(map[uint64]struct{})
	s.backlog = make(map[uint64][]*wire.Message)
	s.mu.Unlock()

	s.cancel()
	s.ch.Close()
	return cause
}

// failure is the error surfaced to operations once the session is no
// longer running.
func (s *Session) failure() error {
	return ErrSessionAborted
}

func (s *Session) recvLoop() {
	for {
		frame, err := s.ch.Recv(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				// Local teardown, not a transport failure.
				return
			}
			s.abort(errors.WithMessage(ErrChannelClosed, err.Error()))
			return
		}
		msg, err := wire.Decode(frame)
		if err != nil {
			s.abort(errors.WithMessage(ErrProtocolViolation, err.Error()))
			return
		}
		s.dispatch(msg)
	}
}

// dispatch routes an inbound message to its operation, buffering
// messages for operations the local party has not issued yet.
func (s *Session) dispatch(msg *wire.Message) {
	s.hmu.Lock()
	defer s.hmu.Unlock()

	s.mu.Lock()
	h, active := s.ops[msg.Seq]
	if !active {
		_, reserved := s.pending[msg.Seq]
		if msg.Seq < s.nextSeq && !reserved {
			// The operation already finished; a duplicate or late
			// message is peer misbehavior.
			s.mu.Unlock()
			s.abort(errors.WithMessage(ErrProtocolViolation, "message for finished operation"))
			return
		}
		// Either the peer got ahead of our issuance or our own
		// handler install is still in flight; hold the message.
		if s.state == StateRunning {
			s.backlog[msg.Seq] = append(s.backlog[msg.Seq], msg)
		}
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := h.handle(msg); err != nil {
		s.abort(err)
	}
}

// reserveSeq assigns the next operation sequence number. Both parties
// issue operations in the same order, so reserved numbers line up.
func (s *Session) reserveSeq() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return 0, s.failure()
	}
	seq := s.nextSeq
	s.nextSeq++
	s.pending[seq] = struct{}{}
	return seq, nil
}

// activate installs the operation's handler and replays any messages
// that arrived before the local party issued it.
func (s *Session) activate(seq uint64, h handler) error {
	s.hmu.Lock()
	defer s.hmu.Unlock()

	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return s.failure()
	}
	s.ops[seq] = h
	delete(s.pending, seq)
	queued := s.backlog[seq]
	delete(s.backlog, seq)
	s.mu.Unlock()

	for _, msg := range queued {
		if err := h.handle(msg); err != nil {
			return s.abort(err)
		}
	}
	return nil
}

// retire removes a finished operation from the routing table.
func (s *Session) retire(seq uint64) {
	s.mu.Lock()
	delete(s.ops, seq)
	s.mu.Unlock()
}

// sendMsg encodes and transmits one protocol message.
func (s *Session) sendMsg(kind wire.Kind, seq uint64, words []wire.Word) error {
	frame, err := (&wire.Message{Kind: kind, Seq: seq, Words: words}).Encode()
	if err != nil {
		return errors.WithMessage(err, "mpc: encode message")
	}
	if err := s.ch.Send(s.ctx, frame); err != nil {
		if s.ctx.Err() != nil {
			return s.failure()
		}
		return errors.WithMessage(ErrChannelClosed, err.Error())
	}
	return nil
}
