package mpc

import (
	"errors"

	"github.com/renloq/spdz255/core/beaver"
)

var (
	// ErrAuthenticationFailure signals that an opened value failed its
	// MAC check: the peer deviated from the protocol. Fatal to the
	// session; never retried.
	ErrAuthenticationFailure = errors.New("mpc: authentication failure")

	// ErrProtocolViolation signals peer behavior that is malformed
	// rather than merely inconsistent: bad framing, wrong word counts,
	// duplicated sequence numbers, non-canonical encodings. Fatal to
	// the session.
	ErrProtocolViolation = errors.New("mpc: protocol violation")

	// ErrChannelClosed signals that the transport failed underneath
	// the session. Fatal; reconnection is the transport owner's
	// problem and requires a fresh session.
	ErrChannelClosed = errors.New("mpc: channel closed")

	// ErrSessionAborted is returned by every operation attempted after
	// the session left the Running state. Purely local.
	ErrSessionAborted = errors.New("mpc: session aborted")

	// ErrPreprocessingExhausted is returned by operations that need a
	// Beaver triple when the supplier has run dry. Unlike the other
	// errors it does not abort the session: the caller may supply more
	// material or reduce the multiplication count.
	ErrPreprocessingExhausted = beaver.ErrExhausted
)
