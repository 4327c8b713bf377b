// Package wire defines the framed messages the two parties exchange: a
// fixed header carrying the message kind and the operation sequence
// number, followed either by a run of fixed-width 32-byte field/group
// encodings or, for the handshake, by a CBOR blob.
package wire

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Kind discriminates protocol messages.
type Kind byte

const (
	// KindHello carries the CBOR session handshake.
	KindHello Kind = iota + 1
	// KindOpenShare carries the value shares of a batched open.
	KindOpenShare
	// KindOpenCheck carries the MAC-check differences of a batched open.
	KindOpenCheck
	// KindCommit carries hash commitments to value shares.
	KindCommit
	// KindDecommit carries blinder/share pairs opening prior commitments.
	KindDecommit
	// KindInputMask carries the helper's mask share during input sharing.
	KindInputMask
	// KindInputDelta carries the owner's broadcast correction during
	// input sharing.
	KindInputDelta
)

// WordSize is the width of every scalar and group-element encoding.
const WordSize = 32

// Word is a single canonical scalar or group-element encoding.
type Word = [WordSize]byte

const (
	headerSize = 1 + 8 + 4

	// MaxWords bounds the number of words in one message; it caps the
	// allocation a malformed or hostile length field can demand.
	MaxWords = 1 << 16
)

var (
	ErrMessageTooShort = errors.New("wire: message shorter than header")
	ErrUnknownKind     = errors.New("wire: unknown message kind")
	ErrCountMismatch   = errors.New("wire: payload length does not match count")
	ErrTooManyWords    = errors.New("wire: word count exceeds limit")
)

// Message is a single protocol message. Exactly one of Words and Blob
// is populated: Blob for KindHello, Words for every other kind.
type Message struct {
	Kind Kind
	Seq  uint64

	Words []Word
	Blob  []byte
}

func (k Kind) valid() bool {
	return k >= KindHello && k <= KindInputDelta
}

// Encode serializes the message into a fresh buffer.
func (m *Message) Encode() ([]byte, error) {
	if !m.Kind.valid() {
		return nil, ErrUnknownKind
	}

	if m.Kind == KindHello {
		buf := make([]byte, headerSize+len(m.Blob))
		putHeader(buf, m.Kind, m.Seq, uint32(len(m.Blob)))
		copy(buf[headerSize:], m.Blob)
		return buf, nil
	}

	if len(m.Words) > MaxWords {
		return nil, ErrTooManyWords
	}
	buf := make([]byte, headerSize+len(m.Words)*WordSize)
	putHeader(buf, m.Kind, m.Seq, uint32(len(m.Words)))
	for i := range m.Words {
		copy(buf[headerSize+i*WordSize:], m.Words[i][:])
	}
	return buf, nil
}

// Decode parses a received frame.
func Decode(buf []byte) (*Message, error) {
	if len(buf) < headerSize {
		return nil, ErrMessageTooShort
	}

	kind := Kind(buf[0])
	if !kind.valid() {
		return nil, ErrUnknownKind
	}
	seq := binary.BigEndian.Uint64(buf[1:9])
	count := binary.BigEndian.Uint32(buf[9:13])
	payload := buf[headerSize:]

	if kind == KindHello {
		if uint64(len(payload)) != uint64(count) {
			return nil, ErrCountMismatch
		}
		blob := make([]byte, len(payload))
		copy(blob, payload)
		return &Message{Kind: kind, Seq: seq, Blob: blob}, nil
	}

	if count > MaxWords {
		return nil, ErrTooManyWords
	}
	if uint64(len(payload)) != uint64(count)*WordSize {
		return nil, ErrCountMismatch
	}
	words := make([]Word, count)
	for i := range words {
		copy(words[i][:], payload[i*WordSize:])
	}
	return &Message{Kind: kind, Seq: seq, Words: words}, nil
}

func putHeader(buf []byte, kind Kind, seq uint64, count uint32) {
	buf[0] = byte(kind)
	binary.BigEndian.PutUint64(buf[1:9], seq)
	binary.BigEndian.PutUint32(buf[9:13], count)
}

// Hello is the handshake body exchanged once per session before any
// share material moves.
type Hello struct {
	Protocol string `cbor:"protocol"`
	Version  uint32 `cbor:"version"`
	Party    uint8  `cbor:"party"`
	Nonce    []byte `cbor:"nonce"`
}
