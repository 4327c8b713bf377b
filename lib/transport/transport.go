// Package transport provides the ordered, reliable duplex channel the
// engine runs over. The engine never dials or reconnects; callers
// establish a connection (typically mutually authenticated TLS, see
// tls.go) and hand the resulting channel to a session. Any transport
// failure is terminal for the channel and, by extension, the session.
package transport

import (
	"context"
	"encoding/binary"
	"io"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrClosed        = errors.New("transport: channel closed")
	ErrFrameTooLarge = errors.New("transport: frame exceeds size limit")
)

// MaxFrameSize bounds a single frame; large enough for a full batch of
// wire words plus header.
const MaxFrameSize = 4 << 20

// Channel is an ordered, reliable duplex byte channel to the single
// peer. Send and Recv honor context cancellation; after the first
// failure every call returns an error wrapping ErrClosed.
type Channel interface {
	// Send transmits one frame. The frame buffer is owned by the
	// channel after the call returns.
	Send(ctx context.Context, frame []byte) error

	// Recv returns the next frame from the peer.
	Recv(ctx context.Context) ([]byte, error)

	// Close tears the channel down, unblocking pending operations.
	Close() error
}

// Conn frames a raw stream with 4-byte big-endian length prefixes.
// Reader and writer goroutines decouple I/O from the caller so both
// Send and Recv can be abandoned through their context.
type Conn struct {
	rw io.ReadWriteCloser

	sendCh chan []byte
	recvCh chan []byte

	done      chan struct{}
	errOnce   sync.Once
	closeOnce sync.Once
	err       error
}

var _ Channel = (*Conn)(nil)

// NewConn wraps an established stream (net.Conn, tls.Conn, pipe) in a
// framed channel.
func NewConn(rw io.ReadWriteCloser) *Conn {
	c := &Conn{
		rw:     rw,
		sendCh: make(chan []byte, 1),
		recvCh: make(chan []byte, 1),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	go c.writeLoop()
	return c
}

func (c *Conn) fail(err error) {
	c.errOnce.Do(func() {
		c.err = err
		close(c.done)
		c.rw.Close()
	})
}

func (c *Conn) failure() error {
	<-c.done
	return c.err
}

func (c *Conn) readLoop() {
	var header [4]byte
	for {
		if _, err := io.ReadFull(c.rw, header[:]); err != nil {
			c.fail(errors.WithMessage(ErrClosed, err.Error()))
			return
		}
		size := binary.BigEndian.Uint32(header[:])
		if size > MaxFrameSize {
			c.fail(ErrFrameTooLarge)
			return
		}
		frame := make([]byte, size)
		if _, err := io.ReadFull(c.rw, frame); err != nil {
			c.fail(errors.WithMessage(ErrClosed, err.Error()))
			return
		}
		select {
		case c.recvCh <- frame:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) writeLoop() {
	for {
		select {
		case buf := <-c.sendCh:
			if _, err := c.rw.Write(buf); err != nil {
				c.fail(errors.WithMessage(ErrClosed, err.Error()))
				return
			}
		case <-c.done:
			return
		}
	}
}

// Send implements Channel.
func (c *Conn) Send(ctx context.Context, frame []byte) error {
	if len(frame) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	buf := make([]byte, 4+len(frame))
	binary.BigEndian.PutUint32(buf, uint32(len(frame)))
	copy(buf[4:], frame)

	select {
	case c.sendCh <- buf:
		return nil
	case <-c.done:
		return c.failure()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv implements Channel.
func (c *Conn) Recv(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-c.recvCh:
		return frame, nil
	case <-c.done:
		return nil, c.failure()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements Channel.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.fail(ErrClosed)
	})
	return nil
}
