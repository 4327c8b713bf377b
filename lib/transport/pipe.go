package transport

import (
	"context"
	"sync"
)

// pipeDepth buffers in-flight frames per direction. Both parties of a
// protocol step send before they receive, so the pipe must absorb at
// least one full batch per direction to avoid lockstep deadlocks.
const pipeDepth = 256

// Pipe returns two connected in-memory channels. Frames written to one
// end are read from the other in order. It replaces a real network in
// unit tests; closing either end closes both.
func Pipe() (Channel, Channel) {
	shared := &pipeState{closed: make(chan struct{})}
	ab := make(chan []byte, pipeDepth)
	ba := make(chan []byte, pipeDepth)

	a := &pipeEnd{state: shared, out: ab, in: ba}
	b := &pipeEnd{state: shared, out: ba, in: ab}
	return a, b
}

type pipeState struct {
	once   sync.Once
	closed chan struct{}
}

type pipeEnd struct {
	state *pipeState
	out   chan<- []byte
	in    <-chan []byte
}

var _ Channel = (*pipeEnd)(nil)

func (p *pipeEnd) Send(ctx context.Context, frame []byte) error {
	select {
	case p.out <- frame:
		return nil
	case <-p.state.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Recv(ctx context.Context) ([]byte, error) {
	// Drain queued frames even when the pipe has been closed
	// underneath them; ordering matters more than fast failure here.
	select {
	case frame := <-p.in:
		return frame, nil
	default:
	}

	select {
	case frame := <-p.in:
		return frame, nil
	case <-p.state.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeEnd) Close() error {
	p.state.once.Do(func() { close(p.state.closed) })
	return nil
}
