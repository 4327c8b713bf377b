package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestPipeOrdering(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe()

	require.NoError(t, a.Send(ctx, []byte("one")))
	require.NoError(t, a.Send(ctx, []byte("two")))

	got, err := b.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))

	got, err = b.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
}

func TestPipeBothSendFirst(t *testing.T) {
	// Every protocol step has both parties send before receiving; the
	// pipe must not deadlock on that pattern.
	ctx := context.Background()
	a, b := Pipe()

	require.NoError(t, a.Send(ctx, []byte("from a")))
	require.NoError(t, b.Send(ctx, []byte("from b")))

	got, err := a.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "from b", string(got))

	got, err = b.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "from a", string(got))
}

func TestPipeClose(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe()

	require.NoError(t, a.Close())

	_, err := b.Recv(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, a.Send(ctx, []byte("x")), ErrClosed)
}

func TestPipeDrainsAfterClose(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe()

	require.NoError(t, a.Send(ctx, []byte("queued")))
	require.NoError(t, a.Close())

	got, err := b.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "queued", string(got))

	_, err = b.Recv(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPipeContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	a, _ := Pipe()
	_, err := a.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConnRoundTrip(t *testing.T) {
	ctx := context.Background()
	left, right := net.Pipe()
	a := NewConn(left)
	b := NewConn(right)
	defer a.Close()
	defer b.Close()

	var g errgroup.Group
	g.Go(func() error {
		return a.Send(ctx, []byte("ping"))
	})
	g.Go(func() error {
		frame, err := b.Recv(ctx)
		if err != nil {
			return err
		}
		assert.Equal(t, "ping", string(frame))
		return b.Send(ctx, []byte("pong"))
	})
	require.NoError(t, g.Wait())

	frame, err := a.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(frame))
}

func TestConnLargeFrame(t *testing.T) {
	ctx := context.Background()
	left, right := net.Pipe()
	a := NewConn(left)
	b := NewConn(right)
	defer a.Close()
	defer b.Close()

	payload := make([]byte, 1<<16)
	for i := range payload {
		payload[i] = byte(i)
	}

	var g errgroup.Group
	g.Go(func() error { return a.Send(ctx, payload) })

	frame, err := b.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, payload, frame)
	require.NoError(t, g.Wait())
}

func TestConnPeerClose(t *testing.T) {
	ctx := context.Background()
	left, right := net.Pipe()
	a := NewConn(left)
	b := NewConn(right)
	defer b.Close()

	require.NoError(t, a.Close())

	_, err := b.Recv(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConnRejectsOversizedFrame(t *testing.T) {
	ctx := context.Background()
	left, _ := net.Pipe()
	a := NewConn(left)
	defer a.Close()

	err := a.Send(ctx, make([]byte, MaxFrameSize+1))
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}
