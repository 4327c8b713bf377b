// Command spdz255-demo runs a small two-party computation: party 0
// contributes 7, party 1 contributes 6, the parties multiply under the
// MAC-authenticated sharing and open the product.
//
// With no flags both parties run in-process over a pipe. With -listen
// the process serves party 0 on a TCP address; with -connect it joins
// as party 1.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"log"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/renloq/spdz255/core/beaver"
	"github.com/renloq/spdz255/core/math/ristretto"
	"github.com/renloq/spdz255/lib/transport"
	"github.com/renloq/spdz255/pkg/mpc"
)

var (
	listenAddr  = flag.String("listen", "", "serve party 0 on this TCP address")
	connectAddr = flag.String("connect", "", "join as party 1 at this TCP address")
	seedHex     = flag.String("seed", "", "32-byte hex dealer seed (both parties must agree)")
	xVal        = flag.Uint64("x", 7, "party 0 input")
	yVal        = flag.Uint64("y", 6, "party 1 input")
)

func main() {
	flag.Parse()
	log.SetPrefix("spdz255-demo: ")
	log.SetFlags(0)

	var seed [32]byte
	if *seedHex != "" {
		raw, err := hex.DecodeString(*seedHex)
		if err != nil || len(raw) != len(seed) {
			log.Fatalf("-seed must be %d hex-encoded bytes", len(seed))
		}
		copy(seed[:], raw)
	}

	ctx := context.Background()
	switch {
	case *listenAddr != "" && *connectAddr != "":
		log.Fatal("-listen and -connect are mutually exclusive")
	case *listenAddr != "":
		runTCP(ctx, 0, seed)
	case *connectAddr != "":
		runTCP(ctx, 1, seed)
	default:
		runInProcess(ctx, seed)
	}
}

func runInProcess(ctx context.Context, seed [32]byte) {
	a, b := transport.Pipe()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runParty(ctx, 0, a, seed) })
	g.Go(func() error { return runParty(ctx, 1, b, seed) })
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}

func runTCP(ctx context.Context, party int, seed [32]byte) {
	var conn net.Conn
	var err error
	if party == 0 {
		var ln net.Listener
		ln, err = net.Listen("tcp", *listenAddr)
		if err != nil {
			log.Fatal(err)
		}
		defer ln.Close()
		log.Printf("party 0 waiting on %s", ln.Addr())
		conn, err = ln.Accept()
	} else {
		conn, err = net.Dial("tcp", *connectAddr)
	}
	if err != nil {
		log.Fatal(err)
	}
	if err := runParty(ctx, party, transport.NewConn(conn), seed); err != nil {
		log.Fatal(err)
	}
}

func runParty(ctx context.Context, party int, ch transport.Channel, seed [32]byte) error {
	src, err := beaver.NewSeededSource(party, seed)
	if err != nil {
		return err
	}
	defer src.Zeroize()

	s, err := mpc.NewSession(ctx, mpc.Config{Party: party, Channel: ch, Source: src})
	if err != nil {
		return err
	}
	log.Printf("party %d: session established", party)

	var x, y *ristretto.Scalar
	if party == 0 {
		x = ristretto.NewScalar().SetUint64(*xVal)
	} else {
		y = ristretto.NewScalar().SetUint64(*yVal)
	}

	xs, err := s.Input(ctx, 0, x)
	if err != nil {
		return err
	}
	ys, err := s.Input(ctx, 1, y)
	if err != nil {
		return err
	}
	z, err := s.Mul(ctx, xs, ys)
	if err != nil {
		return err
	}
	vals, err := s.Open(ctx, z)
	if err != nil {
		return err
	}
	log.Printf("party %d: product opened to %d", party, vals[0].Uint64())

	// The peer may tear the channel down the moment its own open
	// resolves; a completed run only has the abort race left.
	if err := s.Finish(); err != nil && !errors.Is(err, mpc.ErrSessionAborted) {
		return err
	}
	return nil
}
