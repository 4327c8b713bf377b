// Package sample draws ristretto255 scalars and group elements from an
// entropy source.
package sample

import (
	cryptorand "crypto/rand"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20"

	"github.com/renloq/spdz255/core/math/ristretto"
)

// SeedSize is the seed length accepted by NewReader.
const SeedSize = chacha20.KeySize

// Scalar samples a uniformly random scalar from rand, or from
// crypto/rand when rand is nil.
func Scalar(rand io.Reader) (*ristretto.Scalar, error) {
	if rand == nil {
		rand = cryptorand.Reader
	}

	var buf [ristretto.EncodedSize]byte
	if _, err := io.ReadFull(rand, buf[:]); err != nil {
		return nil, errors.WithMessage(err, "sample: failed to read randomness")
	}

	return ristretto.NewScalar().SetReduced(&buf), nil
}

// Point samples a uniformly random group element with unknown discrete
// log relation to any other sampled element.
func Point(rand io.Reader) (*ristretto.Point, error) {
	if rand == nil {
		rand = cryptorand.Reader
	}

	buf := make([]byte, 2*ristretto.EncodedSize)
	if _, err := io.ReadFull(rand, buf); err != nil {
		return nil, errors.WithMessage(err, "sample: failed to read randomness")
	}

	return ristretto.NewPoint().Derive(buf), nil
}

// reader yields the ChaCha20 keystream for a fixed seed.
type reader struct {
	cipher *chacha20.Cipher
}

// NewReader returns a deterministic entropy source expanded from seed.
// Two parties constructing readers from the same seed observe the same
// stream; this is what the insecure test dealer builds on.
func NewReader(seed [SeedSize]byte) io.Reader {
	nonce := make([]byte, chacha20.NonceSize)
	c, err := chacha20.NewUnauthenticatedCipher(seed[:], nonce)
	if err != nil {
		// Key and nonce sizes are fixed at compile time.
		panic(err)
	}
	return &reader{cipher: c}
}

func (r *reader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	r.cipher.XORKeyStream(p, p)
	return len(p), nil
}
