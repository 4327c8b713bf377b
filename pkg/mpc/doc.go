// Package mpc implements a two-party computation engine over the
// ristretto255 group with SPDZ-style MAC-authenticated additive secret
// sharing.
//
// Each session pairs a transport channel with a Beaver triple supplier
// whose MAC key is itself additively shared between the parties. Linear
// operations on shares are local; multiplication consumes one triple
// and a single batched open round trip; opening a share reveals its
// plaintext only after an information-theoretic MAC check. The protocol
// is fail-stop: any inconsistency aborts the session, and aborted
// sessions reject all further work with ErrSessionAborted.
//
// Operations must be issued in the same order by both parties, from a
// single goroutine per session. Begin* methods return handles that can
// be awaited in any order, so independent operations pipeline over the
// same channel.
package mpc
