package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"

	"github.com/pkg/errors"
)

// TLSConfig holds the material for a mutually authenticated connection
// between the two parties. Certificate issuance and distribution happen
// outside the engine.
type TLSConfig struct {
	// Certificate is this party's certificate and private key.
	Certificate tls.Certificate
	// RootCAs verifies the peer certificate, in both directions.
	RootCAs *x509.CertPool
	// ServerName is the expected name on the listening party's
	// certificate; used only when dialing.
	ServerName string
}

func (c *TLSConfig) validate() error {
	if c.RootCAs == nil {
		return errors.New("transport: root CA pool required")
	}
	if len(c.Certificate.Certificate) == 0 {
		return errors.New("transport: certificate required")
	}
	return nil
}

// DialTLS connects to the listening party and returns a framed channel
// over the mutually authenticated connection.
func DialTLS(ctx context.Context, addr string, cfg TLSConfig) (Channel, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	dialer := &tls.Dialer{
		Config: &tls.Config{
			Certificates: []tls.Certificate{cfg.Certificate},
			RootCAs:      cfg.RootCAs,
			ServerName:   cfg.ServerName,
			MinVersion:   tls.VersionTLS12,
		},
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.WithMessage(err, "transport: dial")
	}
	return NewConn(conn), nil
}

// TLSListener accepts mutually authenticated connections from the
// dialing party.
type TLSListener struct {
	ln net.Listener
}

// ListenTLS starts listening for the peer; the returned listener
// requires and verifies a client certificate on every connection.
func ListenTLS(addr string, cfg TLSConfig) (*TLSListener, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	ln, err := tls.Listen("tcp", addr, &tls.Config{
		Certificates: []tls.Certificate{cfg.Certificate},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    cfg.RootCAs,
		MinVersion:   tls.VersionTLS12,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "transport: listen")
	}
	return &TLSListener{ln: ln}, nil
}

// Accept waits for the peer to connect and returns the framed channel.
func (l *TLSListener) Accept() (Channel, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, errors.WithMessage(err, "transport: accept")
	}
	return NewConn(conn), nil
}

// Addr returns the listening address.
func (l *TLSListener) Addr() net.Addr { return l.ln.Addr() }

// Close stops listening. Accepted channels stay open.
func (l *TLSListener) Close() error { return l.ln.Close() }
