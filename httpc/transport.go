package httpc

import (
	"context"
	"errors"
	"io"
	"net"
	"time"
)

// Conn is the blocking byte stream the engine drives. net.Conn
// satisfies it; anything else that can carry deadlines works too.
type Conn interface {
	io.Reader
	io.Writer
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Transport establishes connections. Implementations own TLS,
// proxying and socket options; the engine only dials through this
// interface and never inspects the returned Conn beyond I/O and
// deadlines.
type Transport interface {
	// Connect dials addr (a resolved host:port) for dest within
	// timeout. dest carries the scheme and the original host name
	// for implementations that need them (TLS server name, proxy
	// selection).
	Connect(ctx context.Context, dest Destination, addr string, timeout time.Duration) (Conn, error)
}

// Resolver maps a host name to candidate addresses. The engine
// dials them in order and uses the first that connects.
type Resolver interface {
	Resolve(ctx context.Context, host string) ([]string, error)
}

// ErrTLSRequired is returned by NetTransport for https
// destinations. Wrap or replace the transport with one that speaks
// TLS to make https work.
var ErrTLSRequired = errors.New("httpc: transport does not support https")

// NetTransport dials plain TCP through net.Dialer.
type NetTransport struct {
	// Dialer is copied per call; its Timeout is overridden with the
	// engine's connect budget.
	Dialer net.Dialer
}

func (t *NetTransport) Connect(ctx context.Context, dest Destination, addr string, timeout time.Duration) (Conn, error) {
	if dest.Scheme != "http" {
		return nil, ErrTLSRequired
	}
	d := t.Dialer
	if timeout > 0 {
		d.Timeout = timeout
	}
	return d.DialContext(ctx, "tcp", addr)
}

// NetResolver resolves through the standard library. Literal IP
// addresses short-circuit the lookup.
type NetResolver struct {
	R *net.Resolver // nil means net.DefaultResolver
}

var errNoAddresses = errors.New("no addresses for host")

func (r *NetResolver) Resolve(ctx context.Context, host string) ([]string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []string{host}, nil
	}
	res := r.R
	if res == nil {
		res = net.DefaultResolver
	}
	addrs, err := res.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, errNoAddresses
	}
	return addrs, nil
}

// deadlineReader re-arms the read deadline before every Read so
// each blocking read gets a fresh budget, capped by the context
// deadline when one is set. The pipeline rebinds ctx and timeout at
// the start of each request on a reused connection.
type deadlineReader struct {
	conn    Conn
	ctx     context.Context
	timeout time.Duration
}

func (r *deadlineReader) Read(p []byte) (int, error) {
	if err := armDeadline(r.ctx, r.timeout, r.conn.SetReadDeadline); err != nil {
		return 0, err
	}
	return r.conn.Read(p)
}

// armDeadline sets a deadline of now+timeout, tightened to the
// context deadline when that is sooner. timeout <= 0 leaves only
// the context deadline, or none.
func armDeadline(ctx context.Context, timeout time.Duration, set func(time.Time) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var dl time.Time
	if timeout > 0 {
		dl = time.Now().Add(timeout)
	}
	if cd, ok := ctx.Deadline(); ok && (dl.IsZero() || cd.Before(dl)) {
		dl = cd
	}
	return set(dl)
}
