package httpc

import "time"

// RedirectPolicy selects how 3xx responses with a Location are
// handled.
type RedirectPolicy int

const (
	// RedirectFollow follows up to MaxRedirects hops, then fails
	// with a too-many-redirects error carrying the last response.
	RedirectFollow RedirectPolicy = iota
	// RedirectReturnLast follows up to MaxRedirects hops, then
	// returns the last response instead of failing.
	RedirectReturnLast
	// RedirectNone hands redirect responses straight back to the
	// caller.
	RedirectNone
)

// StatusPolicy selects how final 4xx/5xx statuses are surfaced.
type StatusPolicy int

const (
	// StatusErrors turns any final status >= 400 into an error
	// carrying the full response.
	StatusErrors StatusPolicy = iota
	// StatusReturn hands every status back as a plain response.
	StatusReturn
)

// Defaults applied by Config.withDefaults for zero fields.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultMaxRedirects   = 10
	DefaultUserAgent      = "protokit-httpc/1.0"
	DefaultAccept         = "*/*"
	DefaultMaxIdlePerHost = 5
	DefaultIdleTimeout    = 90 * time.Second
	DefaultMaxHeaderBytes = 64 << 10
)

// Config controls a Client. The zero value works; zero fields take
// the defaults above. A Config is copied on use and never mutated
// by the client.
type Config struct {
	// Timeout bounds each blocking I/O operation (connect, every
	// read, every write), not the request end to end. Each redirect
	// hop gets a fresh budget. Negative disables deadlines.
	Timeout time.Duration

	// ConnectTimeout, ReadTimeout and WriteTimeout override Timeout
	// for their operation when nonzero.
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	// MaxRedirects caps followed hops. A chain that would exceed it
	// ends per RedirectPolicy.
	MaxRedirects   int
	RedirectPolicy RedirectPolicy

	// UserAgent and Accept are written on requests whose headers do
	// not already carry them.
	UserAgent string
	Accept    string

	// DisablePooling closes every connection after its response and
	// advertises Connection: close on requests.
	DisablePooling bool
	// MaxIdlePerHost bounds idle connections kept per destination.
	MaxIdlePerHost int
	// IdleTimeout ends a pooled connection's reusable life; expired
	// entries are dropped lazily at the next lookup.
	IdleTimeout time.Duration

	// MaxHeaderBytes caps the decoded status line + header block.
	MaxHeaderBytes int

	StatusPolicy StatusPolicy
}

func (c Config) withDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = c.Timeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = c.Timeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = c.Timeout
	}
	if c.MaxRedirects == 0 {
		c.MaxRedirects = DefaultMaxRedirects
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Accept == "" {
		c.Accept = DefaultAccept
	}
	if c.MaxIdlePerHost == 0 {
		c.MaxIdlePerHost = DefaultMaxIdlePerHost
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.MaxHeaderBytes == 0 {
		c.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	return c
}
