package httpc

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind classifies where a request failed.
type Kind int

const (
	// KindParse covers malformed URLs and protocol violations in
	// the response: bad status line, bad header, bad chunk framing,
	// truncated body.
	KindParse Kind = iota
	// KindEncode marks invalid header content supplied by the
	// caller, caught before anything is written.
	KindEncode
	// KindResolve marks a failed or empty name lookup.
	KindResolve
	// KindConnect marks a transport that could not establish a
	// connection to any resolved address.
	KindConnect
	// KindIO marks a read or write failure, including timeouts,
	// after the connection was established.
	KindIO
	// KindTooManyRedirects marks a redirect chain that exceeded
	// MaxRedirects. The last response is attached.
	KindTooManyRedirects
	// KindHTTPStatus marks a final status >= 400 under the
	// StatusErrors policy. The full response is attached.
	KindHTTPStatus
	// KindHTTPSRequired marks an https URL given to a transport
	// that cannot speak TLS.
	KindHTTPSRequired
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindEncode:
		return "encode"
	case KindResolve:
		return "resolve"
	case KindConnect:
		return "connect"
	case KindIO:
		return "io"
	case KindTooManyRedirects:
		return "too_many_redirects"
	case KindHTTPStatus:
		return "http_status"
	case KindHTTPSRequired:
		return "https_required"
	default:
		return "unknown"
	}
}

// Error is the error type every client operation returns. Kind
// tells the caller which stage failed; Response is attached for
// KindHTTPStatus and KindTooManyRedirects so the final message is
// never lost.
type Error struct {
	Kind       Kind
	Op         string
	URL        string
	StatusCode int
	Response   *Response
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("httpc: ")
	b.WriteString(e.Op)
	if e.URL != "" {
		b.WriteByte(' ')
		b.WriteString(e.URL)
	}
	switch e.Kind {
	case KindHTTPStatus:
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	case KindTooManyRedirects:
		b.WriteString(": too many redirects")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout reports whether the underlying failure was an I/O
// timeout.
func (e *Error) Timeout() bool {
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

func newError(kind Kind, op, url string, err error) *Error {
	return &Error{Kind: kind, Op: op, URL: url, Err: err}
}

// AsError unwraps err to the client's *Error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsHTTPStatus reports the status code when err is a status-policy
// failure.
func IsHTTPStatus(err error) (int, bool) {
	if e, ok := AsError(err); ok && e.Kind == KindHTTPStatus {
		return e.StatusCode, true
	}
	return 0, false
}

// IsTooManyRedirects returns the last response of an exhausted
// redirect chain.
func IsTooManyRedirects(err error) (*Response, bool) {
	if e, ok := AsError(err); ok && e.Kind == KindTooManyRedirects {
		return e.Response, true
	}
	return nil, false
}

// IsTimeout reports whether err was caused by an I/O timeout.
func IsTimeout(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Timeout()
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
