package httpc

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// Destination is the pooling identity of an origin. Scheme and host
// are lowercased on construction; two destinations are equal iff
// all three fields match.
type Destination struct {
	Scheme string
	Host   string
	Port   int
}

func (d Destination) String() string {
	return fmt.Sprintf("%s://%s", d.Scheme, d.Addr())
}

// Addr returns the host:port dial address.
func (d Destination) Addr() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// hostHeader is the Host header value for this destination. The
// port is omitted when it is the scheme default.
func (d Destination) hostHeader() string {
	if (d.Scheme == "http" && d.Port == 80) || (d.Scheme == "https" && d.Port == 443) {
		if strings.Contains(d.Host, ":") {
			return "[" + d.Host + "]"
		}
		return d.Host
	}
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

var errMissingHost = errors.New("url has no host")

// parseTarget parses a request URL into its parsed form and its
// pooling identity. Hosts with non-ASCII labels are converted to
// punycode so the Host header and the resolver both see the ASCII
// form.
func parseTarget(raw string) (*url.URL, Destination, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, Destination{}, err
	}
	dest, err := destinationOf(u)
	if err != nil {
		return nil, Destination{}, err
	}
	return u, dest, nil
}

func destinationOf(u *url.URL) (Destination, error) {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return Destination{}, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return Destination{}, errMissingHost
	}
	if !isASCII(host) {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return Destination{}, fmt.Errorf("invalid host %q: %w", host, err)
		}
		host = ascii
	}
	port := 80
	if scheme == "https" {
		port = 443
	}
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 65535 {
			return Destination{}, fmt.Errorf("invalid port %q", p)
		}
		port = n
	}
	return Destination{Scheme: scheme, Host: host, Port: port}, nil
}

// originForm renders the path and query the way they appear in the
// request line.
func originForm(u *url.URL) string {
	target := u.EscapedPath()
	if target == "" {
		target = "/"
	}
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return target
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
