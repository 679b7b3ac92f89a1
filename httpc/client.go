package httpc

import (
	"context"
	"errors"
	"net/url"

	"github.com/ferrhold/protokit/internal/obs"
)

// CookieJar stores cookies between requests. Implementations decide
// scoping and persistence; the engine only hands over Set-Cookie
// values as received and asks for the Cookie line to send.
type CookieJar interface {
	// SetCookies records the Set-Cookie values of a response from u.
	SetCookies(u *url.URL, setCookies []string)
	// CookieHeader returns the Cookie line for a request to u, or ""
	// when nothing applies.
	CookieHeader(u *url.URL) string
}

// Client is a blocking HTTP/1.1 client over pooled plain-text
// connections. Every request runs to completion on the calling
// goroutine; there are no background workers and no retries.
//
// The zero value is not usable, construct with New. Exported fields
// may be replaced between New and the first request; after that they
// must be left alone.
type Client struct {
	// Transport dials connections. The default NetTransport speaks
	// plain TCP and refuses https targets.
	Transport Transport
	// Resolver turns host names into candidate addresses, tried in
	// order. Defaults to the system resolver.
	Resolver Resolver
	// Jar, when set, records Set-Cookie values from responses and
	// attaches a Cookie header to later requests.
	Jar CookieJar
	// Logger receives request lifecycle logs. nil discards them.
	Logger obs.Logger
	// Meter receives counters and timings. nil discards them.
	Meter obs.Meter

	cfg  Config
	pool *connPool
}

// New builds a Client from cfg. Zero fields of cfg take the package
// defaults.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		Transport: &NetTransport{},
		Resolver:  &NetResolver{},
		cfg:       cfg,
		pool:      newConnPool(cfg.MaxIdlePerHost, cfg.IdleTimeout),
	}
}

// Close drops all idle pooled connections. The client stays usable;
// later requests dial fresh.
func (c *Client) Close() {
	c.pool.closeIdle()
}

// Get starts a GET request to url.
func (c *Client) Get(url string) *BodylessRequest {
	return newBodylessRequest(c, "GET", url)
}

// Head starts a HEAD request to url. The response never carries a
// body.
func (c *Client) Head(url string) *BodylessRequest {
	return newBodylessRequest(c, "HEAD", url)
}

// Delete starts a DELETE request to url. Use WithBody for the rare
// DELETE that carries a payload.
func (c *Client) Delete(url string) *BodylessRequest {
	return newBodylessRequest(c, "DELETE", url)
}

// Options starts an OPTIONS request to url.
func (c *Client) Options(url string) *BodylessRequest {
	return newBodylessRequest(c, "OPTIONS", url)
}

// Post starts a POST request to url.
func (c *Client) Post(url string) *BodyRequest {
	return newBodyRequest(c, "POST", url)
}

// Put starts a PUT request to url.
func (c *Client) Put(url string) *BodyRequest {
	return newBodyRequest(c, "PUT", url)
}

// Patch starts a PATCH request to url.
func (c *Client) Patch(url string) *BodyRequest {
	return newBodyRequest(c, "PATCH", url)
}

// Do sends req as given. The builders cover the common methods; Do is
// the escape hatch for anything they cannot express.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || req.URL == "" {
		return nil, errors.New("httpc: nil request or empty URL")
	}
	return c.do(ctx, req, c.cfg)
}

func (c *Client) logf(level obs.Level, format string, args ...interface{}) {
	lg := c.Logger
	if lg == nil {
		lg = obs.NopLogger{}
	}
	lg.Logf(level, format, args...)
}

func (c *Client) metricCounter(name string, value float64, labels ...obs.Label) {
	m := c.getMeter()
	m.Counter(name, value, labels...)
}

func (c *Client) metricHistogram(name string, value float64, labels ...obs.Label) {
	m := c.getMeter()
	m.Histogram(name, value, labels...)
}

func (c *Client) getMeter() obs.Meter {
	if c.Meter != nil {
		return c.Meter
	}
	return obs.NopMeter{}
}

// Get issues a one-shot GET with a default client.
func Get(ctx context.Context, url string) (*Response, error) {
	c := New(Config{})
	defer c.Close()
	return c.Get(url).Call(ctx)
}

// Head issues a one-shot HEAD with a default client.
func Head(ctx context.Context, url string) (*Response, error) {
	c := New(Config{})
	defer c.Close()
	return c.Head(url).Call(ctx)
}

// Delete issues a one-shot DELETE with a default client.
func Delete(ctx context.Context, url string) (*Response, error) {
	c := New(Config{})
	defer c.Close()
	return c.Delete(url).Call(ctx)
}

// Post issues a one-shot POST with a default client.
func Post(ctx context.Context, url, contentType string, body []byte) (*Response, error) {
	c := New(Config{})
	defer c.Close()
	return c.Post(url).ContentType(contentType).Send(ctx, body)
}

// Put issues a one-shot PUT with a default client.
func Put(ctx context.Context, url, contentType string, body []byte) (*Response, error) {
	c := New(Config{})
	defer c.Close()
	return c.Put(url).ContentType(contentType).Send(ctx, body)
}
