package httpc

import (
	"context"
	"net/url"
	"strings"
)

// The builders split requests into two variants so a body cannot be
// attached to a bodyless method by accident: GET, HEAD, DELETE and
// OPTIONS produce a BodylessRequest whose only terminal is Call,
// POST, PUT and PATCH produce a BodyRequest whose terminals all take
// a body. Chainers are shared and append-only; nothing is validated
// until the request executes.

type queryParam struct {
	key   string
	value string
	raw   bool
}

type requestCore struct {
	c      *Client
	method string
	url    string
	hdr    Header
	query  []queryParam
	cfg    Config
}

func (rc *requestCore) addHeader(name, value string) {
	rc.hdr.Add(name, value)
}

// addCookie folds name=value into a single Cookie header, semicolon
// separated, the way user agents send it. The merged header moves to
// the end of the sequence.
func (rc *requestCore) addCookie(name, value string) {
	pair := name + "=" + value
	if v := rc.hdr.Get("Cookie"); v != "" {
		rc.hdr.Del("Cookie")
		pair = v + "; " + pair
	}
	rc.hdr.Add("Cookie", pair)
}

func (rc *requestCore) addQuery(key, value string, raw bool) {
	rc.query = append(rc.query, queryParam{key: key, value: value, raw: raw})
}

// buildURL appends accumulated query parameters to the request URL,
// reusing ? or & depending on what is already there.
func (rc *requestCore) buildURL() string {
	if len(rc.query) == 0 {
		return rc.url
	}
	var sb strings.Builder
	sb.WriteString(rc.url)
	if strings.Contains(rc.url, "?") {
		sb.WriteByte('&')
	} else {
		sb.WriteByte('?')
	}
	for i, q := range rc.query {
		if i > 0 {
			sb.WriteByte('&')
		}
		if q.raw {
			sb.WriteString(q.key)
			sb.WriteByte('=')
			sb.WriteString(q.value)
		} else {
			sb.WriteString(url.QueryEscape(q.key))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(q.value))
		}
	}
	return sb.String()
}

func (rc *requestCore) execute(ctx context.Context, body []byte) (*Response, error) {
	req := &Request{
		Method: rc.method,
		URL:    rc.buildURL(),
		Header: rc.hdr,
		Body:   body,
	}
	return rc.c.do(ctx, req, rc.cfg)
}

// BodylessRequest is a request under construction for a method that
// takes no body.
type BodylessRequest struct {
	core requestCore
}

func newBodylessRequest(c *Client, method, url string) *BodylessRequest {
	return &BodylessRequest{core: requestCore{c: c, method: method, url: url, cfg: c.cfg}}
}

// Header appends a header field. Repeated calls append; duplicates
// are kept in call order on the wire.
func (b *BodylessRequest) Header(name, value string) *BodylessRequest {
	b.core.addHeader(name, value)
	return b
}

// ContentType appends a Content-Type header.
func (b *BodylessRequest) ContentType(ct string) *BodylessRequest {
	b.core.addHeader("Content-Type", ct)
	return b
}

// Cookie adds a cookie pair to the request's Cookie header.
func (b *BodylessRequest) Cookie(name, value string) *BodylessRequest {
	b.core.addCookie(name, value)
	return b
}

// Query appends a query parameter, percent-encoded when the URL is
// built.
func (b *BodylessRequest) Query(key, value string) *BodylessRequest {
	b.core.addQuery(key, value, false)
	return b
}

// QueryRaw appends a query parameter verbatim, no encoding applied.
func (b *BodylessRequest) QueryRaw(key, value string) *BodylessRequest {
	b.core.addQuery(key, value, true)
	return b
}

// Config replaces the client configuration for this request only.
// Zero fields take package defaults, not the client's values. Pool
// sizing is fixed when the client is built and is not affected.
func (b *BodylessRequest) Config(cfg Config) *BodylessRequest {
	b.core.cfg = cfg.withDefaults()
	return b
}

// WithBody converts this request into a body-carrying one, for the
// rare server API that wants a payload on DELETE or OPTIONS.
func (b *BodylessRequest) WithBody() *BodyRequest {
	return &BodyRequest{core: b.core}
}

// Call executes the request and returns the final response.
func (b *BodylessRequest) Call(ctx context.Context) (*Response, error) {
	return b.core.execute(ctx, nil)
}

// BodyRequest is a request under construction for a method that
// carries a body. There is no bodyless terminal; pass nil to Send
// for the odd endpoint that wants none.
type BodyRequest struct {
	core requestCore
}

func newBodyRequest(c *Client, method, url string) *BodyRequest {
	return &BodyRequest{core: requestCore{c: c, method: method, url: url, cfg: c.cfg}}
}

// Header appends a header field. Repeated calls append; duplicates
// are kept in call order on the wire.
func (b *BodyRequest) Header(name, value string) *BodyRequest {
	b.core.addHeader(name, value)
	return b
}

// ContentType appends a Content-Type header.
func (b *BodyRequest) ContentType(ct string) *BodyRequest {
	b.core.addHeader("Content-Type", ct)
	return b
}

// Cookie adds a cookie pair to the request's Cookie header.
func (b *BodyRequest) Cookie(name, value string) *BodyRequest {
	b.core.addCookie(name, value)
	return b
}

// Query appends a query parameter, percent-encoded when the URL is
// built.
func (b *BodyRequest) Query(key, value string) *BodyRequest {
	b.core.addQuery(key, value, false)
	return b
}

// QueryRaw appends a query parameter verbatim, no encoding applied.
func (b *BodyRequest) QueryRaw(key, value string) *BodyRequest {
	b.core.addQuery(key, value, true)
	return b
}

// Config replaces the client configuration for this request only.
// Zero fields take package defaults, not the client's values. Pool
// sizing is fixed when the client is built and is not affected.
func (b *BodyRequest) Config(cfg Config) *BodyRequest {
	b.core.cfg = cfg.withDefaults()
	return b
}

// Send executes the request with body. A nil body sends no body at
// all; an empty non-nil body sends Content-Length: 0.
func (b *BodyRequest) Send(ctx context.Context, body []byte) (*Response, error) {
	return b.core.execute(ctx, body)
}

// SendString executes the request with s as the body.
func (b *BodyRequest) SendString(ctx context.Context, s string) (*Response, error) {
	return b.core.execute(ctx, []byte(s))
}

// SendForm url-encodes form as the body and appends the matching
// Content-Type. Keys are sorted by Encode; order between values of
// one key is kept.
func (b *BodyRequest) SendForm(ctx context.Context, form url.Values) (*Response, error) {
	b.core.addHeader("Content-Type", "application/x-www-form-urlencoded")
	return b.core.execute(ctx, []byte(form.Encode()))
}
