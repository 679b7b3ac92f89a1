package httpc

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ferrhold/protokit/httpc/internal/wire"
	"github.com/ferrhold/protokit/internal/obs"
)

// do runs one logical request: resolve, connect, write, read, follow
// redirects, and apply the status policy to whatever comes out.
func (c *Client) do(ctx context.Context, req *Request, cfg Config) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rid, ok := RequestIDFrom(ctx)
	if !ok {
		rid = uuid.NewString()
	}

	c.logf(obs.Debug, "request %s: %s %s", rid, req.Method, req.URL)
	c.metricCounter("httpc_requests_total", 1, obs.Label{Key: "method", Value: req.Method})
	start := time.Now()

	resp, err := c.follow(ctx, cfg, rid, req.Method, req.URL, req.Header.Clone(), req.Body)
	c.metricHistogram("httpc_request_seconds", time.Since(start).Seconds(), obs.Label{Key: "method", Value: req.Method})
	if err != nil {
		if e, ok := AsError(err); ok {
			c.metricCounter("httpc_errors_total", 1, obs.Label{Key: "kind", Value: e.Kind.String()})
		}
		return nil, err
	}
	return resp, nil
}

// follow drives the redirect loop. Loop protection is a plain hop
// budget; revisiting a URL within the budget is allowed.
func (c *Client) follow(ctx context.Context, cfg Config, rid, method, target string, hdr Header, body []byte) (*Response, error) {
	redirects := 0
	for {
		resp, err := c.roundTrip(ctx, cfg, rid, method, target, hdr, body)
		if err != nil {
			return nil, err
		}

		// A redirect status without a Location is handed to the
		// caller like any other response.
		loc := ""
		if cfg.RedirectPolicy != RedirectNone && isRedirectStatus(resp.StatusCode) {
			loc = resp.Header.Get("Location")
		}
		if loc != "" && redirects < cfg.MaxRedirects {
			next, err := resolveLocation(target, loc)
			if err != nil {
				return nil, newError(KindParse, "redirect", target, err)
			}
			method, hdr, body = redirectRewrite(resp.StatusCode, method, hdr, body)
			c.logf(obs.Debug, "request %s: redirect %d -> %s", rid, resp.StatusCode, next)
			c.metricCounter("httpc_redirects_total", 1)
			target = next
			redirects++
			continue
		}
		if loc != "" && cfg.RedirectPolicy == RedirectFollow {
			c.logf(obs.Warn, "request %s: stopped after %d redirects at %s", rid, redirects, target)
			return nil, &Error{Kind: KindTooManyRedirects, Op: "redirect", URL: target, StatusCode: resp.StatusCode, Response: resp}
		}

		if cfg.StatusPolicy == StatusErrors && resp.StatusCode >= 400 && resp.StatusCode < 600 {
			return nil, &Error{Kind: KindHTTPStatus, Op: "request", URL: target, StatusCode: resp.StatusCode, Response: resp}
		}
		return resp, nil
	}
}

// roundTrip performs a single exchange on one connection.
func (c *Client) roundTrip(ctx context.Context, cfg Config, rid, method, target string, hdr Header, body []byte) (*Response, error) {
	u, dest, err := parseTarget(target)
	if err != nil {
		return nil, newError(KindParse, "parse url", target, err)
	}

	pc, err := c.acquireConn(ctx, cfg, rid, dest)
	if err != nil {
		return nil, err
	}
	// Reused conns keep the deadlineReader of the request that
	// pooled them; rebind it to this request's budget.
	pc.dr.ctx = ctx
	pc.dr.timeout = cfg.ReadTimeout

	wreq := &wire.Request{
		Method:    method,
		Target:    originForm(u),
		Host:      dest.hostHeader(),
		Fields:    toWireFields(c.cookieFields(u, hdr)),
		Body:      body,
		UserAgent: cfg.UserAgent,
		Accept:    cfg.Accept,
		Close:     cfg.DisablePooling,
	}
	raw, err := wire.EncodeRequest(wreq)
	if err != nil {
		// Nothing reached the wire; the conn is still clean.
		c.releaseConn(dest, pc, true, cfg)
		return nil, newError(KindEncode, "encode request", target, err)
	}

	if err := armDeadline(ctx, cfg.WriteTimeout, pc.conn.SetWriteDeadline); err != nil {
		pc.close()
		return nil, newError(KindIO, "write request", target, err)
	}
	if _, err := pc.conn.Write(raw); err != nil {
		pc.close()
		c.logf(obs.Warn, "write to %s failed: %v", dest, err)
		return nil, newError(KindIO, "write request", target, err)
	}

	wresp, err := wire.ReadResponse(pc.br, wire.ReadOptions{
		MaxHeaderBytes: cfg.MaxHeaderBytes,
		NoBody:         method == "HEAD",
	})
	if err != nil {
		pc.close()
		kind := KindIO
		if isWireParseErr(err) {
			kind = KindParse
		}
		c.logf(obs.Warn, "read from %s failed: %v", dest, err)
		return nil, newError(kind, "read response", target, err)
	}

	resp := fromWireResponse(wresp)
	if c.Jar != nil {
		if sc := resp.Cookies(); len(sc) > 0 {
			c.Jar.SetCookies(u, sc)
		}
	}
	c.releaseConn(dest, pc, !wresp.Close, cfg)
	c.logf(obs.Debug, "request %s: %s %s -> %d (%d body bytes)", rid, method, target, resp.StatusCode, len(resp.Body))
	c.metricCounter("httpc_responses_total", 1, obs.Label{Key: "status", Value: strconv.Itoa(resp.StatusCode)})
	return resp, nil
}

// acquireConn hands out an idle pooled conn when one exists,
// otherwise resolves the host and dials the candidates in order.
func (c *Client) acquireConn(ctx context.Context, cfg Config, rid string, dest Destination) (*pooledConn, error) {
	if !cfg.DisablePooling {
		if pc, ok := c.pool.get(dest); ok {
			c.logf(obs.Debug, "request %s: reusing idle conn to %s", rid, dest)
			c.metricCounter("httpc_pool_reuse_total", 1)
			return pc, nil
		}
	}

	addrs, err := c.Resolver.Resolve(ctx, dest.Host)
	if err != nil {
		c.logf(obs.Error, "resolve %s failed: %v", dest.Host, err)
		return nil, newError(KindResolve, "resolve", dest.Host, err)
	}
	if len(addrs) == 0 {
		return nil, newError(KindResolve, "resolve", dest.Host, errNoAddresses)
	}

	var conn Conn
	var dialErr error
	for _, addr := range addrs {
		conn, dialErr = c.Transport.Connect(ctx, dest, net.JoinHostPort(addr, strconv.Itoa(dest.Port)), cfg.ConnectTimeout)
		if dialErr == nil {
			break
		}
	}
	if dialErr != nil {
		c.logf(obs.Error, "dial %s failed: %v", dest, dialErr)
		if errors.Is(dialErr, ErrTLSRequired) {
			return nil, newError(KindHTTPSRequired, "connect", dest.String(), dialErr)
		}
		return nil, newError(KindConnect, "connect", dest.String(), dialErr)
	}
	c.metricCounter("httpc_conn_dial_total", 1)

	dr := &deadlineReader{conn: conn, ctx: ctx, timeout: cfg.ReadTimeout}
	return &pooledConn{conn: conn, dr: dr, br: bufio.NewReader(dr)}, nil
}

// releaseConn returns a conn to the pool or closes it. reusable is
// false once any exchange on the conn failed or the response asked
// for Connection: close.
func (c *Client) releaseConn(dest Destination, pc *pooledConn, reusable bool, cfg Config) {
	if cfg.DisablePooling || !reusable {
		pc.close()
		return
	}
	c.pool.put(dest, pc)
}

// cookieFields appends the jar's Cookie line for u. A caller-supplied
// Cookie header wins over the jar. The copy keeps cookies from
// leaking into the header set the redirect loop carries to the next
// host.
func (c *Client) cookieFields(u *url.URL, hdr Header) Header {
	if c.Jar == nil || hdr.Has("Cookie") {
		return hdr
	}
	v := c.Jar.CookieHeader(u)
	if v == "" {
		return hdr
	}
	out := hdr.Clone()
	out.Add("Cookie", v)
	return out
}

func toWireFields(h Header) []wire.Field {
	if len(h) == 0 {
		return nil
	}
	out := make([]wire.Field, len(h))
	for i, f := range h {
		out[i] = wire.Field{Name: f.Name, Value: f.Value}
	}
	return out
}

func fromWireResponse(wr *wire.Response) *Response {
	h := make(Header, len(wr.Fields))
	for i, f := range wr.Fields {
		h[i] = HeaderField{Name: f.Name, Value: f.Value}
	}
	return &Response{
		StatusCode: wr.StatusCode,
		Reason:     wr.Reason,
		Proto:      wr.Proto,
		Header:     h,
		Body:       wr.Body,
	}
}

func isRedirectStatus(code int) bool {
	switch code {
	case 301, 302, 303, 307, 308:
		return true
	}
	return false
}

// redirectRewrite applies the method change a redirect status
// demands. 303 always degrades to a bodyless GET; 301 and 302 do so
// for POST only. 307 and 308 repeat the request unchanged. A
// caller-set Content-Length goes with the body when the body is
// dropped.
func redirectRewrite(status int, method string, hdr Header, body []byte) (string, Header, []byte) {
	if status == 303 || ((status == 301 || status == 302) && method == "POST") {
		hdr.Del("Content-Length")
		return "GET", hdr, nil
	}
	return method, hdr, body
}

// resolveLocation resolves a Location value, absolute or relative,
// against the URL that produced it.
func resolveLocation(base, location string) (string, error) {
	bu, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return bu.ResolveReference(ref).String(), nil
}

// isWireParseErr separates protocol violations from transport
// failures so the caller can tell a broken peer from a broken pipe.
func isWireParseErr(err error) bool {
	return errors.Is(err, wire.ErrMalformedStatusLine) ||
		errors.Is(err, wire.ErrMalformedHeader) ||
		errors.Is(err, wire.ErrHeaderTooLarge) ||
		errors.Is(err, wire.ErrInvalidChunk) ||
		errors.Is(err, wire.ErrTruncatedBody)
}
