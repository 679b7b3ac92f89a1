package httpc

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// testServer speaks raw HTTP/1.1 over a real socket so tests can
// script exact bytes, malformed ones included.
type testServer struct {
	ln net.Listener

	mu       sync.Mutex
	requests []string
	accepts  int
}

// startScript starts a listener whose handler maps each received
// request (raw bytes, 1-based count) to the raw response to write.
// Returning keepOpen=false closes the connection after writing.
func startScript(t *testing.T, handler func(req string, n int) (resp string, keepOpen bool)) (*testServer, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &testServer{ln: ln}
	go s.serve(handler)
	t.Cleanup(func() { _ = ln.Close() })
	return s, "http://" + ln.Addr().String()
}

// startFixed serves the same response bytes to every request.
func startFixed(t *testing.T, resp string) (*testServer, string) {
	t.Helper()
	return startScript(t, func(string, int) (string, bool) { return resp, true })
}

func (s *testServer) serve(handler func(string, int) (string, bool)) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.accepts++
		s.mu.Unlock()
		go s.handleConn(conn, handler)
	}
}

func (s *testServer) handleConn(conn net.Conn, handler func(string, int) (string, bool)) {
	defer conn.Close()
	br := bufio.NewReader(conn)
	for {
		req, err := readRawRequest(br)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.requests = append(s.requests, req)
		n := len(s.requests)
		s.mu.Unlock()

		resp, keepOpen := handler(req, n)
		if resp != "" {
			if _, err := conn.Write([]byte(resp)); err != nil {
				return
			}
		}
		if !keepOpen {
			return
		}
	}
}

// readRawRequest consumes one request: header block plus a
// Content-Length body when one is declared.
func readRawRequest(br *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return "", err
		}
		sb.WriteString(line)
		if line == "\r\n" {
			break
		}
	}
	cl := 0
	for _, ln := range strings.Split(sb.String(), "\r\n") {
		if v, ok := strings.CutPrefix(strings.ToLower(ln), "content-length:"); ok {
			cl, _ = strconv.Atoi(strings.TrimSpace(v))
		}
	}
	if cl > 0 {
		body := make([]byte, cl)
		if _, err := io.ReadFull(br, body); err != nil {
			return "", err
		}
		sb.Write(body)
	}
	return sb.String(), nil
}

func (s *testServer) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *testServer) request(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= len(s.requests) {
		return ""
	}
	return s.requests[i]
}

func (s *testServer) acceptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepts
}

func destFor(t *testing.T, base string) Destination {
	t.Helper()
	_, d, err := parseTarget(base)
	if err != nil {
		t.Fatalf("parseTarget(%q): %v", base, err)
	}
	return d
}

func TestGetSimple(t *testing.T) {
	s, base := startFixed(t, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello")

	c := New(Config{})
	defer c.Close()
	res, err := c.Get(base + "/").Call(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res.StatusCode != 200 || res.Reason != "OK" {
		t.Fatalf("status=%d reason=%q", res.StatusCode, res.Reason)
	}
	if res.Text() != "hello" {
		t.Fatalf("body=%q", res.Text())
	}

	req := s.request(0)
	if !strings.HasPrefix(req, "GET / HTTP/1.1\r\n") {
		t.Fatalf("request line: %q", req)
	}
	if !strings.Contains(req, "Host: "+strings.TrimPrefix(base, "http://")+"\r\n") {
		t.Fatalf("missing Host: %q", req)
	}
	if !strings.Contains(req, "User-Agent: "+DefaultUserAgent+"\r\n") {
		t.Fatalf("missing User-Agent: %q", req)
	}
}

func TestPostBodyAndContentLength(t *testing.T) {
	s, base := startFixed(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")

	body := []byte(`{"name":"test"}`)
	c := New(Config{})
	defer c.Close()
	_, err := c.Post(base + "/users").
		ContentType("application/json").
		Send(context.Background(), body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	req := s.request(0)
	if !strings.HasPrefix(req, "POST /users HTTP/1.1\r\n") {
		t.Fatalf("request line: %q", req)
	}
	if !strings.Contains(req, "Content-Type: application/json\r\n") {
		t.Fatalf("missing Content-Type: %q", req)
	}
	if !strings.Contains(req, "Content-Length: "+strconv.Itoa(len(body))+"\r\n") {
		t.Fatalf("wrong Content-Length: %q", req)
	}
	if !strings.HasSuffix(req, "\r\n\r\n"+string(body)) {
		t.Fatalf("body not verbatim: %q", req)
	}
}

func TestStatusPolicy(t *testing.T) {
	_, base := startFixed(t, "HTTP/1.1 404 Not Found\r\nContent-Length: 9\r\n\r\nnot found")

	c := New(Config{})
	defer c.Close()
	_, err := c.Get(base + "/missing").Call(context.Background())
	if err == nil {
		t.Fatal("want error under the default status policy")
	}
	code, ok := IsHTTPStatus(err)
	if !ok || code != 404 {
		t.Fatalf("IsHTTPStatus = (%d, %t)", code, ok)
	}
	e, _ := AsError(err)
	if e.Response == nil || e.Response.Text() != "not found" {
		t.Fatalf("error response = %+v", e.Response)
	}

	res, err := c.Get(base+"/missing").
		Config(Config{StatusPolicy: StatusReturn}).
		Call(context.Background())
	if err != nil {
		t.Fatalf("with StatusReturn: %v", err)
	}
	if res.StatusCode != 404 {
		t.Fatalf("status=%d", res.StatusCode)
	}
}

func TestChunkedResponseBody(t *testing.T) {
	_, base := startFixed(t,
		"HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n")

	c := New(Config{})
	defer c.Close()
	res, err := c.Get(base + "/").Call(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res.Text() != "Wikipedia" {
		t.Fatalf("body=%q", res.Text())
	}
}

func TestConnectionReuse(t *testing.T) {
	s, base := startFixed(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")

	c := New(Config{})
	defer c.Close()
	for i := 0; i < 2; i++ {
		if _, err := c.Get(base + "/").Call(context.Background()); err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
	}
	if got := s.acceptCount(); got != 1 {
		t.Fatalf("connects = %d, want 1", got)
	}
	if got := c.pool.idleCount(destFor(t, base)); got != 1 {
		t.Fatalf("idle = %d, want 1", got)
	}
}

func TestHeadIgnoresContentLength(t *testing.T) {
	s, base := startFixed(t, "HTTP/1.1 200 OK\r\nContent-Length: 123\r\n\r\n")

	c := New(Config{})
	defer c.Close()
	res, err := c.Head(base + "/").Call(context.Background())
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if len(res.Body) != 0 {
		t.Fatalf("HEAD body = %q", res.Body)
	}
	if res.Header.Get("Content-Length") != "123" {
		t.Fatalf("header lost: %v", res.Header)
	}

	// The connection is still in a clean state and gets reused.
	if _, err := c.Head(base + "/").Call(context.Background()); err != nil {
		t.Fatalf("second head: %v", err)
	}
	if got := s.acceptCount(); got != 1 {
		t.Fatalf("connects = %d, want 1", got)
	}
}

func TestParseErrorTaintsConnection(t *testing.T) {
	s, base := startScript(t, func(_ string, n int) (string, bool) {
		if n == 1 {
			return "HTTX/9.9 banana\r\n\r\n", true
		}
		return "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok", true
	})

	c := New(Config{})
	defer c.Close()
	_, err := c.Get(base + "/").Call(context.Background())
	e, ok := AsError(err)
	if !ok || e.Kind != KindParse {
		t.Fatalf("err = %v, want parse kind", err)
	}
	if got := c.pool.idleCount(destFor(t, base)); got != 0 {
		t.Fatalf("tainted conn pooled, idle = %d", got)
	}

	if _, err := c.Get(base + "/").Call(context.Background()); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if got := s.acceptCount(); got != 2 {
		t.Fatalf("connects = %d, want 2", got)
	}
}

func TestTruncatedBodyIsParseError(t *testing.T) {
	_, base := startScript(t, func(string, int) (string, bool) {
		return "HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\nabc", false
	})

	c := New(Config{})
	defer c.Close()
	_, err := c.Get(base + "/").Call(context.Background())
	e, ok := AsError(err)
	if !ok || e.Kind != KindParse {
		t.Fatalf("err = %v, want parse kind", err)
	}
	if got := c.pool.idleCount(destFor(t, base)); got != 0 {
		t.Fatalf("tainted conn pooled, idle = %d", got)
	}
}

func TestReadUntilEOFNeverPooled(t *testing.T) {
	s, base := startScript(t, func(string, int) (string, bool) {
		return "HTTP/1.1 200 OK\r\n\r\nstream-tail", false
	})

	c := New(Config{})
	defer c.Close()
	res, err := c.Get(base + "/").Call(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res.Text() != "stream-tail" {
		t.Fatalf("body=%q", res.Text())
	}
	if got := c.pool.idleCount(destFor(t, base)); got != 0 {
		t.Fatalf("EOF-framed conn pooled, idle = %d", got)
	}

	if _, err := c.Get(base + "/").Call(context.Background()); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if got := s.acceptCount(); got != 2 {
		t.Fatalf("connects = %d, want 2", got)
	}
}

func TestConnectionCloseNotPooled(t *testing.T) {
	_, base := startScript(t, func(string, int) (string, bool) {
		return "HTTP/1.1 200 OK\r\nContent-Length: 2\r\nConnection: close\r\n\r\nok", false
	})

	c := New(Config{})
	defer c.Close()
	res, err := c.Get(base + "/").Call(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res.StatusCode != 200 {
		t.Fatalf("status=%d", res.StatusCode)
	}
	if got := c.pool.idleCount(destFor(t, base)); got != 0 {
		t.Fatalf("close-framed conn pooled, idle = %d", got)
	}
}

func TestDisablePoolingSendsClose(t *testing.T) {
	s, base := startScript(t, func(string, int) (string, bool) {
		return "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok", false
	})

	c := New(Config{DisablePooling: true})
	defer c.Close()
	for i := 0; i < 2; i++ {
		if _, err := c.Get(base + "/").Call(context.Background()); err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
	}
	if !strings.Contains(s.request(0), "Connection: close\r\n") {
		t.Fatalf("missing Connection: close: %q", s.request(0))
	}
	if got := s.acceptCount(); got != 2 {
		t.Fatalf("connects = %d, want 2", got)
	}
}

func TestReadTimeout(t *testing.T) {
	_, base := startScript(t, func(string, int) (string, bool) {
		return "", true // never answer
	})

	c := New(Config{ReadTimeout: 50 * time.Millisecond})
	defer c.Close()
	start := time.Now()
	_, err := c.Get(base + "/").Call(context.Background())
	if err == nil {
		t.Fatal("want timeout error")
	}
	if !IsTimeout(err) {
		t.Fatalf("IsTimeout = false for %v", err)
	}
	e, _ := AsError(err)
	if e.Kind != KindIO {
		t.Fatalf("kind = %v, want io", e.Kind)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("timeout did not fire in time")
	}
}

func TestConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	c := New(Config{ConnectTimeout: time.Second})
	defer c.Close()
	_, err = c.Get("http://" + addr + "/").Call(context.Background())
	e, ok := AsError(err)
	if !ok || e.Kind != KindConnect {
		t.Fatalf("err = %v, want connect kind", err)
	}
}

type failResolver struct{ err error }

func (r failResolver) Resolve(ctx context.Context, host string) ([]string, error) {
	return nil, r.err
}

func TestResolveError(t *testing.T) {
	c := New(Config{})
	defer c.Close()
	c.Resolver = failResolver{err: errors.New("no such host")}

	_, err := c.Get("http://nowhere.invalid/").Call(context.Background())
	e, ok := AsError(err)
	if !ok || e.Kind != KindResolve {
		t.Fatalf("err = %v, want resolve kind", err)
	}
}

func TestHTTPSRefusedByNetTransport(t *testing.T) {
	c := New(Config{})
	defer c.Close()
	_, err := c.Get("https://127.0.0.1:1/").Call(context.Background())
	e, ok := AsError(err)
	if !ok || e.Kind != KindHTTPSRequired {
		t.Fatalf("err = %v, want https_required kind", err)
	}
	if !errors.Is(err, ErrTLSRequired) {
		t.Fatalf("lost sentinel: %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	_, base := startFixed(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := New(Config{})
	defer c.Close()
	_, err := c.Get(base + "/").Call(ctx)
	if err == nil {
		t.Fatal("want error on canceled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled in chain", err)
	}
}

func TestDoCustomMethod(t *testing.T) {
	s, base := startFixed(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")

	c := New(Config{})
	defer c.Close()
	_, err := c.Do(context.Background(), &Request{Method: "PURGE", URL: base + "/cache"})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if !strings.HasPrefix(s.request(0), "PURGE /cache HTTP/1.1\r\n") {
		t.Fatalf("request line: %q", s.request(0))
	}
}

func TestBadURL(t *testing.T) {
	c := New(Config{})
	defer c.Close()
	for _, u := range []string{"ftp://host/", "http:///nohost", "://", "http://host:99999/"} {
		_, err := c.Get(u).Call(context.Background())
		e, ok := AsError(err)
		if !ok || e.Kind != KindParse {
			t.Fatalf("url %q: err = %v, want parse kind", u, err)
		}
	}
}

func TestEncodeErrorKeepsConnectionClean(t *testing.T) {
	s, base := startFixed(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")

	c := New(Config{})
	defer c.Close()
	_, err := c.Get(base+"/").
		Header("X-Bad", "evil\r\nInjected: 1").
		Call(context.Background())
	e, ok := AsError(err)
	if !ok || e.Kind != KindEncode {
		t.Fatalf("err = %v, want encode kind", err)
	}
	if s.requestCount() != 0 {
		t.Fatalf("rejected request reached the wire: %q", s.request(0))
	}

	// The dialed conn went back unused and serves the next request.
	if _, err := c.Get(base + "/").Call(context.Background()); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if got := s.acceptCount(); got != 1 {
		t.Fatalf("connects = %d, want 1", got)
	}
}
