package httpc

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/ferrhold/protokit/httpc/cookiejar"
)

func TestCookieJarRoundTrip(t *testing.T) {
	s, base := startScript(t, func(_ string, n int) (string, bool) {
		if n == 1 {
			return "HTTP/1.1 200 OK\r\nSet-Cookie: sid=abc; Path=/\r\nContent-Length: 2\r\n\r\nok", true
		}
		return "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok", true
	})

	c := New(Config{})
	defer c.Close()
	c.Jar = cookiejar.NewJar()

	if _, err := c.Get(base + "/login").Call(context.Background()); err != nil {
		t.Fatalf("first get: %v", err)
	}
	if strings.Contains(s.request(0), "Cookie:") {
		t.Fatalf("cookie sent before it was set: %q", s.request(0))
	}

	if _, err := c.Get(base + "/home").Call(context.Background()); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if !strings.Contains(s.request(1), "Cookie: sid=abc\r\n") {
		t.Fatalf("missing Cookie: %q", s.request(1))
	}
}

func TestManualCookieHeaderWinsOverJar(t *testing.T) {
	s, base := startFixed(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")

	jar := cookiejar.NewJar()
	u, err := url.Parse(base + "/")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	jar.SetCookies(u, []string{"sid=abc; Path=/"})

	c := New(Config{})
	defer c.Close()
	c.Jar = jar

	_, err = c.Get(base+"/").
		Header("Cookie", "manual=1").
		Call(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	req := s.request(0)
	if !strings.Contains(req, "Cookie: manual=1\r\n") {
		t.Fatalf("manual cookie lost: %q", req)
	}
	if strings.Contains(req, "sid=abc") {
		t.Fatalf("jar cookie overrode caller header: %q", req)
	}
}

func TestCookieChainerMergesIntoJarlessRequest(t *testing.T) {
	s, base := startFixed(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")

	c := New(Config{})
	defer c.Close()
	_, err := c.Get(base+"/").
		Cookie("a", "1").
		Cookie("b", "2").
		Call(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.Contains(s.request(0), "Cookie: a=1; b=2\r\n") {
		t.Fatalf("cookies not merged: %q", s.request(0))
	}
}
