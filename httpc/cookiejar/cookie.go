// Package cookiejar stores response cookies and builds the Cookie
// header for later requests, with the subset of RFC 6265 a client
// needs: domain and path matching, Secure, Max-Age and Expires,
// host-only semantics, and name/domain/path replacement.
package cookiejar

import (
	"strings"
	"time"
)

// setCookie is one parsed Set-Cookie line. Unknown attributes are
// ignored.
type setCookie struct {
	name      string
	value     string
	domain    string // "" when the attribute is absent (host-only)
	path      string // "" when absent; default derived from the URL
	secure    bool
	httpOnly  bool
	maxAge    int64
	hasMaxAge bool
	expires   time.Time // zero when absent or unparsable
}

// parseSetCookie splits a Set-Cookie value into the name=value pair
// and its attributes. Returns false when there is no usable pair.
func parseSetCookie(s string) (setCookie, bool) {
	var sc setCookie

	pair := s
	rest := ""
	if i := strings.IndexByte(s, ';'); i >= 0 {
		pair, rest = s[:i], s[i+1:]
	}
	eq := strings.IndexByte(pair, '=')
	if eq < 0 {
		return sc, false
	}
	sc.name = strings.Trim(pair[:eq], " \t")
	sc.value = strings.Trim(pair[eq+1:], " \t")
	if sc.name == "" {
		return sc, false
	}

	for rest != "" {
		attr := rest
		if i := strings.IndexByte(rest, ';'); i >= 0 {
			attr, rest = rest[:i], rest[i+1:]
		} else {
			rest = ""
		}
		name, value := attr, ""
		if i := strings.IndexByte(attr, '='); i >= 0 {
			name, value = attr[:i], attr[i+1:]
		}
		name = strings.Trim(name, " \t")
		value = strings.Trim(value, " \t")

		switch strings.ToLower(name) {
		case "secure":
			sc.secure = true
		case "httponly":
			sc.httpOnly = true
		case "max-age":
			if n, ok := parseMaxAge(value); ok {
				sc.maxAge = n
				sc.hasMaxAge = true
			}
		case "expires":
			if t, ok := parseCookieDate(value); ok {
				sc.expires = t
			}
		case "domain":
			if d := strings.TrimPrefix(value, "."); d != "" {
				sc.domain = strings.ToLower(d)
			}
		case "path":
			if strings.HasPrefix(value, "/") {
				sc.path = value
			}
		}
	}
	return sc, true
}

// parseMaxAge accepts an optionally signed run of digits and nothing
// else.
func parseMaxAge(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	neg := false
	digits := s
	if s[0] == '-' {
		neg = true
		digits = s[1:]
	}
	if digits == "" {
		return 0, false
	}
	var n int64
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int64(c-'0')
		if n > 1<<40 {
			// Anything this far out is effectively forever.
			n = 1 << 40
		}
	}
	if neg {
		n = -n
	}
	return n, true
}

// cookieDateFormats are the date layouts servers actually emit:
// RFC 1123, the obsolete RFC 850 form, and ANSI C asctime.
var cookieDateFormats = []string{
	time.RFC1123,
	"Monday, 02-Jan-06 15:04:05 MST",
	time.ANSIC,
}

func parseCookieDate(s string) (time.Time, bool) {
	for _, layout := range cookieDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// domainMatch reports whether host is covered by a cookie domain:
// exact match, or a suffix at a label boundary. Both arguments must
// already be lowercase.
func domainMatch(host, domain string) bool {
	if host == domain {
		return true
	}
	if strings.HasSuffix(host, domain) {
		return host[len(host)-len(domain)-1] == '.'
	}
	return false
}

// pathMatch implements the RFC 6265 path-match rules.
func pathMatch(reqPath, cookiePath string) bool {
	if reqPath == cookiePath {
		return true
	}
	if strings.HasPrefix(reqPath, cookiePath) {
		if strings.HasSuffix(cookiePath, "/") {
			return true
		}
		return len(reqPath) > len(cookiePath) && reqPath[len(cookiePath)] == '/'
	}
	return false
}

// defaultPath derives the cookie path from the request path when the
// Path attribute is absent: everything up to the last slash.
func defaultPath(reqPath string) string {
	if !strings.HasPrefix(reqPath, "/") {
		return "/"
	}
	i := strings.LastIndexByte(reqPath, '/')
	if i <= 0 {
		return "/"
	}
	return reqPath[:i]
}
