package cookiejar

import (
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// storedCookie is a cookie at rest. Exported fields so the bolt jar
// can serialize it; the type itself stays internal.
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Secure   bool      `json:"secure"`
	HTTPOnly bool      `json:"http_only"`
	HostOnly bool      `json:"host_only"`
	Created  time.Time `json:"created"`
	Expires  time.Time `json:"expires"` // zero means session cookie

	seq uint64 // creation order tie-break, not persisted
}

func (c *storedCookie) expired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

// Jar is an in-memory cookie store safe for concurrent use. It
// implements the client's CookieJar interface.
type Jar struct {
	mu      sync.Mutex
	cookies []storedCookie
	seq     uint64
}

func NewJar() *Jar {
	return &Jar{}
}

// SetCookies records the Set-Cookie values of a response from u.
// Lines that fail to parse are skipped. A cookie whose Domain
// attribute does not cover u's host is rejected; Max-Age <= 0 or a
// past Expires removes the matching stored cookie.
func (j *Jar) SetCookies(u *url.URL, setCookies []string) {
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return
	}
	reqPath := u.EscapedPath()
	if reqPath == "" {
		reqPath = "/"
	}
	now := time.Now()

	j.mu.Lock()
	defer j.mu.Unlock()
	for _, line := range setCookies {
		sc, ok := parseSetCookie(line)
		if !ok {
			continue
		}
		j.insertLocked(sc, host, reqPath, now)
	}
}

func (j *Jar) insertLocked(sc setCookie, host, reqPath string, now time.Time) {
	hostOnly := sc.domain == ""
	domain := sc.domain
	if hostOnly {
		domain = host
	} else if !domainMatch(host, domain) {
		return
	}
	path := sc.path
	if path == "" {
		path = defaultPath(reqPath)
	}

	var expires time.Time
	switch {
	case sc.hasMaxAge:
		if sc.maxAge <= 0 {
			j.removeLocked(sc.name, domain, path)
			return
		}
		expires = now.Add(time.Duration(sc.maxAge) * time.Second)
	case !sc.expires.IsZero():
		if !sc.expires.After(now) {
			j.removeLocked(sc.name, domain, path)
			return
		}
		expires = sc.expires
	}

	j.removeLocked(sc.name, domain, path)
	j.seq++
	j.cookies = append(j.cookies, storedCookie{
		Name:     sc.name,
		Value:    sc.value,
		Domain:   domain,
		Path:     path,
		Secure:   sc.secure,
		HTTPOnly: sc.httpOnly,
		HostOnly: hostOnly,
		Created:  now,
		Expires:  expires,
		seq:      j.seq,
	})
}

func (j *Jar) removeLocked(name, domain, path string) {
	kept := j.cookies[:0]
	for _, c := range j.cookies {
		if c.Name == name && c.Domain == domain && c.Path == path {
			continue
		}
		kept = append(kept, c)
	}
	j.cookies = kept
}

// CookieHeader returns the Cookie line for a request to u, longest
// path first, then oldest cookie first. Secure cookies only go out
// over https.
func (j *Jar) CookieHeader(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	reqPath := u.EscapedPath()
	if reqPath == "" {
		reqPath = "/"
	}
	secure := u.Scheme == "https"
	now := time.Now()

	j.mu.Lock()
	defer j.mu.Unlock()

	var match []*storedCookie
	for i := range j.cookies {
		c := &j.cookies[i]
		if c.expired(now) {
			continue
		}
		if c.Secure && !secure {
			continue
		}
		if c.HostOnly {
			if host != c.Domain {
				continue
			}
		} else if !domainMatch(host, c.Domain) {
			continue
		}
		if !pathMatch(reqPath, c.Path) {
			continue
		}
		match = append(match, c)
	}

	sort.Slice(match, func(a, b int) bool {
		if len(match[a].Path) != len(match[b].Path) {
			return len(match[a].Path) > len(match[b].Path)
		}
		if !match[a].Created.Equal(match[b].Created) {
			return match[a].Created.Before(match[b].Created)
		}
		return match[a].seq < match[b].seq
	})

	var sb strings.Builder
	for i, c := range match {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(c.Name)
		sb.WriteByte('=')
		sb.WriteString(c.Value)
	}
	return sb.String()
}

// Clear drops every stored cookie.
func (j *Jar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies = nil
}

// add inserts a cookie as-is, keeping its timestamps. Used when
// loading from persistent storage.
func (j *Jar) add(c storedCookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.removeLocked(c.Name, c.Domain, c.Path)
	j.seq++
	c.seq = j.seq
	j.cookies = append(j.cookies, c)
}

// persistent returns copies of the unexpired non-session cookies.
func (j *Jar) persistent() []storedCookie {
	now := time.Now()
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []storedCookie
	for _, c := range j.cookies {
		if c.Expires.IsZero() || c.expired(now) {
			continue
		}
		out = append(out, c)
	}
	return out
}
