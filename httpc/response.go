package httpc

// Response is a fully read response. The connection that produced
// it has already been returned to the pool or closed by the time
// the caller holds one, so a Response never pins a socket.
type Response struct {
	StatusCode int
	Reason     string
	Proto      string
	Header     Header
	Body       []byte
}

// Text returns the body as a string.
func (r *Response) Text() string { return string(r.Body) }

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// IsRedirect reports a 3xx status.
func (r *Response) IsRedirect() bool { return r.StatusCode >= 300 && r.StatusCode < 400 }

// IsClientError reports a 4xx status.
func (r *Response) IsClientError() bool { return r.StatusCode >= 400 && r.StatusCode < 500 }

// IsServerError reports a 5xx status.
func (r *Response) IsServerError() bool { return r.StatusCode >= 500 && r.StatusCode < 600 }

// ContentType returns the Content-Type header value.
func (r *Response) ContentType() string { return r.Header.Get("Content-Type") }

// Cookies returns the Set-Cookie values in response order.
func (r *Response) Cookies() []string { return r.Header.Values("Set-Cookie") }
