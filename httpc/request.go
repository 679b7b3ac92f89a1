package httpc

// Request is one explicit request for Client.Do. The typed builders
// construct these internally; Do exists for callers that need an
// arbitrary method or carry requests around as values.
type Request struct {
	Method string
	URL    string
	Header Header

	// Body nil means no body at all; an empty non-nil slice sends
	// an empty body with Content-Length: 0.
	Body []byte
}
