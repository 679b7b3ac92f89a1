package wire

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidMethod     = errors.New("wire: invalid request method")
	ErrInvalidTarget     = errors.New("wire: invalid request target")
	ErrInvalidFieldName  = errors.New("wire: invalid header field name")
	ErrInvalidFieldValue = errors.New("wire: header field value contains a forbidden character")
)

// Request carries everything EncodeRequest needs, already resolved
// by the caller: the origin-form target, the Host value, and the
// defaults to inject when the caller did not set them.
type Request struct {
	Method string
	Target string
	Host   string
	Fields []Field

	// Body nil means no body at all; a non-nil empty slice means an
	// empty body is present and Content-Length: 0 is written.
	Body []byte

	UserAgent string
	Accept    string
	Close     bool
}

// EncodeRequest renders one HTTP/1.1 request. Wire order: request
// line, Host, caller fields in insertion order, then User-Agent,
// Accept, Connection: close and Content-Length for whichever of
// those the caller did not set themselves. Requests are never
// chunk-encoded; a body always travels with a Content-Length.
func EncodeRequest(req *Request) ([]byte, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	target := req.Target
	if target == "" {
		target = "/"
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s HTTP/1.1\r\n", req.Method, target)
	if !HasField(req.Fields, "Host") {
		fmt.Fprintf(&buf, "Host: %s\r\n", req.Host)
	}
	for _, f := range req.Fields {
		fmt.Fprintf(&buf, "%s: %s\r\n", f.Name, f.Value)
	}
	if req.UserAgent != "" && !HasField(req.Fields, "User-Agent") {
		fmt.Fprintf(&buf, "User-Agent: %s\r\n", req.UserAgent)
	}
	if req.Accept != "" && !HasField(req.Fields, "Accept") {
		fmt.Fprintf(&buf, "Accept: %s\r\n", req.Accept)
	}
	if req.Close && !HasField(req.Fields, "Connection") {
		buf.WriteString("Connection: close\r\n")
	}
	if req.Body != nil && !HasField(req.Fields, "Content-Length") {
		fmt.Fprintf(&buf, "Content-Length: %d\r\n", len(req.Body))
	}
	buf.WriteString("\r\n")
	buf.Write(req.Body)
	return buf.Bytes(), nil
}

func checkRequest(req *Request) error {
	if !validFieldName(req.Method) {
		return fmt.Errorf("%w: %q", ErrInvalidMethod, req.Method)
	}
	if strings.ContainsAny(req.Target, " \r\n\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidTarget, req.Target)
	}
	for _, f := range req.Fields {
		if !validFieldName(f.Name) {
			return fmt.Errorf("%w: %q", ErrInvalidFieldName, f.Name)
		}
		if !validFieldValue(f.Value) {
			return fmt.Errorf("%w: field %q", ErrInvalidFieldValue, f.Name)
		}
	}
	// Injected values pass the same check as caller fields.
	if !validFieldValue(req.Host) {
		return fmt.Errorf("%w: Host", ErrInvalidFieldValue)
	}
	if !validFieldValue(req.UserAgent) {
		return fmt.Errorf("%w: User-Agent", ErrInvalidFieldValue)
	}
	if !validFieldValue(req.Accept) {
		return fmt.Errorf("%w: Accept", ErrInvalidFieldValue)
	}
	return nil
}
