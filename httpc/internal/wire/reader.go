package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	ErrMalformedStatusLine = errors.New("wire: malformed status line")
	ErrMalformedHeader     = errors.New("wire: malformed header line")
	ErrHeaderTooLarge      = errors.New("wire: response header block too large")
	ErrTruncatedBody       = errors.New("wire: response body truncated")
)

// Response is one decoded message with the body fully drained from
// the stream before it is returned.
type Response struct {
	Proto      string
	StatusCode int
	Reason     string
	Fields     []Field
	Body       []byte

	// Close reports that the connection cannot carry another
	// request: the body ran to end-of-stream, or the server sent
	// Connection: close.
	Close bool
}

// ReadOptions bound a single decode.
type ReadOptions struct {
	MaxHeaderBytes int // status line + header block total, 0 means 64 KiB
	MaxLineBytes   int // single line, 0 means 8 KiB

	// NoBody marks a response to a HEAD request. Such a response
	// never has a body regardless of its framing headers; a
	// Content-Length there describes the GET equivalent.
	NoBody bool
}

const (
	defaultMaxHeaderBytes = 64 << 10
	defaultMaxLineBytes   = 8 << 10
)

// ReadResponse decodes exactly one response from br. Body framing
// precedence: chunked Transfer-Encoding, then a valid
// Content-Length, then the no-body statuses (1xx, 204, 304), then
// read-until-EOF with Close set. Transport errors pass through
// unwrapped so the caller can tell a dead connection from a
// protocol violation.
func ReadResponse(br *bufio.Reader, opt ReadOptions) (*Response, error) {
	maxHeader := opt.MaxHeaderBytes
	if maxHeader <= 0 {
		maxHeader = defaultMaxHeaderBytes
	}
	maxLine := opt.MaxLineBytes
	if maxLine <= 0 {
		maxLine = defaultMaxLineBytes
	}
	if maxLine > maxHeader {
		maxLine = maxHeader
	}

	line, err := readLineLimit(br, maxLine)
	if err != nil {
		return nil, headerLimitErr(err)
	}
	resp := &Response{}
	if err := parseStatusLine(line, resp); err != nil {
		return nil, err
	}

	total := len(line) + 2
	for {
		line, err = readLineLimit(br, maxLine)
		if err != nil {
			return nil, headerLimitErr(err)
		}
		total += len(line) + 2
		if total > maxHeader {
			return nil, ErrHeaderTooLarge
		}
		if line == "" {
			break
		}
		i := strings.IndexByte(line, ':')
		if i <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
		}
		name := strings.TrimSpace(line[:i])
		if name == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
		}
		resp.Fields = append(resp.Fields, Field{
			Name:  name,
			Value: strings.TrimSpace(line[i+1:]),
		})
	}

	if err := readBody(br, resp, opt, maxLine); err != nil {
		return nil, err
	}
	if connectionClose(resp.Fields) {
		resp.Close = true
	}
	return resp, nil
}

func parseStatusLine(line string, resp *Response) error {
	proto, rest, ok := strings.Cut(line, " ")
	if !ok {
		return fmt.Errorf("%w: %q", ErrMalformedStatusLine, line)
	}
	if proto != "HTTP/1.1" && proto != "HTTP/1.0" {
		return fmt.Errorf("%w: %q", ErrMalformedStatusLine, line)
	}
	codeStr, reason, _ := strings.Cut(rest, " ")
	if len(codeStr) != 3 {
		return fmt.Errorf("%w: %q", ErrMalformedStatusLine, line)
	}
	code, err := strconv.Atoi(codeStr)
	if err != nil || code < 100 {
		return fmt.Errorf("%w: %q", ErrMalformedStatusLine, line)
	}
	resp.Proto = proto
	resp.StatusCode = code
	resp.Reason = reason
	return nil
}

func readBody(br *bufio.Reader, resp *Response, opt ReadOptions, maxLine int) error {
	if opt.NoBody {
		return nil
	}
	if hasChunkedTE(resp.Fields) {
		body, err := readChunkedBody(br, maxLine)
		resp.Body = body
		return err
	}
	if v, ok := FirstValue(resp.Fields, "Content-Length"); ok {
		// An unparsable length is ignored and framing falls
		// through, it does not fail the decode.
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && n >= 0 {
			body, err := appendExactly(br, nil, n)
			resp.Body = body
			return eofAsTruncated(err)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode == 204 || resp.StatusCode == 304 {
		return nil
	}
	body, err := io.ReadAll(br)
	resp.Body = body
	resp.Close = true
	return err
}

// appendExactly reads exactly n bytes onto dst, growing as bytes
// actually arrive rather than trusting an attacker-controlled size.
func appendExactly(br *bufio.Reader, dst []byte, n int64) ([]byte, error) {
	if n <= 0 {
		return dst, nil
	}
	step := n
	if step > 16<<10 {
		step = 16 << 10
	}
	scratch := make([]byte, step)
	for n > 0 {
		want := int64(len(scratch))
		if want > n {
			want = n
		}
		m, err := io.ReadFull(br, scratch[:want])
		dst = append(dst, scratch[:m]...)
		n -= int64(m)
		if err != nil {
			return dst, err
		}
	}
	return dst, nil
}

func eofAsTruncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncatedBody
	}
	return err
}

func headerLimitErr(err error) error {
	if errors.Is(err, io.ErrShortBuffer) {
		return ErrHeaderTooLarge
	}
	return err
}

// readLineLimit reads one line, tolerating bare LF and stripping CR.
func readLineLimit(br *bufio.Reader, limit int) (string, error) {
	var sb strings.Builder
	for {
		b, err := br.ReadByte()
		if err != nil {
			return "", err
		}
		if b == '\n' {
			break
		}
		if b != '\r' {
			sb.WriteByte(b)
		}
		if limit > 0 && sb.Len() > limit {
			return "", io.ErrShortBuffer
		}
	}
	return sb.String(), nil
}
