package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrInvalidChunk = errors.New("wire: invalid chunk framing")

// readChunkedBody consumes a chunked transfer-encoded body including
// the trailer section and returns the joined chunk data. The stream
// is left positioned after the final blank line so the connection
// can carry another request.
func readChunkedBody(br *bufio.Reader, maxLine int) ([]byte, error) {
	var body []byte
	for {
		size, err := readChunkSize(br, maxLine)
		if err != nil {
			return body, err
		}
		if size == 0 {
			if err := readTrailers(br, maxLine); err != nil {
				return body, err
			}
			return body, nil
		}
		body, err = appendExactly(br, body, size)
		if err != nil {
			return body, eofAsTruncated(err)
		}
		if err := expectCRLF(br); err != nil {
			return body, err
		}
	}
}

func readChunkSize(br *bufio.Reader, maxLine int) (int64, error) {
	line, err := readLineLimit(br, maxLine)
	if err != nil {
		return 0, chunkLineErr(err)
	}
	// Strip chunk extensions if any: "<hex>;<ext>"
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, fmt.Errorf("%w: empty size line", ErrInvalidChunk)
	}
	n, err := strconv.ParseInt(line, 16, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: size %q", ErrInvalidChunk, line)
	}
	return n, nil
}

func expectCRLF(br *bufio.Reader) error {
	b1, err := br.ReadByte()
	if err != nil {
		return chunkLineErr(err)
	}
	b2, err := br.ReadByte()
	if err != nil {
		return chunkLineErr(err)
	}
	if b1 != '\r' || b2 != '\n' {
		return fmt.Errorf("%w: expected CRLF after chunk data", ErrInvalidChunk)
	}
	return nil
}

// readTrailers discards trailer fields up to the blank line.
func readTrailers(br *bufio.Reader, maxLine int) error {
	for {
		line, err := readLineLimit(br, maxLine)
		if err != nil {
			return chunkLineErr(err)
		}
		if line == "" {
			return nil
		}
	}
}

func chunkLineErr(err error) error {
	if errors.Is(err, io.ErrShortBuffer) {
		return fmt.Errorf("%w: line too long", ErrInvalidChunk)
	}
	return eofAsTruncated(err)
}
