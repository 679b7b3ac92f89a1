package wire

import "strings"

// Field is one header field as written on the wire. Messages carry
// []Field rather than a map because order and duplicates are
// significant on both sides of the protocol.
type Field struct {
	Name  string
	Value string
}

// FirstValue returns the value of the first field named name,
// matching case-insensitively.
func FirstValue(fields []Field, name string) (string, bool) {
	for _, f := range fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// HasField reports whether any field is named name.
func HasField(fields []Field, name string) bool {
	_, ok := FirstValue(fields, name)
	return ok
}

func hasChunkedTE(fields []Field) bool {
	for _, f := range fields {
		if strings.EqualFold(f.Name, "Transfer-Encoding") &&
			strings.Contains(strings.ToLower(f.Value), "chunked") {
			return true
		}
	}
	return false
}

// connectionClose reports whether a Connection field lists the
// close token.
func connectionClose(fields []Field) bool {
	for _, f := range fields {
		if !strings.EqualFold(f.Name, "Connection") {
			continue
		}
		for _, tok := range strings.Split(f.Value, ",") {
			if strings.EqualFold(strings.TrimSpace(tok), "close") {
				return true
			}
		}
	}
	return false
}

// validFieldName reports whether k is a legal token per RFC 7230.
func validFieldName(k string) bool {
	if k == "" {
		return false
	}
	for i := 0; i < len(k); i++ {
		c := k[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			continue
		}
		switch c {
		case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
			continue
		default:
			return false
		}
	}
	return true
}

// validFieldValue rejects CR, LF and NUL, which would allow
// request splitting if echoed onto the wire.
func validFieldValue(v string) bool {
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '\r', '\n', 0:
			return false
		}
	}
	return true
}
