package obs

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"debug", Debug},
		{"DEBUG", Debug},
		{"info", Info},
		{"warn", Warn},
		{"warning", Warn},
		{"error", Error},
		{"nonsense", Info},
		{"", Info},
	}
	for _, c := range cases {
		if got := ParseLevel(c.in); got != c.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestStdLoggerFiltersBelowMin(t *testing.T) {
	var buf bytes.Buffer
	lg := StdLogger{L: log.New(&buf, "", 0), Min: Warn}

	lg.Logf(Debug, "quiet")
	lg.Logf(Info, "quiet too")
	if buf.Len() != 0 {
		t.Fatalf("below-min levels logged: %q", buf.String())
	}

	lg.Logf(Error, "loud %d", 1)
	if got := buf.String(); !strings.Contains(got, "[ERROR] loud 1") {
		t.Fatalf("got %q", got)
	}
}

func TestStdLoggerPrefix(t *testing.T) {
	var buf bytes.Buffer
	lg := StdLogger{L: log.New(&buf, "", 0), Pref: "httpc "}

	lg.Logf(Info, "hello")
	if got := buf.String(); !strings.Contains(got, "httpc [INFO] hello") {
		t.Fatalf("got %q", got)
	}
}

func TestZerologLoggerWritesThrough(t *testing.T) {
	var buf bytes.Buffer
	lg := ZerologLogger{L: zerolog.New(&buf)}

	lg.Logf(Info, "hello %d", 7)
	if got := buf.String(); !strings.Contains(got, "hello 7") {
		t.Fatalf("got %q", got)
	}
}

func TestOTelMeterNoProvider(t *testing.T) {
	// Without a provider the global otel API is a no-op; recording
	// must still be safe.
	m := NewOTelMeter("test")
	m.Counter("c", 1, Label{Key: "k", Value: "v"})
	m.Histogram("h", 0.25)
}
