package obs

import (
	"io"

	"github.com/rs/zerolog"
)

// ZerologLogger bridges Logger onto a zerolog.Logger. Level
// filtering is zerolog's; construct the logger at the threshold you
// want.
type ZerologLogger struct {
	L zerolog.Logger
}

func (z ZerologLogger) Logf(level Level, format string, args ...interface{}) {
	switch level {
	case Debug:
		z.L.Debug().Msgf(format, args...)
	case Info:
		z.L.Info().Msgf(format, args...)
	case Warn:
		z.L.Warn().Msgf(format, args...)
	default:
		z.L.Error().Msgf(format, args...)
	}
}

// NewZerolog builds a console-format zerolog logger writing to w at
// the given minimum level.
func NewZerolog(w io.Writer, min Level) ZerologLogger {
	zl := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger().
		Level(zerologLevel(min))
	return ZerologLogger{L: zl}
}

// NewZerologJSON is NewZerolog with line-delimited JSON output.
func NewZerologJSON(w io.Writer, min Level) ZerologLogger {
	zl := zerolog.New(w).
		With().Timestamp().Logger().
		Level(zerologLevel(min))
	return ZerologLogger{L: zl}
}

func zerologLevel(l Level) zerolog.Level {
	switch l {
	case Debug:
		return zerolog.DebugLevel
	case Info:
		return zerolog.InfoLevel
	case Warn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
