// Package logging configures zerolog for the datarail binaries: a console writer for
// operators and the run-log line format shared by SendFreight notes.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel   = "DATARAIL_LOG_LEVEL"
	EnvLogNoColor = "DATARAIL_LOG_NOCOLOR"
)

// StampLayout is the run-log timestamp, e.g. 20171201-1433.
const StampLayout = "20060102-1504"

// Options configures the console logger.
type Options struct {
	App     string
	Level   string
	NoColor bool
	Out     io.Writer // defaults to stderr
}

// New builds the console logger and installs it as the global zerolog logger.
// DATARAIL_LOG_LEVEL and DATARAIL_LOG_NOCOLOR override opts.
func New(opts Options) zerolog.Logger {
	applyEnvOverrides(&opts)
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	level, ok := ParseLevel(opts.Level)
	if !ok {
		level = zerolog.InfoLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    opts.NoColor,
		TimeFormat: time.RFC3339,
	}
	ctx := zerolog.New(output).Level(level).With().Timestamp()
	if opts.App != "" {
		ctx = ctx.Str("app", opts.App)
	}
	logger := ctx.Logger()
	log.Logger = logger
	return logger
}

// RunLog returns a logger that writes each message as one "YYYYMMDD-HHMM  message" line.
// Events must carry their time in the "time" field.
func RunLog(w io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		PartsOrder: []string{zerolog.TimestampFieldName, zerolog.MessageFieldName},
		FormatTimestamp: func(i interface{}) string {
			raw, _ := i.(string)
			t, err := time.Parse(zerolog.TimeFieldFormat, raw)
			if err != nil {
				return raw + " "
			}
			// Two spaces separate the stamp from the note.
			return t.Format(StampLayout) + " "
		},
		FormatFieldName:  func(interface{}) string { return "" },
		FormatFieldValue: func(interface{}) string { return "" },
	}
	return zerolog.New(output)
}

func applyEnvOverrides(opts *Options) {
	if raw := os.Getenv(EnvLogLevel); raw != "" {
		opts.Level = raw
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		opts.NoColor = v
	}
}

// ParseLevel accepts zerolog level names plus a few aliases.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
