package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want zerolog.Level
		ok   bool
	}{
		{"debug", zerolog.DebugLevel, true},
		{" WARNING ", zerolog.WarnLevel, true},
		{"off", zerolog.Disabled, true},
		{"", zerolog.InfoLevel, false},
		{"loud", zerolog.InfoLevel, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRunLogLineFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := RunLog(&buf)
	when := time.Date(2017, 12, 1, 14, 33, 0, 0, time.Local)
	logger.Log().Time(zerolog.TimestampFieldName, when).Msg("Script completed.")

	if got := buf.String(); got != "20171201-1433  Script completed.\n" {
		t.Errorf("run-log line = %q", got)
	}
}

func TestNewHonorsEnvLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	var buf bytes.Buffer
	logger := New(Options{App: "datarail", Level: "debug", NoColor: true, Out: &buf})
	logger.Info().Msg("hidden")
	logger.Error().Msg("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output %q", out)
	}
}
