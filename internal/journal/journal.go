// Package journal records SendFreight run notes. Every note is appended to the run log;
// reported notes are also printed to the console and collected for the email report.
package journal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/VCGI/VT-DataRail-Tools/internal/logging"
)

// Journal is safe for concurrent use.
type Journal struct {
	mu      sync.Mutex
	file    zerolog.Logger
	console zerolog.Logger
	closer  io.Closer
	now     func() time.Time
	report  strings.Builder
}

// Open appends to the run log at path. An empty path keeps notes off disk.
func Open(path string, console zerolog.Logger) (*Journal, error) {
	if path == "" {
		return New(io.Discard, console), nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create run log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	j := New(f, console)
	j.closer = f
	return j, nil
}

// New writes the run log to w.
func New(w io.Writer, console zerolog.Logger) *Journal {
	return &Journal{
		file:    logging.RunLog(w),
		console: console,
		now:     time.Now,
	}
}

// SetClock replaces the time source.
func (j *Journal) SetClock(now func() time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.now = now
}

// Now returns the journal's current time.
func (j *Journal) Now() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.now()
}

// Note appends a line to the run log only.
func (j *Journal) Note(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.write(msg)
}

// Notef is Note with formatting.
func (j *Journal) Notef(format string, args ...any) {
	j.Note(fmt.Sprintf(format, args...))
}

// Report appends a line to the run log, prints it and adds it to the email report.
func (j *Journal) Report(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	line := j.write(msg)
	j.console.Info().Msg(msg)
	j.report.WriteString(line)
	j.report.WriteByte('\n')
}

// Reportf is Report with formatting.
func (j *Journal) Reportf(format string, args ...any) {
	j.Report(fmt.Sprintf(format, args...))
}

// Body returns the collected email report.
func (j *Journal) Body() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.report.String()
}

// Close closes the run log file.
func (j *Journal) Close() error {
	if j.closer == nil {
		return nil
	}
	return j.closer.Close()
}

func (j *Journal) write(msg string) string {
	now := j.now()
	j.file.Log().Time(zerolog.TimestampFieldName, now).Msg(msg)
	return now.Format(logging.StampLayout) + "  " + msg
}
