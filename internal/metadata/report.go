package metadata

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

var (
	reportRule = strings.Repeat("*", 44)
	itemRule   = strings.Repeat("+", 44)
)

// ReportWriter appends inspection results to a text report.
type ReportWriter struct {
	w      io.Writer
	closer io.Closer
	err    error
}

// OpenReport appends to the report at path, creating it when missing.
func OpenReport(path string) (*ReportWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	return &ReportWriter{w: f, closer: f}, nil
}

// NewReportWriter writes the report to w.
func NewReportWriter(w io.Writer) *ReportWriter {
	return &ReportWriter{w: w}
}

func (r *ReportWriter) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

// Header starts a report dated when.
func (r *ReportWriter) Header(when time.Time) {
	r.printf("%s\nMETADATA-INSPECTION REPORT - %s\n", reportRule, when.Format("01/02/2006"))
}

// Item writes one item's block.
func (r *ReportWriter) Item(res *Result) {
	r.printf("\n%s\n%s\n", itemRule, res.Item)
	for _, f := range res.Findings {
		r.printf("%s\n", f.Text)
	}
	r.printf("%s\n", res.Verdict)
}

// Footer ends the report.
func (r *ReportWriter) Footer() {
	r.printf("\nEND OF REPORT\n%s\n", reportRule)
}

// Err returns the first write error.
func (r *ReportWriter) Err() error { return r.err }

// Close closes the underlying file, if any, and returns the first write error.
func (r *ReportWriter) Close() error {
	if r.closer != nil {
		if err := r.closer.Close(); err != nil && r.err == nil {
			r.err = err
		}
	}
	return r.err
}
