// Package report writes scan outcomes to the two output channels.
//
// The result channel (normally stdout) receives only payloads or a single
// localized not-found line. Everything else, including machine-parsable
// diagnostic codes, goes to the diagnostic channel (normally stderr).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/message"
)

// Diagnostic codes written to the diagnostic channel.
const (
	CodeErrorOpen         = "ERROR_OPEN"
	CodeArgNoExists       = "ARG_NO_EXISTS"
	CodeErrorFileNotFound = "ERROR_FILE_NOT_FOUND"
	CodeErrPrimary        = "ERR_PYZBAR"
	CodeErrFallback       = "ERR_OPENCV"
	CodeTriedMethods      = "TRIED_METHODS"
	CodeTimeout           = "TIMEOUT"
)

// Format selects how final results are rendered on the result channel.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a user-supplied output format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want text or json)", s)
	}
}

// Outcome is the final result of a scan as seen by the reporter.
type Outcome struct {
	Payloads []string
	Strategy string
	Trail    []string
	Duration time.Duration
}

// Reporter writes to a result and a diagnostic writer. It is safe for
// concurrent use; lines are never interleaved.
type Reporter struct {
	mu      sync.Mutex
	out     io.Writer
	diag    io.Writer
	printer *message.Printer
	format  Format
}

// New creates a Reporter for the given language ("es" or "en"; anything else
// falls back to Spanish) and output format.
func New(out, diag io.Writer, lang string, format Format) *Reporter {
	if format == "" {
		format = FormatText
	}
	return &Reporter{out: out, diag: diag, printer: newPrinter(lang), format: format}
}

// Diagnostic writes "CODE:field:field..." to the diagnostic channel.
func (r *Reporter) Diagnostic(code string, fields ...string) {
	line := code
	if len(fields) > 0 {
		line += ":" + strings.Join(fields, ":")
	}
	r.writeLine(r.diag, line)
}

// Hint writes the localized cropping/resolution advice to diagnostics.
func (r *Reporter) Hint() {
	r.writeLine(r.diag, r.printer.Sprintf(keyHint))
}

// TriedMethods writes the comma-joined attempt trail to diagnostics.
func (r *Reporter) TriedMethods(trail []string) {
	r.Diagnostic(CodeTriedMethods, strings.Join(trail, ","))
}

// FileNotFound reports a missing input file on both channels.
func (r *Reporter) FileNotFound(path string) {
	r.Diagnostic(CodeErrorFileNotFound, path)
	if r.format == FormatJSON {
		r.writeJSON(Outcome{})
		return
	}
	r.writeLine(r.out, r.printer.Sprintf(keyFileNotFound))
}

// Result writes the final outcome. With payloads, text mode prints one per
// line. Without, it prints the not-found line, then the hint and trail on
// diagnostics.
func (r *Reporter) Result(o Outcome) {
	found := len(o.Payloads) > 0
	if r.format == FormatJSON {
		r.writeJSON(o)
	} else if found {
		for _, p := range o.Payloads {
			r.writeLine(r.out, p)
		}
	} else {
		r.writeLine(r.out, r.printer.Sprintf(keyNotFound))
	}
	if !found {
		r.Hint()
		r.TriedMethods(o.Trail)
	}
}

type jsonOutcome struct {
	Payloads     []string `json:"payloads"`
	Strategy     string   `json:"strategy"`
	TriedMethods []string `json:"tried_methods"`
	DurationMS   int64    `json:"duration_ms"`
}

func (r *Reporter) writeJSON(o Outcome) {
	doc := jsonOutcome{
		Payloads:     o.Payloads,
		Strategy:     o.Strategy,
		TriedMethods: o.Trail,
		DurationMS:   o.Duration.Milliseconds(),
	}
	if doc.Payloads == nil {
		doc.Payloads = []string{}
	}
	if doc.TriedMethods == nil {
		doc.TriedMethods = []string{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = json.NewEncoder(r.out).Encode(doc)
}

func (r *Reporter) writeLine(w io.Writer, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = io.WriteString(w, line+"\n")
}
