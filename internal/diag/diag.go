// Package diag accumulates compiler diagnostics and renders them as text or
// JSON. One Reporter belongs to exactly one compilation job; §5 of the spec
// requires two concurrent jobs to use disjoint instances, so nothing here is
// safe to share across goroutines.
package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"streamhls/internal/source"
)

// Severity classifies a diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Kind is one of the named error kinds from spec §7. ParseError is included
// for completeness even though this module never produces it itself — the
// external parser (out of scope, per spec §1) is the only source of one, and
// Reporter is how it would surface a ParseError into the same diagnostic
// stream as everything else.
type Kind string

const (
	KindParseError            Kind = "ParseError"
	KindTypeMismatch          Kind = "TypeMismatch"
	KindUndeclaredName        Kind = "UndeclaredName"
	KindRedefinition          Kind = "Redefinition"
	KindAmbiguous             Kind = "Ambiguous"
	KindNotAnLValue           Kind = "NotAnLValue"
	KindArityMismatch         Kind = "ArityMismatch"
	KindNonConstantArraySize  Kind = "NonConstantArraySize"
	KindRateMismatch          Kind = "RateMismatch"
	KindPipelineTypeMismatch  Kind = "PipelineTypeMismatch"
	KindUnschedulableGraph    Kind = "UnschedulableGraph"
	KindUnsupportedForHW      Kind = "UnsupportedForHardware"
	KindIoError               Kind = "IoError"
	KindInternal              Kind = "Internal"
	KindWarning               Kind = "Warning"
)

// Diagnostic is a single reported issue.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Pos      source.Position
	Message  string
}

func (d Diagnostic) String() string {
	if d.Kind == "" {
		return fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s [%s]: %s", d.Pos, d.Severity, d.Kind, d.Message)
}

// Reporter collects diagnostics for a single compilation job and renders
// them to w on demand in the configured format ("text" or "json").
type Reporter struct {
	w       io.Writer
	format  string
	reports []Diagnostic
	errors  int
}

// NewReporter constructs a Reporter that writes to w using format ("text"
// or "json"; anything else falls back to "text").
func NewReporter(w io.Writer, format string) *Reporter {
	if format != "json" {
		format = "text"
	}
	return &Reporter{w: w, format: format}
}

// Error records an error-severity diagnostic of the given kind at pos.
func (r *Reporter) Error(kind Kind, pos source.Position, msg string) {
	r.add(Diagnostic{Severity: SeverityError, Kind: kind, Pos: pos, Message: msg})
}

// Errorf is Error with fmt.Sprintf-style formatting.
func (r *Reporter) Errorf(kind Kind, pos source.Position, format string, args ...any) {
	r.Error(kind, pos, fmt.Sprintf(format, args...))
}

// Warning records a warning-severity diagnostic at pos.
func (r *Reporter) Warning(pos source.Position, msg string) {
	r.add(Diagnostic{Severity: SeverityWarning, Kind: KindWarning, Pos: pos, Message: msg})
}

// Warningf is Warning with fmt.Sprintf-style formatting.
func (r *Reporter) Warningf(pos source.Position, format string, args ...any) {
	r.Warning(pos, fmt.Sprintf(format, args...))
}

// Internal records an Internal-kind error: a condition the semantic
// analyser should have already rejected. Per spec §7 these are bugs, not
// user-facing failures, but they are still routed through the same
// Reporter so callers keep a uniform "check HasErrors afterwards" contract.
func (r *Reporter) Internal(pos source.Position, msg string) {
	r.Error(KindInternal, pos, msg)
}

func (r *Reporter) add(d Diagnostic) {
	r.reports = append(r.reports, d)
	if d.Severity == SeverityError {
		r.errors++
	}
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (r *Reporter) HasErrors() bool {
	return r.errors > 0
}

// ErrorCount returns the number of error-severity diagnostics recorded.
func (r *Reporter) ErrorCount() int {
	return r.errors
}

// Diagnostics returns all recorded diagnostics in report order.
func (r *Reporter) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(r.reports))
	copy(out, r.reports)
	return out
}

// Flush renders every recorded diagnostic to the Reporter's writer.
func (r *Reporter) Flush() error {
	if r.format == "json" {
		return r.flushJSON()
	}
	return r.flushText()
}

func (r *Reporter) flushText() error {
	for _, d := range r.reports {
		if _, err := fmt.Fprintln(r.w, d.String()); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reporter) flushJSON() error {
	type jsonDiag struct {
		Severity string `json:"severity"`
		Kind     string `json:"kind"`
		Position string `json:"position"`
		Message  string `json:"message"`
	}
	out := make([]jsonDiag, 0, len(r.reports))
	for _, d := range r.reports {
		out = append(out, jsonDiag{
			Severity: d.Severity.String(),
			Kind:     string(d.Kind),
			Position: d.Pos.String(),
			Message:  d.Message,
		})
	}
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// SortByPosition orders recorded diagnostics by file, then line, then
// column; used before Flush so multi-declaration runs read top-to-bottom.
func (r *Reporter) SortByPosition() {
	sort.SliceStable(r.reports, func(i, j int) bool {
		a, b := r.reports[i].Pos, r.reports[j].Pos
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})
}
