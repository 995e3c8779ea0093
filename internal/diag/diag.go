// Package diag defines the diagnostic and error taxonomy shared across
// every compiler phase: loading, templating, graph building, hashing,
// cache resolution, provider emission, and plugin hosting. Diagnostics
// carry a source Span where one is known so CLI output and editor
// tooling can point at the offending line without re-parsing anything.
package diag

import (
	"errors"
	"fmt"
)

// Kind identifies which phase raised a diagnostic and doubles as the
// CLI exit-code selector (see cmd/cigen/cmd/root.go).
type Kind int

const (
	KindConfig Kind = iota
	KindTemplate
	KindReference
	KindGraph
	KindHash
	KindProvider
	KindPlugin
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindTemplate:
		return "template"
	case KindReference:
		return "reference"
	case KindGraph:
		return "graph"
	case KindHash:
		return "hash"
	case KindProvider:
		return "provider"
	case KindPlugin:
		return "plugin"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// ExitCode maps a Kind to the process exit code documented for the CLI.
func (k Kind) ExitCode() int {
	switch k {
	case KindConfig, KindTemplate, KindReference:
		return 1
	case KindGraph:
		return 2
	case KindProvider, KindPlugin:
		return 3
	case KindIO:
		return 4
	default:
		return 1
	}
}

// Level distinguishes diagnostics that abort a phase from ones that are
// merely surfaced to the user.
type Level int

const (
	LevelWarning Level = iota
	LevelError
)

// Span locates a diagnostic in a source YAML document.
type Span struct {
	Path   string
	Line   int
	Column int
}

func (s Span) String() string {
	if s.Path == "" {
		return ""
	}
	if s.Line == 0 {
		return s.Path
	}
	return fmt.Sprintf("%s:%d:%d", s.Path, s.Line, s.Column)
}

// Diagnostic is the common shape every phase-specific error embeds.
type Diagnostic struct {
	Kind    Kind
	Level   Level
	Span    Span
	Message string
	Cause   error
}

func (d *Diagnostic) Error() string {
	loc := d.Span.String()
	if loc == "" {
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", loc, d.Kind, d.Message)
}

func (d *Diagnostic) Unwrap() error { return d.Cause }

func newf(kind Kind, span Span, format string, args ...any) *Diagnostic {
	return &Diagnostic{Kind: kind, Level: LevelError, Span: span, Message: fmt.Sprintf(format, args...)}
}

// ConfigError reports a malformed or invalid configuration document.
func ConfigError(span Span, format string, args ...any) *Diagnostic {
	return newf(KindConfig, span, format, args...)
}

// TemplateError reports a template-expansion failure: undefined
// variable, unresolved filter, recursion limit, unreadable read() target.
func TemplateError(span Span, format string, args ...any) *Diagnostic {
	return newf(KindTemplate, span, format, args...)
}

// ReferenceError reports a dangling reference: a job, cache definition,
// version source, or source-file group that does not exist.
func ReferenceError(span Span, format string, args ...any) *Diagnostic {
	return newf(KindReference, span, format, args...)
}

// GraphError reports a structural problem in the dependency graph:
// cycles, cross-stage requires, conflicting matrix dimensions.
func GraphError(span Span, format string, args ...any) *Diagnostic {
	return newf(KindGraph, span, format, args...)
}

// HashError reports a failure computing a content digest: an unreadable
// file, a cyclic source-file-group reference, a git-tree access error.
func HashError(span Span, format string, args ...any) *Diagnostic {
	return newf(KindHash, span, format, args...)
}

// ProviderError reports a failure in a provider emitter: an unsupported
// construct, a collision between plugin output paths, a malformed
// fragment returned by a plugin.
func ProviderError(span Span, format string, args ...any) *Diagnostic {
	return newf(KindProvider, span, format, args...)
}

// PluginError reports an RPC-level failure talking to an external
// provider plugin: handshake mismatch, timeout, oversized message.
func PluginError(span Span, format string, args ...any) *Diagnostic {
	return newf(KindPlugin, span, format, args...)
}

// IOError reports a filesystem or environment failure unrelated to the
// document's content: unreadable root directory, unwritable output path.
func IOError(span Span, format string, args ...any) *Diagnostic {
	return newf(KindIO, span, format, args...)
}

// Wrap attaches a causing error to a diagnostic constructed above.
func Wrap(d *Diagnostic, cause error) *Diagnostic {
	d.Cause = cause
	return d
}

// Warning downgrades a diagnostic to a warning; warnings never abort a
// phase and are only surfaced to the caller.
func Warning(d *Diagnostic) *Diagnostic {
	d.Level = LevelWarning
	return d
}

// Collector accumulates diagnostics raised during a single phase and
// decides, at the phase boundary, whether they add up to a failure.
// Mirrors the accumulate-then-flush shape of the teacher's
// internal/policy.Result/Summary pair.
type Collector struct {
	diags []*Diagnostic
}

// Add records a diagnostic. Nil is ignored so call sites can add
// conditionally without an extra branch.
func (c *Collector) Add(d *Diagnostic) {
	if d == nil {
		return
	}
	c.diags = append(c.diags, d)
}

// Diagnostics returns every diagnostic recorded so far, in order.
func (c *Collector) Diagnostics() []*Diagnostic { return c.diags }

// Errors returns only the diagnostics at LevelError.
func (c *Collector) Errors() []*Diagnostic {
	var out []*Diagnostic
	for _, d := range c.diags {
		if d.Level == LevelError {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns only the diagnostics at LevelWarning.
func (c *Collector) Warnings() []*Diagnostic {
	var out []*Diagnostic
	for _, d := range c.diags {
		if d.Level == LevelWarning {
			out = append(out, d)
		}
	}
	return out
}

// HasErrors reports whether any recorded diagnostic is at LevelError.
func (c *Collector) HasErrors() bool {
	for _, d := range c.diags {
		if d.Level == LevelError {
			return true
		}
	}
	return false
}

// Err joins every error-level diagnostic into a single error, or
// returns nil if none were recorded. Intended to be called once at the
// end of a phase.
func (c *Collector) Err() error {
	errs := c.Errors()
	if len(errs) == 0 {
		return nil
	}
	wrapped := make([]error, len(errs))
	for i, d := range errs {
		wrapped[i] = d
	}
	return errors.Join(wrapped...)
}
