// Package tmpl expands the Jinja-flavored templating spec.md 4.2
// describes: {{ var }} substitution, {% if %}/{% for %} control flow,
// a small filter library, and the read(path) builtin that inlines
// another file's contents. internal/compile applies it after loading,
// to each run step's command and environment values; other fields and
// whole files are not expanded.
package tmpl

import (
	"bytes"
	"fmt"
	"path/filepath"
	"text/template"

	"github.com/cigenhq/cigen/internal/diag"
)

// maxRecursion bounds read()-triggered re-expansion so a file that
// read()s itself (directly or transitively) fails fast instead of
// hanging (spec.md 9).
const maxRecursion = 32

// Engine expands templates against one fixed variable set and one
// fixed filesystem root (used to resolve read() targets).
type Engine struct {
	vars  map[string]any
	root  string
	depth int
}

// New returns an Engine that resolves read(path) relative to root and
// substitutes the given variables.
func New(root string, vars map[string]any) *Engine {
	return &Engine{vars: vars, root: root}
}

// ExpandInline expands a single string value (e.g. one YAML scalar).
func (e *Engine) ExpandInline(src string) (string, error) {
	if e.depth > maxRecursion {
		return "", fmt.Errorf("template recursion limit (%d) exceeded", maxRecursion)
	}

	processed := preprocess(src)

	tpl, err := template.New("inline").Funcs(e.funcMap()).Option("missingkey=error").Parse(processed)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, e.vars); err != nil {
		return "", fmt.Errorf("expand template: %w", err)
	}

	return buf.String(), nil
}

// ExpandFile reads a file under root and expands its full contents,
// used both for workflow/job fragments and for read() targets
// themselves (so a read()'d file can itself reference variables).
func (e *Engine) ExpandFile(relPath string) (string, error) {
	data, err := readRooted(e.root, relPath)
	if err != nil {
		return "", err
	}
	child := &Engine{vars: e.vars, root: e.root, depth: e.depth + 1}
	return child.ExpandInline(string(data))
}

// ExpandInlineDiag is ExpandInline but returns a diag.TemplateError on
// failure instead of a bare error, for callers that feed a
// diag.Collector directly.
func (e *Engine) ExpandInlineDiag(span diag.Span, src string) (string, *diag.Diagnostic) {
	out, err := e.ExpandInline(src)
	if err != nil {
		return "", diag.Wrap(diag.TemplateError(span, "%s", err.Error()), err)
	}
	return out, nil
}

func readRooted(root, relPath string) ([]byte, error) {
	full := filepath.Join(root, relPath)
	return readFile(full)
}
