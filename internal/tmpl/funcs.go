package tmpl

import (
	"os"
	"strings"
	"text/template"
)

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// funcMap is the builtin function/filter library available to every
// expansion: the read(path) builtin plus the filter set spec.md 4.2
// names (trim, upper, lower, replace, default).
func (e *Engine) funcMap() template.FuncMap {
	return template.FuncMap{
		"read": func(path string) (string, error) {
			data, err := readRooted(e.root, path)
			if err != nil {
				return "", err
			}
			return string(data), nil
		},
		"trim":  strings.TrimSpace,
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"replace": func(old, newVal, s string) string {
			return strings.ReplaceAll(s, old, newVal)
		},
		"default": func(fallback, value string) string {
			if value == "" {
				return fallback
			}
			return value
		},
	}
}
