package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xeipuuv/gojsonschema"

	"github.com/cigenhq/cigen/internal/diag"
	"github.com/cigenhq/cigen/pkg/model"
)

// ValidateSchema validates the merged config against the schema named
// by its $schema key, if one is present in config.yml. Projects that
// don't opt into a $schema reference skip this step entirely — it is
// not required, only honored when declared (mirrors the
// yaml-language-server header the teacher writes in
// pkg/config/config.go's Save, read back here instead of only written).
func ValidateSchema(dir string, cfg *model.Config, c *diag.Collector) error {
	schemaRef, err := declaredSchema(dir)
	if err != nil || schemaRef == "" {
		return nil
	}

	schemaLoader := gojsonschema.NewReferenceLoader(schemaRef)

	asJSON, err := configAsJSON(cfg)
	if err != nil {
		return fmt.Errorf("marshal config for schema validation: %w", err)
	}
	docLoader := gojsonschema.NewBytesLoader(asJSON)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("loading schema %s: %w", schemaRef, err)
	}

	for _, re := range result.Errors() {
		c.Add(diag.ConfigError(diag.Span{Path: dir}, "%s", re.String()))
	}

	return nil
}

// declaredSchema reads the "# yaml-language-server: $schema=..." header
// line from config.yml, the same convention the teacher writes via
// Config.Save. Returns "" if no config.yml or no such header exists.
func declaredSchema(dir string) (string, error) {
	path := filepath.Join(dir, "config.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil
	}

	const prefix = "# yaml-language-server: $schema="
	for _, line := range splitLines(data) {
		if len(line) > len(prefix) && line[:len(prefix)] == prefix {
			return line[len(prefix):], nil
		}
	}
	return "", nil
}

func splitLines(data []byte) []string {
	var lines []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, string(data[start:i]))
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, string(data[start:]))
	}
	return lines
}

func configAsJSON(cfg *model.Config) ([]byte, error) {
	return json.Marshal(cfg)
}
