package model

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// SchemaURL is the $schema URL embedded in generated config headers
// and served by `cigen schema`.
const SchemaURL = "https://raw.githubusercontent.com/cigenhq/cigen/main/cigen.schema.json"

// GenerateJSONSchema returns the JSON Schema for a cigen config
// document, reflected from Config the same way the teacher reflects
// its own root config type (pkg/config/schema.go).
func GenerateJSONSchema() string {
	r := &jsonschema.Reflector{
		DoNotReference:             true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  true,
		RequiredFromJSONSchemaTags: true,
	}

	schema := r.Reflect(&Config{})
	schema.ID = SchemaURL
	schema.Title = "cigen configuration"
	schema.Description = "Configuration schema for cigen, a provider-agnostic CI/CD pipeline generator"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "{}"
	}

	return string(data)
}
