package model

// Service is a long-running container a job can attach to by name
// (a database, a cache, a message broker) — translated by each
// provider emitter into its native service/sidecar construct.
type Service struct {
	Image       string            `yaml:"image" json:"image" jsonschema:"description=Container image,required"`
	Environment map[string]string `yaml:"environment,omitempty" json:"environment,omitempty" jsonschema:"description=Environment variables for the service container"`
	Command     []string          `yaml:"command,omitempty" json:"command,omitempty" jsonschema:"description=Override command for the service container"`
}
