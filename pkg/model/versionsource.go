package model

// VersionSource is a named, ordered list of probes for discovering an
// installed tool's version; the first probe that successfully resolves
// wins (spec.md 4.4 step 2).
type VersionSource struct {
	Probes []Probe `yaml:"probes" json:"probes" jsonschema:"description=Ordered version probes,required,minItems=1"`
}

// Probe describes one way to discover a tool's version: read a file
// and extract it with a regular expression, or run a command and parse
// its output.
type Probe struct {
	// File is a path (relative to the repository root) to read and
	// match Pattern against.
	File string `yaml:"file,omitempty" json:"file,omitempty" jsonschema:"description=File to read and match against"`

	// Pattern is a regular expression with exactly one capture group:
	// the version string.
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty" jsonschema:"description=Regular expression with one capture group yielding the version"`

	// Command is a shell command to run (at generation time, from the
	// repository root) whose stdout (trimmed) is the version.
	Command string `yaml:"command,omitempty" json:"command,omitempty" jsonschema:"description=Command whose trimmed stdout is the version"`
}

// IsFileProbe reports whether this probe reads a file rather than
// runs a command.
func (p Probe) IsFileProbe() bool { return p.File != "" }
