package hashsum

import "gopkg.in/yaml.v3"

// canonicalYAML renders v deterministically: yaml.v3 sorts map keys
// lexically during marshaling, which is exactly the canonicalization
// spec.md 4.3's job hash needs — the same dependency and technique
// internal/emit uses for deterministic provider output.
func canonicalYAML(v any) ([]byte, error) {
	return yaml.Marshal(v)
}
