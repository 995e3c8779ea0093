package tmpl

import "strings"

// ResolveVars layers template variables low-to-high precedence: config
// vars, then CIGEN_VAR_* environment variables, then CLI --var
// overrides (spec.md 4.2). Each layer fully overrides same-named keys
// from the layer below; evaluation happens once, eagerly, before any
// template runs, so no expansion result ever depends on evaluation
// order within a single document (spec.md 9).
func ResolveVars(configVars map[string]string, environ []string, cliVars map[string]string) map[string]any {
	out := make(map[string]any, len(configVars)+len(cliVars))
	for k, v := range configVars {
		out[k] = v
	}
	for _, kv := range environ {
		name, val, ok := envVarName(kv)
		if ok {
			out[name] = val
		}
	}
	for k, v := range cliVars {
		out[k] = v
	}
	return out
}

const envPrefix = "CIGEN_VAR_"

func envVarName(kv string) (name, value string, ok bool) {
	idx := strings.IndexByte(kv, '=')
	if idx < 0 {
		return "", "", false
	}
	key, val := kv[:idx], kv[idx+1:]
	if !strings.HasPrefix(key, envPrefix) {
		return "", "", false
	}
	return strings.TrimPrefix(key, envPrefix), val, true
}
