package environ

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// credentialVars maps a configured provider name to the environment
// variable its SDK reads.
var credentialVars = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// Resolve merges all layers, lowest precedence first. Resolution never
// fails: the optional layers (.env file, settings) contribute nothing
// when they cannot be read.
func (r *implResolver) Resolve(opts Options) map[string]string {
	env := make(map[string]string)

	for _, kv := range r.base() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}

	mergeInto(env, r.dotenvLayer())
	mergeInto(env, r.settingsLayer())
	mergeInto(env, r.computedLayer(env["PATH"]))
	mergeInto(env, opts.Overrides)

	return env
}

// ResolveList returns the merged environment as "KEY=VALUE" entries
// suitable for exec.Cmd.Env, sorted for stable output.
func (r *implResolver) ResolveList(opts Options) []string {
	env := r.Resolve(opts)

	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	sort.Strings(list)

	return list
}

func (r *implResolver) dotenvLayer() map[string]string {
	// Malformed or missing .env contributes an empty layer, not an error.
	layer, err := godotenv.Read(filepath.Join(r.projectRoot, ".env"))
	if err != nil {
		return nil
	}
	return layer
}

func (r *implResolver) settingsLayer() map[string]string {
	layer := make(map[string]string)

	cfg := r.store.Config()
	if cfg.Provider.APIKey != "" {
		if varName, ok := credentialVars[cfg.Provider.Name]; ok {
			layer[varName] = cfg.Provider.APIKey
		}
	}
	if cfg.Provider.Proxy != "" {
		layer["HTTPS_PROXY"] = cfg.Provider.Proxy
	}

	return layer
}

func (r *implResolver) computedLayer(currentPath string) map[string]string {
	layer := map[string]string{
		// The extractor buffers stdout when it is not a tty; force
		// line-delivery so progress events arrive as they happen.
		"PYTHONUNBUFFERED": "1",
		"COMPREHEND_HOST":  "1",
	}

	cfg := r.store.Config()
	if len(cfg.Paths.ExtraBins) > 0 {
		parts := append([]string{}, cfg.Paths.ExtraBins...)
		if currentPath != "" {
			parts = append(parts, currentPath)
		}
		layer["PATH"] = strings.Join(parts, string(filepath.ListSeparator))
	}

	return layer
}

// Merge flattens layers into one map, later layers winning key collisions.
// Keys a layer does not define are simply absent; nothing is ever written
// for an undefined value.
func Merge(layers ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, layer := range layers {
		mergeInto(merged, layer)
	}
	return merged
}

func mergeInto(dst map[string]string, layer map[string]string) {
	for k, v := range layer {
		dst[k] = v
	}
}
