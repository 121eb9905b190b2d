package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Dot-notation access to config fields, used by the `config get|set|list`
// subcommands. The config is round-tripped through its JSON form so the
// paths match the field names users see in config.json.

func toTree(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// GetByPath retrieves a config value by path, e.g. "provider.model" or
// "security.blocked.0".
func GetByPath(cfg *Config, path string) (any, error) {
	tree, err := toTree(cfg)
	if err != nil {
		return nil, err
	}

	var node any = tree
	for _, key := range strings.Split(path, ".") {
		switch v := node.(type) {
		case map[string]any:
			child, ok := v[key]
			if !ok {
				return nil, fmt.Errorf("no such config key: %s", path)
			}
			node = child
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("bad list index %q in %s", key, path)
			}
			node = v[idx]
		default:
			return nil, fmt.Errorf("%s: %q is not a section", path, key)
		}
	}
	return node, nil
}

// SetByPath sets a config value by path and re-validates the result, so a
// `config set` can never persist an invalid configuration.
func SetByPath(cfg *Config, path string, value any) error {
	tree, err := toTree(cfg)
	if err != nil {
		return err
	}

	keys := strings.Split(path, ".")
	if len(keys) == 0 || keys[0] == "" {
		return fmt.Errorf("empty config path")
	}

	node := tree
	for _, key := range keys[:len(keys)-1] {
		child, ok := node[key]
		if !ok {
			next := map[string]any{}
			node[key] = next
			node = next
			continue
		}
		section, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: %q is not a section", path, key)
		}
		node = section
	}
	node[keys[len(keys)-1]] = coerce(value)

	data, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	updated := *cfg
	if err := json.Unmarshal(data, &updated); err != nil {
		return fmt.Errorf("%s does not accept that value: %w", path, err)
	}
	if err := Validate(&updated); err != nil {
		return err
	}
	*cfg = updated
	return nil
}

// coerce turns CLI string arguments into the JSON type they look like.
func coerce(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// ListPaths returns every leaf config path with its current value.
func ListPaths(cfg *Config) map[string]any {
	tree, err := toTree(cfg)
	if err != nil {
		return nil
	}
	leaves := make(map[string]any)
	collectLeaves("", tree, leaves)
	return leaves
}

func collectLeaves(prefix string, tree map[string]any, out map[string]any) {
	for key, v := range tree {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if section, ok := v.(map[string]any); ok {
			collectLeaves(path, section, out)
			continue
		}
		out[path] = v
	}
}
