package configparser

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrNoFilePath = errors.New("no file path provided")

// ${VAR:-default}
var substitution = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*):-(.*)\}$`)

// LoadYamlFile reads a YAML file and exports every scalar leaf as an
// environment variable named after its path (database.host -> DATABASE_HOST).
// Variables that are already set are left untouched.
func LoadYamlFile(filepath string) error {
	if filepath == "" {
		return ErrNoFilePath
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("could not open YAML file: %w", err)
	}

	vars, err := Flatten(data)
	if err != nil {
		return err
	}

	for key, value := range vars {
		if os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("could not set env var %s: %w", key, err)
		}
	}
	return nil
}

// Flatten decodes YAML and returns its scalar leaves keyed by upper-cased,
// underscore joined paths. Sequences are joined with commas.
func Flatten(data []byte) (map[string]string, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("error reading YAML file: %w", err)
	}

	out := make(map[string]string)
	flatten(out, nil, root)
	return out, nil
}

func flatten(out map[string]string, prefix []string, node any) {
	switch v := node.(type) {
	case map[string]any:
		for key, child := range v {
			flatten(out, append(prefix[:len(prefix):len(prefix)], key), child)
		}
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, expand(fmt.Sprint(item)))
		}
		out[envKey(prefix)] = strings.Join(items, ",")
	case nil:
		// "key:" with no value does not describe a variable
	default:
		out[envKey(prefix)] = expand(fmt.Sprint(v))
	}
}

func envKey(path []string) string {
	key := strings.Join(path, "_")
	key = strings.ReplaceAll(key, "-", "_")
	return strings.ToUpper(key)
}

func expand(value string) string {
	m := substitution.FindStringSubmatch(value)
	if m == nil {
		return value
	}
	if env := os.Getenv(m[1]); env != "" {
		return env
	}
	return m[2]
}
