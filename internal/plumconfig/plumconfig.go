// Package plumconfig loads a host's plum.yaml configuration, grounded on
// internal/ext/config.go's LoadConfig/ParseConfig/validate/setDefaults
// structure: read the file, unmarshal with gopkg.in/yaml.v3, validate, then
// fill in defaults.
package plumconfig

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level plum.yaml configuration: namespaces a host wants
// pre-declared (so Abstract-style reservation happens at startup rather
// than at first registration) and the autoreload/cache behavior.
type Config struct {
	// Namespaces lists Dispatcher namespaces to create at startup.
	Namespaces []NamespaceConfig `yaml:"namespaces"`

	// Autoreload is the host's toggle for clearing every Function's
	// call-time cache when a watched module reloads; this package only
	// parses it, and nothing else in the module acts on it. Defaults to
	// false; PLUM_AUTORELOAD, when set to a value strconv.ParseBool accepts,
	// overrides it in either direction, matching how a host's development
	// mode commonly overrides a checked-in config.
	Autoreload bool `yaml:"autoreload,omitempty"`

	// RedefinitionWarnings is the host's toggle for logging when a method
	// redefines an existing signature within the same namespace (see
	// dispatcher.WarnOnRedefinition); this package only parses it.
	RedefinitionWarnings bool `yaml:"redefinition_warnings,omitempty"`
}

// NamespaceConfig declares one Dispatcher namespace.
type NamespaceConfig struct {
	Name string `yaml:"name"`
}

// AutoreloadEnvVar is checked by ResolveAutoreloadEnv, letting a development
// environment force cache-clearing-on-reload regardless of the checked-in
// plum.yaml value.
const AutoreloadEnvVar = "PLUM_AUTORELOAD"

// LoadConfig reads and parses path into a Config, applying defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plumconfig: reading %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses data as YAML into a Config, validates it, and fills in
// defaults.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("plumconfig: parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

func (c *Config) validate() error {
	seen := map[string]bool{}
	for _, ns := range c.Namespaces {
		if ns.Name == "" {
			return fmt.Errorf("plumconfig: namespace entry missing required 'name'")
		}
		if seen[ns.Name] {
			return fmt.Errorf("plumconfig: duplicate namespace %q", ns.Name)
		}
		seen[ns.Name] = true
	}
	return nil
}

func (c *Config) setDefaults() {
	if envAutoreload, ok := ResolveAutoreloadEnv(); ok {
		c.Autoreload = envAutoreload
	}
}

// ResolveAutoreloadEnv reports whether PLUM_AUTORELOAD is set in the
// environment and, if so, its boolean value (accepting anything
// strconv.ParseBool understands). Unset or unparsable values report ok=false
// and leave the config's own value untouched.
func ResolveAutoreloadEnv() (value bool, ok bool) {
	raw, present := os.LookupEnv(AutoreloadEnvVar)
	if !present {
		return false, false
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return parsed, true
}

// NamespaceNames returns the configured namespace names in order.
func (c *Config) NamespaceNames() []string {
	names := make([]string, len(c.Namespaces))
	for i, ns := range c.Namespaces {
		names[i] = ns.Name
	}
	return names
}
