// Package config handles saffire.toml (or saffire.yaml) configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileNames are the configuration file names searched by FindAndLoad, in
// order of preference.
var FileNames = []string{"saffire.toml", "saffire.yaml", "saffire.yml"}

// Config represents a saffire configuration file.
type Config struct {
	GPG      GPG      `toml:"gpg" yaml:"gpg"`
	Bytecode Bytecode `toml:"bytecode" yaml:"bytecode"`
	Log      Log      `toml:"log" yaml:"log"`

	// Dir is the directory containing the configuration file (set at load
	// time). Relative keyring paths are resolved against it.
	Dir string `toml:"-" yaml:"-"`

	raw map[string]any
}

// GPG configures bytecode signing.
type GPG struct {
	Key           string `toml:"key" yaml:"key"`
	SecretKeyring string `toml:"secret-keyring" yaml:"secret-keyring"`
	PublicKeyring string `toml:"public-keyring" yaml:"public-keyring"`
}

// Bytecode configures the container format.
type Bytecode struct {
	Compression      string `toml:"compression" yaml:"compression"`
	Extension        string `toml:"extension" yaml:"extension"`
	SourceExtension  string `toml:"source-extension" yaml:"source-extension"`
	VerifySignature  bool   `toml:"verify-signature" yaml:"verify-signature"`
	RequireSignature bool   `toml:"require-signature" yaml:"require-signature"`
}

// Log configures diagnostics output.
type Log struct {
	Verbosity int    `toml:"verbosity" yaml:"verbosity"`
	Path      string `toml:"path" yaml:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Bytecode: Bytecode{
			Compression:     "zstd",
			Extension:       ".sfc",
			SourceExtension: ".sf",
		},
	}
}

// Load parses a configuration file. The format is chosen by extension:
// .yaml and .yml are YAML, everything else is TOML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	raw := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	default:
		if err := toml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	}

	// Defaults
	if err := mergo.Merge(&c, Default()); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	c.Bytecode.Extension = dotted(c.Bytecode.Extension)
	c.Bytecode.SourceExtension = dotted(c.Bytecode.SourceExtension)

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	c.raw = raw
	return &c, nil
}

func dotted(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}

// FindAndLoad walks up from startDir to find a configuration file, then
// loads and returns it. Returns nil if no configuration is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return Load(path)
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Get resolves a dotted name such as "gpg.key" against the decoded file.
// Values set only by defaults are reported as well.
func (c *Config) Get(name string) (string, bool) {
	if v, ok := lookup(c.raw, strings.Split(name, ".")); ok {
		return v, true
	}
	switch name {
	case "gpg.key":
		return c.GPG.Key, c.GPG.Key != ""
	case "bytecode.compression":
		return c.Bytecode.Compression, c.Bytecode.Compression != ""
	case "bytecode.extension":
		return c.Bytecode.Extension, c.Bytecode.Extension != ""
	case "bytecode.source-extension":
		return c.Bytecode.SourceExtension, c.Bytecode.SourceExtension != ""
	}
	return "", false
}

func lookup(m map[string]any, parts []string) (string, bool) {
	if m == nil || len(parts) == 0 {
		return "", false
	}
	v, ok := m[parts[0]]
	if !ok {
		return "", false
	}
	if len(parts) == 1 {
		switch v := v.(type) {
		case map[string]any, []any:
			return "", false
		case string:
			return v, true
		default:
			return fmt.Sprint(v), true
		}
	}
	next, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	return lookup(next, parts[1:])
}

// ResolvePath makes p absolute relative to the configuration directory.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return filepath.Join(c.Dir, p)
}
