// Package config loads analyzer settings and resolves the files they name.
package config

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"jpmorph/sentence"
)

// Config is the on-disk analyzer configuration. JSON files are accepted as
// well since JSON is valid YAML.
type Config struct {
	SystemDict              string   `yaml:"systemDict" json:"systemDict"`
	UserDict                []string `yaml:"userDict" json:"userDict"`
	CharacterDefinitionFile string   `yaml:"characterDefinitionFile" json:"characterDefinitionFile"`
	SentenceLimit           int      `yaml:"sentenceLimit" json:"sentenceLimit"`
	CacheSize               int      `yaml:"cacheSize" json:"cacheSize"`
	LogLevel                string   `yaml:"logLevel" json:"logLevel"`
	LogFormat               string   `yaml:"logFormat" json:"logFormat"`

	// Dir is the directory of the loaded file, "" for defaults.
	Dir string `yaml:"-" json:"-"`
}

// ConfigError reports a bad or missing setting. Field is the YAML key, Path
// the file involved if any.
type ConfigError struct {
	Field string
	Path  string
	Err   error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("config")
	if e.Field != "" {
		fmt.Fprintf(&b, " %s", e.Field)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		SentenceLimit: sentence.DefaultLimit,
		CacheSize:     1024,
		LogLevel:      "info",
		LogFormat:     "console",
	}
}

// Load reads the file at path over the defaults. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &ConfigError{Path: path, Err: err}
	}
	c, err := Parse(bytes.NewReader(data))
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) {
			ce.Path = path
			return Config{}, ce
		}
		return Config{}, &ConfigError{Path: path, Err: err}
	}
	c.Dir = filepath.Dir(path)
	return c, nil
}

// Parse decodes a configuration over the defaults. Unknown keys are errors.
func Parse(r io.Reader) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return Config{}, &ConfigError{Err: errors.Wrap(err, "decode")}
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.SentenceLimit <= 0 {
		return &ConfigError{Field: "sentenceLimit", Err: fmt.Errorf("must be positive, got %d", c.SentenceLimit)}
	}
	if c.CacheSize < 0 {
		return &ConfigError{Field: "cacheSize", Err: fmt.Errorf("must not be negative, got %d", c.CacheSize)}
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return &ConfigError{Field: "logFormat", Err: fmt.Errorf("want console or json, got %q", c.LogFormat)}
	}
	return nil
}

// Resolve returns a copy whose file settings are absolute or
// working-directory relative paths of existing files. A relative path is
// looked up in resourceDir first, then in the directory of the config file.
func (c Config) Resolve(resourceDir string) (Config, error) {
	out := c
	var err error
	if c.SystemDict == "" {
		return out, &ConfigError{Field: "systemDict", Err: errors.New("no system dictionary configured")}
	}
	if out.SystemDict, err = c.find("systemDict", c.SystemDict, resourceDir); err != nil {
		return out, err
	}
	out.UserDict = nil
	for _, u := range c.UserDict {
		p, err := c.find("userDict", u, resourceDir)
		if err != nil {
			return out, err
		}
		out.UserDict = append(out.UserDict, p)
	}
	if c.CharacterDefinitionFile != "" {
		if out.CharacterDefinitionFile, err = c.find("characterDefinitionFile", c.CharacterDefinitionFile, resourceDir); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (c Config) find(field, name, resourceDir string) (string, error) {
	candidates := []string{name}
	if !filepath.IsAbs(name) {
		candidates = candidates[:0]
		if resourceDir != "" {
			candidates = append(candidates, filepath.Join(resourceDir, name))
		}
		if c.Dir != "" {
			candidates = append(candidates, filepath.Join(c.Dir, name))
		}
		if len(candidates) == 0 {
			candidates = append(candidates, name)
		}
	}
	for _, p := range candidates {
		fi, err := os.Stat(p)
		if err == nil && !fi.IsDir() {
			return p, nil
		}
	}
	return "", &ConfigError{Field: field, Path: name, Err: fs.ErrNotExist}
}
