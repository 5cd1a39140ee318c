package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProviderKind names one of the supported providers.
type ProviderKind string

const (
	OpenAI    ProviderKind = "OpenAI"
	Anthropic ProviderKind = "Anthropic"
	Azure     ProviderKind = "Azure"
)

// Valid reports whether k is one of the supported providers. Matching is
// case sensitive.
func (k ProviderKind) Valid() bool {
	switch k {
	case OpenAI, Anthropic, Azure:
		return true
	}
	return false
}

// Provider is the provider section of the configuration file. Credentials
// never live here; each provider reads them from its environment variables.
type Provider struct {
	Type ProviderKind `yaml:"type"`
}

// Settings is the process configuration.
//
//	debug: false
//	provider:
//	  type: OpenAI
//	model: gpt-4o
type Settings struct {
	Debug    bool     `yaml:"debug"`
	Provider Provider `yaml:"provider"`
	Model    string   `yaml:"model"`
}

// candidates are tried in order by Load.
var candidates = []string{"config.yaml", "config.yml", "config.json"}

// Load reads the conventional config file from the working directory.
func Load() (*Settings, error) {
	return LoadFrom(".")
}

// LoadFrom reads the first of config.yaml, config.yml or config.json found
// in dir.
func LoadFrom(dir string) (*Settings, error) {
	for _, name := range candidates {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, &ConfigurationError{Path: path, Err: err}
		}
		return LoadFile(path)
	}
	return nil, &ConfigurationError{
		Path: filepath.Join(dir, "config"),
		Err:  fmt.Errorf("no configuration file found (tried %s)", strings.Join(candidates, ", ")),
	}
}

// LoadFile reads an explicit YAML or JSON file.
func LoadFile(path string) (*Settings, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
	default:
		return nil, &ConfigurationError{Path: path, Err: fmt.Errorf("unsupported format %q", ext)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Path: path, Err: err}
	}
	s, err := Decode(bytes.NewReader(data))
	if err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			cfgErr.Path = path
		}
		return nil, err
	}
	return s, nil
}

// rawSettings detects missing keys, which the zero values of Settings cannot.
type rawSettings struct {
	Debug    *boolField `yaml:"debug"`
	Provider *struct {
		Type *ProviderKind `yaml:"type"`
	} `yaml:"provider"`
	Model *stringField `yaml:"model"`
}

// boolField and stringField accept only scalars whose resolved tag matches,
// so "yes" stays a string and 42 stays an int.
type (
	boolField   bool
	stringField string
)

func (f *boolField) UnmarshalYAML(node *yaml.Node) error {
	var v bool
	if err := decodeScalar(node, "debug", "!!bool", &v); err != nil {
		return err
	}
	*f = boolField(v)
	return nil
}

func (f *stringField) UnmarshalYAML(node *yaml.Node) error {
	var v string
	if err := decodeScalar(node, "model", "!!str", &v); err != nil {
		return err
	}
	*f = stringField(v)
	return nil
}

func decodeScalar(node *yaml.Node, field, tag string, out any) error {
	if node.Kind != yaml.ScalarNode || node.ShortTag() != tag {
		return &ConfigurationError{
			Field: field,
			Err: fmt.Errorf("want %s, got %q (%s)",
				strings.TrimPrefix(tag, "!!"), node.Value, strings.TrimPrefix(node.ShortTag(), "!!")),
		}
	}
	return node.Decode(out)
}

// Decode parses one YAML (or JSON) document. Unknown keys are rejected.
func Decode(r io.Reader) (*Settings, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var raw rawSettings
	if err := decoder.Decode(&raw); err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, cfgErr
		}
		if errors.Is(err, io.EOF) {
			err = errors.New("empty document")
		}
		return nil, &ConfigurationError{Err: err}
	}

	switch {
	case raw.Debug == nil:
		return nil, &ConfigurationError{Field: "debug", Err: errMissing}
	case raw.Provider == nil:
		return nil, &ConfigurationError{Field: "provider", Err: errMissing}
	case raw.Provider.Type == nil:
		return nil, &ConfigurationError{Field: "provider.type", Err: errMissing}
	case raw.Model == nil:
		return nil, &ConfigurationError{Field: "model", Err: errMissing}
	}

	s := &Settings{
		Debug:    bool(*raw.Debug),
		Provider: Provider{Type: *raw.Provider.Type},
		Model:    string(*raw.Model),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks a record built in code.
func (s *Settings) Validate() error {
	if !s.Provider.Type.Valid() {
		return &ConfigurationError{
			Field: "provider.type",
			Err:   fmt.Errorf("unknown provider %q (want %s, %s or %s)", s.Provider.Type, OpenAI, Anthropic, Azure),
		}
	}
	if strings.TrimSpace(s.Model) == "" {
		return &ConfigurationError{Field: "model", Err: errors.New("must not be empty")}
	}
	return nil
}

// Marshal renders s as YAML that Decode reads back unchanged.
func (s *Settings) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(s); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes s to path as YAML.
func (s *Settings) Save(path string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := s.Marshal()
	if err != nil {
		return &ConfigurationError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return &ConfigurationError{Path: path, Err: err}
	}
	return nil
}

func (s *Settings) String() string {
	return fmt.Sprintf("Settings{debug: %t, provider: %s, model: %q}", s.Debug, s.Provider.Type, s.Model)
}
