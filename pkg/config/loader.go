package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	neterrors "github.com/alexisbeaulieu97/netlib/pkg/errors"
	"github.com/alexisbeaulieu97/netlib/pkg/validators"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// Load reads the file at path based on its extension (.yaml, .yml, .toml,
// .json), applies it on top of Default, and validates the result. Unknown
// keys are rejected.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, neterrors.NewValidationError("path", "config path is required", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, neterrors.NewParseError(path, 0, err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = decodeYAML(path, data, &cfg)
	case ".toml":
		err = decodeTOML(path, data, &cfg)
	case ".json":
		err = decodeJSON(path, data, &cfg)
	default:
		return nil, neterrors.NewValidationError("path", fmt.Sprintf("unsupported config extension %q", ext), nil)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault returns Default when path is empty and Load otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		return &cfg, nil
	}
	return Load(path)
}

// Validate checks every section against its struct tags.
func (c *Config) Validate() error {
	if c == nil {
		return neterrors.NewValidationError("config", "configuration is nil", nil)
	}
	return validators.Struct(c)
}

func decodeYAML(path string, data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return neterrors.NewParseError(path, extractLine(err), err)
	}
	return nil
}

func decodeTOML(path string, data []byte, cfg *Config) error {
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		line := 0
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			line, _ = decodeErr.Position()
		}
		return neterrors.NewParseError(path, line, err)
	}
	return nil
}

func decodeJSON(path string, data []byte, cfg *Config) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		line := 0
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			line = lineAt(data, syntaxErr.Offset)
		}
		return neterrors.NewParseError(path, line, err)
	}
	return nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	if _, scanErr := fmt.Sscanf(matches[1], "%d", &line); scanErr != nil {
		return 0
	}
	return line
}

func lineAt(data []byte, offset int64) int {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	return bytes.Count(data[:offset], []byte("\n")) + 1
}
