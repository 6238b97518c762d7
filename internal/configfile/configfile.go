// Package configfile decodes YAML and TOML files into Go values, picking the format from the
// file extension.
package configfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Decode reads the file at path and decodes it into v. Files ending in .toml are decoded as TOML,
// .yaml and .yml files as YAML. Unknown fields are rejected in both formats.
func Decode(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err = dec.Decode(v); err != nil {
			return fmt.Errorf("failed to decode TOML %s: %w", path, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err = dec.Decode(v); err != nil {
			return fmt.Errorf("failed to decode YAML %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported file extension %q for %s, want .yaml, .yml or .toml", ext, path)
	}

	return nil
}

// Duration is a time.Duration written as a Go duration string ("30s", "5m") in config files.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
