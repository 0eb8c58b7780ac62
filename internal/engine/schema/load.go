package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// File is the on-disk form of schema definitions:
//
//	[items.paragraph]
//	inherit_all_from = "$block"
//
//	[items."$text"]
//	allow_attributes = ["bold", "italic"]
//
//	[attributes.bold]
//	isFormatting = true
//	copyOnEnter = true
type File struct {
	Items      map[string]ItemDefinition `toml:"items" yaml:"items"`
	Attributes map[string]map[string]any `toml:"attributes" yaml:"attributes"`
}

// LoadFile reads a TOML or YAML definition file into s. The format is
// chosen by extension.
func (s *Schema) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading schema file %s: %w", path, err)
	}
	return s.load(path, filepath.Ext(path), data)
}

// Load parses definitions in the given format ("toml", "yaml" or "yml")
// into s.
func (s *Schema) Load(data []byte, format string) error {
	return s.load("<data>", format, data)
}

func (s *Schema) load(source, format string, data []byte) error {
	var f File
	var err error
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "toml":
		err = toml.Unmarshal(data, &f)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &f)
	default:
		return fmt.Errorf("%s: %w: %q", source, ErrUnknownFormat, format)
	}
	if err != nil {
		return &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	return s.Apply(f)
}

// Apply registers the items of f, or extends them when already registered.
// Items are applied in name order so the result does not depend on map order.
func (s *Schema) Apply(f File) error {
	names := make([]string, 0, len(f.Items))
	for name := range f.Items {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		def := f.Items[name]
		var err error
		if s.IsRegistered(name) {
			err = s.Extend(name, def)
		} else {
			err = s.Register(name, def)
		}
		if err != nil {
			return err
		}
	}
	for key, props := range f.Attributes {
		s.SetAttributeProperties(key, props)
	}
	return nil
}
