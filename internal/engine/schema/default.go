package schema

import _ "embed"

//go:embed default.toml
var defaultDefinitions []byte

// NewDefault creates a schema with the generic items plus paragraphs,
// headings, block quotes, list items, images, soft breaks, tables with cells and the
// basic text formatting attributes.
func NewDefault() *Schema {
	s := New()
	if err := s.Load(defaultDefinitions, "toml"); err != nil {
		panic("schema: invalid default definitions: " + err.Error())
	}
	return s
}
