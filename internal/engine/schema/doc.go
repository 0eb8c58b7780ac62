// Package schema provides the concrete model.Schema used by livedoc.
//
// A schema is a set of named item definitions. Each definition says where the
// item may appear (AllowIn, AllowWhere), what it may contain (AllowChildren,
// AllowContentOf), which attributes it may carry and how it behaves as a
// block, inline, object or limit. Generic items ($root, $block, $text, ...)
// are registered by New; concrete items usually inherit from them:
//
//	s := schema.New()
//	s.Register("paragraph", schema.ItemDefinition{InheritAllFrom: schema.BlockName})
//
// Definitions can also be loaded from TOML or YAML files with LoadFile.
package schema
