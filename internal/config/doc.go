// Package config loads livedoc settings.
//
// Settings come from three layers, later ones winning:
//
//  1. Built-in defaults
//  2. A configuration file (TOML, YAML or JSON, chosen by extension)
//  3. LIVEDOC_ environment variables
//
// Example file:
//
//	[log]
//	level = "debug"
//
//	[schema]
//	path = "schema.toml"
//
//	[editing]
//	word_boundaries = " ,.?!:;\"-()"
//	default_unit = "word"
//	history_size = 500
//
//	[script]
//	call_limit = 10000
//	timeout = "2s"
//
// Environment variables map onto settings as LIVEDOC_<SECTION>_<KEY>, so
// LIVEDOC_EDITING_DEFAULT_UNIT sets editing.default_unit. LIVEDOC_SCHEMA
// and LIVEDOC_WORD_BOUNDARIES are shorthands for schema.path and
// editing.word_boundaries.
//
// Typed sections are read through Log, Schema, Editing and Script. Values of
// the wrong type fall back to their defaults and are reported by Errors.
package config
