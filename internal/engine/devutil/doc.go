// Package devutil reads and writes model content in a compact string
// notation, mostly for tests and scripts:
//
//	<paragraph>f[o]o</paragraph>
//	<heading1><$text bold="true">x</$text>[]</heading1>
//
// "[" and "]" mark selection boundaries; "[]" is a collapsed selection.
package devutil
