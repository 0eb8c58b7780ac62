// Package script runs Lua editing scripts against a model.
//
// Scripts run in a sandboxed gopher-lua state: only the base, package,
// table, string and math libraries are open, and nothing can load code from
// disk. The model is exposed through the global doc table, which is also
// what require("livedoc") returns:
//
//	doc.set_data("<paragraph>f[]oo</paragraph>")
//	doc.modify({unit = "word"})
//	doc.set_attribute("bold", true)
//	doc.type("!")
//	print(doc.data())
//
// Paths are zero-based offset lists like model paths, so {0, 1} is after
// the first character of the first block. Errors raised by the model are
// returned from Run wrapped, so errors.Is sees them.
//
// Each Run is bounded by a timeout and by a limit on doc calls. Listeners
// registered with doc.on_change live until the State is closed.
package script
