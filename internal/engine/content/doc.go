// Package content implements the structural editing algorithms that run on
// top of the model: deleting a selection's content, inserting content at a
// selection and extending a selection by a character or a word.
//
// All three respect the schema. Deletion merges the elements it cut through,
// insertion splits, wraps or unwraps content until it fits, and selection
// modification never leaves a limit element.
package content
