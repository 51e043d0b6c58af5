// Package search implements schema-agnostic queries over tree.Node documents.
//
// Three primitives are provided:
//
//   - PathLookup follows a path of keys and indices, falling back to any
//     descendant that can complete the remaining path.
//   - KeySearch finds the first value bound to a key anywhere in the tree.
//   - SubstringSearch finds the first string containing a needle.
//
// All traversals are depth first in document order. Whether an empty value
// counts as "found" is decided by the engine's Policy.
package search
