// Package tree holds the decoded form of the JSON documents embedded in
// YouTube pages.
//
// The documents have no published schema, so the package makes no attempt to
// map them onto Go structs. A Node is a tagged union over the six JSON kinds
// and remembers the order of object keys, which the search package relies on
// to make "first match" well defined.
package tree
