package tree

// Walk visits n and every node below it in pre-order: a container is visited
// before its children, object values in key order, array elements in index
// order. Walk stops as soon as fn returns false and reports whether the
// traversal ran to completion.
func Walk(n *Node, fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}

	switch n.kind {
	case KindObject:
		for _, f := range n.fields {
			if !Walk(f.Value, fn) {
				return false
			}
		}
	case KindArray:
		for _, item := range n.items {
			if !Walk(item, fn) {
				return false
			}
		}
	}
	return true
}
