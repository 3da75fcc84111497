package fileutils

// Derived Hierarchy operations. Everything here is pure path math over the
// Parent/Child primitives; no backend I/O is performed.

// Ancestors returns all ancestors of n, nearest first. With includeSelf,
// n itself comes first. A root has no ancestors.
func Ancestors(n Hierarchy, includeSelf bool) []Node {
	var results []Node
	var current Node
	if includeSelf {
		current = n
	} else {
		current = n.Parent()
	}
	for current != nil {
		results = append(results, current)
		h, ok := current.(Hierarchy)
		if !ok {
			break
		}
		current = h.Parent()
	}
	return results
}

// AncestorOf reports whether n is an ancestor of other: other's parent, or
// its parent's parent, and so on. With includeSelf, a node is considered
// an ancestor of itself.
func AncestorOf(n Node, other Hierarchy, includeSelf bool) bool {
	for _, ancestor := range Ancestors(other, includeSelf) {
		if SameNode(n, ancestor) {
			return true
		}
	}
	return false
}

// DescendantOf reports whether n is a descendant of other. This is
// AncestorOf with the arguments flipped.
func DescendantOf(n Hierarchy, other Node, includeSelf bool) bool {
	return AncestorOf(other, n, includeSelf)
}

// Sibling returns the node with the given name under n's parent. Fails for
// roots, which have no parent.
func Sibling(n Hierarchy, name string) (Node, error) {
	parent := n.Parent()
	if parent == nil {
		return nil, &PathError{Op: "sibling", Path: n.Path().String(), Err: ErrNotAllowed}
	}
	h, ok := parent.(Hierarchy)
	if !ok {
		return nil, &PathError{Op: "sibling", Path: n.Path().String(), Err: ErrNotSupported}
	}
	return h.Child(name)
}

// SafeChild joins the given names below n exactly like Child, but fails
// with ErrTraversal unless the result stays inside n's subtree. This makes
// untrusted path segments safe to join: ".." occurrences are fine as long
// as they do not escape n ("a/b/../c" passes, "a/../.." does not).
func SafeChild(n Hierarchy, names ...string) (Node, error) {
	target := n.Path().Child(names...)
	if !n.Path().IsAncestorOf(target) {
		return nil, &PathError{Op: "safe_child", Path: target.String(), Err: ErrTraversal}
	}
	rel, err := target.RelativeTo(n.Path())
	if err != nil {
		return nil, err
	}
	current := Node(n)
	for _, name := range rel {
		h, ok := current.(Hierarchy)
		if !ok {
			return nil, &PathError{Op: "safe_child", Path: current.Path().String(), Err: ErrNotSupported}
		}
		child, err := h.Child(name)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}
