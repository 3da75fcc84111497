package fileutils

import "github.com/gobwas/glob"

// Filter decides which nodes a Recurse traversal yields and which folders
// it descends into.
//
// Filters are composable with And, Or, and Not:
//
//	backups := fileutils.And(fileutils.Named("*.bak"), fileutils.Not(fileutils.Named(".*")))
//	for n, err := range fileutils.Recurse(ctx, folder, backups) {
//	    ...
//	}
type Filter interface {
	// Match returns true if the node should be yielded.
	Match(n Node) bool

	// TraverseDescendants returns true if the folder's descendants should
	// be traversed. Returning false prunes the whole subtree, enabling
	// early termination on deep trees. Only consulted for folders.
	TraverseDescendants(n Node) bool
}

// FuncFilter adapts a plain predicate into a Filter that always traverses.
type FuncFilter func(n Node) bool

func (f FuncFilter) Match(n Node) bool               { return f(n) }
func (f FuncFilter) TraverseDescendants(n Node) bool { return true }

// All returns a Filter matching every node.
func All() Filter {
	return FuncFilter(func(Node) bool { return true })
}

// Named returns a Filter matching nodes whose name matches the given glob
// pattern. Traversal is not restricted, so "*.txt" finds matches at any
// depth.
func Named(pattern string) Filter {
	g, err := glob.Compile(pattern)
	if err != nil {
		// An invalid pattern matches nothing.
		return FuncFilter(func(Node) bool { return false })
	}
	return FuncFilter(func(n Node) bool { return g.Match(n.Name()) })
}

// And returns a Filter matching nodes that match all given filters. A
// subtree is traversed only if every filter agrees.
func And(filters ...Filter) Filter { return andFilter(filters) }

type andFilter []Filter

func (f andFilter) Match(n Node) bool {
	for _, sub := range f {
		if !sub.Match(n) {
			return false
		}
	}
	return true
}

func (f andFilter) TraverseDescendants(n Node) bool {
	for _, sub := range f {
		if !sub.TraverseDescendants(n) {
			return false
		}
	}
	return true
}

// Or returns a Filter matching nodes that match any of the given filters.
// A subtree is traversed if any filter wants it.
func Or(filters ...Filter) Filter { return orFilter(filters) }

type orFilter []Filter

func (f orFilter) Match(n Node) bool {
	for _, sub := range f {
		if sub.Match(n) {
			return true
		}
	}
	return false
}

func (f orFilter) TraverseDescendants(n Node) bool {
	for _, sub := range f {
		if sub.TraverseDescendants(n) {
			return true
		}
	}
	return len(f) == 0
}

// Not inverts a filter's Match. Traversal is left unrestricted so matches
// below non-matching folders are still found.
func Not(filter Filter) Filter {
	return FuncFilter(func(n Node) bool { return !filter.Match(n) })
}
