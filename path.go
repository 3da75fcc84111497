package fileutils

import "strings"

// Path is an immutable location of a node within a filesystem: an ordered
// sequence of components below a filesystem-scoped root marker. The root
// marker distinguishes hierarchies that live side by side on the same
// backend ("/" for a POSIX tree, a drive letter on volume-letter systems,
// scheme://host for URL-addressed backends).
//
// Path carries no I/O; it is pure value math. Two Paths are equal iff their
// root markers and component sequences are equal.
type Path struct {
	root  string
	parts []string
}

// NewPath builds a Path rooted at the given marker. Components containing
// separators, "." or ".." are resolved lexically as in Child.
func NewPath(root string, components ...string) Path {
	return Path{root: root}.Child(components...)
}

// ParsePath interprets s as a slash-separated absolute path under a "/"
// root marker. This is the form used by the local and memory backends.
func ParsePath(s string) Path {
	return NewPath("/", s)
}

// Root returns the filesystem-scoped root marker.
func (p Path) Root() string { return p.root }

// IsRoot reports whether p has no components, i.e. denotes a hierarchy root.
func (p Path) IsRoot() bool { return len(p.parts) == 0 }

// Components returns a copy of the ordered component sequence. The empty
// sequence denotes a root.
func (p Path) Components() []string {
	out := make([]string, len(p.parts))
	copy(out, p.parts)
	return out
}

// Name returns the final component, or the empty string for a root.
func (p Path) Name() string {
	if len(p.parts) == 0 {
		return ""
	}
	return p.parts[len(p.parts)-1]
}

// Child returns a new Path with the given names joined below p. Names are
// split on "/"; empty and "." segments are dropped and ".." pops the last
// component, clamping at the root the way path.Clean("/..") does. The
// receiver is never mutated.
func (p Path) Child(names ...string) Path {
	parts := make([]string, len(p.parts), len(p.parts)+len(names))
	copy(parts, p.parts)
	for _, name := range names {
		for _, seg := range strings.Split(name, "/") {
			switch seg {
			case "", ".":
			case "..":
				if len(parts) > 0 {
					parts = parts[:len(parts)-1]
				}
			default:
				parts = append(parts, seg)
			}
		}
	}
	return Path{root: p.root, parts: parts}
}

// Parent returns the Path one component up. The parent of a root is the
// root itself; callers that need "no parent" semantics should test IsRoot
// first (Node implementations return a nil parent for roots).
func (p Path) Parent() Path {
	if len(p.parts) == 0 {
		return p
	}
	return Path{root: p.root, parts: p.parts[:len(p.parts)-1]}
}

// Equal reports whether p and o denote the same location.
func (p Path) Equal(o Path) bool {
	if p.root != o.root || len(p.parts) != len(o.parts) {
		return false
	}
	for i := range p.parts {
		if p.parts[i] != o.parts[i] {
			return false
		}
	}
	return true
}

// IsAncestorOf reports whether p's component sequence is a strict prefix of
// o's within the same root. A path is never an ancestor of itself.
func (p Path) IsAncestorOf(o Path) bool {
	if p.root != o.root || len(p.parts) >= len(o.parts) {
		return false
	}
	for i := range p.parts {
		if p.parts[i] != o.parts[i] {
			return false
		}
	}
	return true
}

// RelativeTo returns the components of p below base. It fails if base is
// neither p itself nor an ancestor of p.
func (p Path) RelativeTo(base Path) ([]string, error) {
	if !base.Equal(p) && !base.IsAncestorOf(p) {
		return nil, &PathError{Op: "relative", Path: p.String(), Err: ErrNotAllowed}
	}
	out := make([]string, len(p.parts)-len(base.parts))
	copy(out, p.parts[len(base.parts):])
	return out, nil
}

// String renders the path with "/" separators below the root marker.
func (p Path) String() string {
	if len(p.parts) == 0 {
		return p.root
	}
	sep := "/"
	if strings.HasSuffix(p.root, "/") {
		sep = ""
	}
	return p.root + sep + strings.Join(p.parts, "/")
}
