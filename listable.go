package fileutils

import (
	"context"
	"iter"
	"strings"

	"github.com/gobwas/glob"
)

// Children returns a lazy sequence of the node's children, in the order
// reported by ChildNames. Producing one node at a time bounds memory on
// large folders; use Collect when a slice is wanted.
func Children(ctx context.Context, n Listable) iter.Seq2[Node, error] {
	return func(yield func(Node, error) bool) {
		names, err := n.ChildNames(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, name := range names {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			child, err := n.Child(name)
			if !yield(child, err) {
				return
			}
		}
	}
}

// Recurse returns a lazy depth-first sequence of the node and all of its
// descendants. A nil filter yields everything; otherwise nodes are yielded
// when filter.Match reports true and folders are descended into when
// filter.TraverseDescendants reports true. The sequence is finite unless
// the underlying hierarchy contains a cycle, which is not checked here.
func Recurse(ctx context.Context, n Listable, filter Filter) iter.Seq2[Node, error] {
	if filter == nil {
		filter = All()
	}
	return func(yield func(Node, error) bool) {
		recurseInto(ctx, n, filter, yield)
	}
}

func recurseInto(ctx context.Context, n Listable, filter Filter, yield func(Node, error) bool) bool {
	if err := ctx.Err(); err != nil {
		return yield(nil, err)
	}
	if filter.Match(n) {
		if !yield(n, nil) {
			return false
		}
	}
	r, ok := n.(Readable)
	if !ok {
		return true
	}
	folder, err := IsFolder(ctx, r)
	if err != nil {
		return yield(nil, err)
	}
	if !folder || !filter.TraverseDescendants(n) {
		return true
	}
	for child, err := range Children(ctx, n) {
		if err != nil {
			return yield(nil, err)
		}
		cl, ok := child.(Listable)
		if !ok {
			if filter.Match(child) && !yield(child, nil) {
				return false
			}
			continue
		}
		if !recurseInto(ctx, cl, filter, yield) {
			return false
		}
	}
	return true
}

// Glob returns a lazy sequence of the nodes under n matching the given
// slash-separated pattern. Each pattern segment is matched against child
// names one path component at a time, with gobwas/glob syntax ("*.txt",
// "data-[0-9]", ...). A segment never matches across a separator.
func Glob(ctx context.Context, n Listable, pattern string) (iter.Seq2[Node, error], error) {
	var segs []string
	for _, seg := range strings.Split(pattern, "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	if len(segs) == 0 {
		return nil, &PathError{Op: "glob", Path: n.Path().String(), Err: ErrNotAllowed}
	}
	matchers := make([]glob.Glob, len(segs))
	for i, seg := range segs {
		g, err := glob.Compile(seg)
		if err != nil {
			return nil, &PathError{Op: "glob", Path: n.Path().String(), Err: err}
		}
		matchers[i] = g
	}
	return func(yield func(Node, error) bool) {
		globLevel(ctx, n, matchers, yield)
	}, nil
}

func globLevel(ctx context.Context, n Listable, matchers []glob.Glob, yield func(Node, error) bool) bool {
	for child, err := range Children(ctx, n) {
		if err != nil {
			return yield(nil, err)
		}
		if !matchers[0].Match(child.Name()) {
			continue
		}
		if len(matchers) == 1 {
			if !yield(child, nil) {
				return false
			}
			continue
		}
		cl, ok := child.(Listable)
		if !ok {
			continue
		}
		cr, ok := child.(Readable)
		if !ok {
			continue
		}
		folder, err := IsFolder(ctx, cr)
		if err != nil {
			return yield(nil, err)
		}
		if !folder {
			continue
		}
		if !globLevel(ctx, cl, matchers[1:], yield) {
			return false
		}
	}
	return true
}

// Collect drains a node sequence into a slice, stopping at the first
// error.
func Collect(seq iter.Seq2[Node, error]) ([]Node, error) {
	var out []Node
	for n, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, n)
	}
	return out, nil
}
