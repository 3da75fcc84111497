package fileutils

import (
	"context"
	"errors"
	"testing"
)

func TestAncestors(t *testing.T) {
	fs := newMockFS()
	n := fs.node("/a/b/c")

	got := Ancestors(n, false)
	want := []string{"/a/b", "/a", "/"}
	if len(got) != len(want) {
		t.Fatalf("Ancestors returned %d nodes, want %d", len(got), len(want))
	}
	for i, a := range got {
		if a.Path().String() != want[i] {
			t.Errorf("ancestor[%d] = %s, want %s", i, a.Path(), want[i])
		}
	}

	withSelf := Ancestors(n, true)
	if len(withSelf) != 4 || withSelf[0].Path().String() != "/a/b/c" {
		t.Errorf("Ancestors includeSelf wrong: %v", withSelf)
	}

	if got := Ancestors(fs.node("/"), false); len(got) != 0 {
		t.Errorf("root should have no ancestors, got %d", len(got))
	}
}

func TestRootsHaveNilParent(t *testing.T) {
	ctx := context.Background()
	fs := newMockFS()

	roots, err := fs.Roots(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(roots) == 0 {
		t.Fatal("no roots")
	}
	for _, root := range roots {
		if p := root.(Hierarchy).Parent(); p != nil {
			t.Errorf("root %s has parent %s, want nil", root.Path(), p.Path())
		}
	}
	// The converse: a non-root always has a parent.
	if p := fs.node("/a").Parent(); p == nil {
		t.Error("non-root node has nil parent")
	}
}

func TestResolveRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := newMockFS()
	fs.addFolder("/a")
	fs.addFile("/a/b.txt", []byte("x"))

	for _, path := range []string{"/", "/a", "/a/b.txt", "/not/there"} {
		n := fs.node(path)
		resolved, err := fs.Resolve(ctx, n.Path())
		if err != nil {
			t.Fatalf("Resolve(%s) failed: %v", path, err)
		}
		if !SameNode(resolved, n) {
			t.Errorf("Resolve(%s) = %s on %p, not the same node", path, resolved.Path(), resolved.FS())
		}
	}
}

func TestAncestorOf(t *testing.T) {
	fs := newMockFS()
	root := fs.node("/")
	deep := fs.node("/a/b/c")

	if !AncestorOf(root, deep, false) {
		t.Error("root should be ancestor of /a/b/c")
	}
	if AncestorOf(deep, deep, false) {
		t.Error("node must not be its own ancestor without includeSelf")
	}
	if !AncestorOf(deep, deep, true) {
		t.Error("node should be its own ancestor with includeSelf")
	}
	if !DescendantOf(deep, root, false) {
		t.Error("DescendantOf should mirror AncestorOf")
	}

	// Same path on a different filesystem instance is a different node.
	other := newMockFS()
	if AncestorOf(other.node("/"), deep, false) {
		t.Error("ancestry must not cross filesystem instances")
	}
}

func TestSibling(t *testing.T) {
	fs := newMockFS()

	s, err := Sibling(fs.node("/a/b"), "c")
	if err != nil {
		t.Fatalf("Sibling failed: %v", err)
	}
	if s.Path().String() != "/a/c" {
		t.Errorf("Sibling = %s", s.Path())
	}

	if _, err := Sibling(fs.node("/"), "c"); err == nil {
		t.Error("Sibling of root should fail")
	}
}

func TestSafeChild(t *testing.T) {
	fs := newMockFS()
	base := fs.node("/srv/data")

	n, err := SafeChild(base, "a/b/../c")
	if err != nil {
		t.Fatalf("SafeChild rejected a safe name: %v", err)
	}
	if n.Path().String() != "/srv/data/a/c" {
		t.Errorf("SafeChild = %s", n.Path())
	}

	for _, name := range []string{"..", "a/../../x", "../../etc/passwd", "a/../.."} {
		if _, err := SafeChild(base, name); !errors.Is(err, ErrTraversal) {
			t.Errorf("SafeChild(%q) = %v, want ErrTraversal", name, err)
		}
	}

	// Landing exactly on the base node is an escape too; the result must
	// be strictly inside the subtree.
	if _, err := SafeChild(base, "a/.."); !errors.Is(err, ErrTraversal) {
		t.Errorf("SafeChild(a/..) = %v, want ErrTraversal", err)
	}
}

func TestSameNode(t *testing.T) {
	fs := newMockFS()
	if !SameNode(fs.node("/a"), fs.node("/a")) {
		t.Error("same path, same fs should be the same node")
	}
	if SameNode(fs.node("/a"), fs.node("/b")) {
		t.Error("different paths are different nodes")
	}
	if SameNode(fs.node("/a"), newMockFS().node("/a")) {
		t.Error("different fs instances are different nodes")
	}
}
