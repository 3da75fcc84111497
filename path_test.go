package fileutils

import (
	"reflect"
	"testing"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"/a", "/a"},
		{"/a/b/c", "/a/b/c"},
		{"a/b", "/a/b"},
		{"/a//b/", "/a/b"},
		{"/a/./b", "/a/b"},
		{"/a/../b", "/b"},
		{"/../../a", "/a"},
		{"/a/b/..", "/a"},
		{"", "/"},
	}
	for _, tt := range tests {
		if got := ParsePath(tt.in).String(); got != tt.want {
			t.Errorf("ParsePath(%q).String() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPathChildParent(t *testing.T) {
	p := ParsePath("/a/b")

	if got := p.Child("c").String(); got != "/a/b/c" {
		t.Errorf("Child(c) = %q", got)
	}
	if got := p.Child("c/d", "e").String(); got != "/a/b/c/d/e" {
		t.Errorf("Child(c/d, e) = %q", got)
	}
	if got := p.Child("..").String(); got != "/a" {
		t.Errorf("Child(..) = %q", got)
	}
	if got := p.Child("../../../..").String(); got != "/" {
		t.Errorf("Child escaping root should clamp, got %q", got)
	}
	if got := p.Parent().String(); got != "/a" {
		t.Errorf("Parent = %q", got)
	}

	// Child never mutates the receiver.
	if got := p.String(); got != "/a/b" {
		t.Errorf("receiver mutated to %q", got)
	}

	root := ParsePath("/")
	if !root.Parent().Equal(root) {
		t.Error("Parent of root should be root")
	}
	if !root.IsRoot() {
		t.Error("root should report IsRoot")
	}
	if root.Name() != "" {
		t.Errorf("root Name = %q, want empty", root.Name())
	}
}

func TestPathEqualAndAncestry(t *testing.T) {
	a := ParsePath("/a/b")
	b := ParsePath("/a").Child("b")
	if !a.Equal(b) {
		t.Error("equal paths not Equal")
	}

	if !ParsePath("/a").IsAncestorOf(ParsePath("/a/b/c")) {
		t.Error("/a should be ancestor of /a/b/c")
	}
	if ParsePath("/a/b").IsAncestorOf(ParsePath("/a/b")) {
		t.Error("a path must not be its own ancestor")
	}
	if ParsePath("/a/b").IsAncestorOf(ParsePath("/a/bc")) {
		t.Error("/a/b is not an ancestor of /a/bc")
	}
	if ParsePath("/x").IsAncestorOf(ParsePath("/a/b")) {
		t.Error("unrelated path reported as ancestor")
	}

	// Different root markers never relate.
	c := NewPath("c:", "a", "b")
	if a.Equal(c) || a.IsAncestorOf(c) {
		t.Error("paths under different roots must not compare equal or related")
	}
}

func TestPathRelativeTo(t *testing.T) {
	p := ParsePath("/a/b/c/d")

	rel, err := p.RelativeTo(ParsePath("/a/b"))
	if err != nil {
		t.Fatalf("RelativeTo failed: %v", err)
	}
	if !reflect.DeepEqual(rel, []string{"c", "d"}) {
		t.Errorf("RelativeTo = %v", rel)
	}

	rel, err = p.RelativeTo(p)
	if err != nil || len(rel) != 0 {
		t.Errorf("RelativeTo self = %v, %v", rel, err)
	}

	if _, err := p.RelativeTo(ParsePath("/x")); err == nil {
		t.Error("RelativeTo unrelated base should fail")
	}
}

func TestPathRootMarkers(t *testing.T) {
	drive := NewPath("c:", "windows", "system32")
	if got := drive.String(); got != "c:/windows/system32" {
		t.Errorf("drive path String = %q", got)
	}
	if drive.Root() != "c:" {
		t.Errorf("Root = %q", drive.Root())
	}

	url := NewPath("https://example.com/", "files", "a.txt")
	if got := url.String(); got != "https://example.com/files/a.txt" {
		t.Errorf("url path String = %q", got)
	}
}
