package fileutils

import (
	"bytes"
	"context"
	"testing"
)

func TestXattrHelpers(t *testing.T) {
	ctx := context.Background()
	fs := newMockFS()
	fs.addFile("/f", nil)
	n := fs.node("/f")

	has, err := HasXattr(ctx, n, "user.tag")
	if err != nil || has {
		t.Errorf("HasXattr on fresh file = %v, %v", has, err)
	}

	if err := n.SetXattr(ctx, "user.tag", []byte("red")); err != nil {
		t.Fatalf("SetXattr failed: %v", err)
	}
	has, err = HasXattr(ctx, n, "user.tag")
	if err != nil || !has {
		t.Errorf("HasXattr after set = %v, %v", has, err)
	}

	value, err := CheckXattr(ctx, n, "user.tag")
	if err != nil || !bytes.Equal(value, []byte("red")) {
		t.Errorf("CheckXattr = %q, %v", value, err)
	}
	if _, err := CheckXattr(ctx, n, "user.other"); !IsNotExist(err) {
		t.Errorf("CheckXattr missing attr = %v, want ErrNotExist", err)
	}

	names, err := n.ListXattrs(ctx)
	if err != nil || len(names) != 1 || names[0] != "user.tag" {
		t.Errorf("ListXattrs = %v, %v", names, err)
	}

	if err := n.DeleteXattr(ctx, "user.tag"); err != nil {
		t.Fatalf("DeleteXattr failed: %v", err)
	}
	if has, _ := HasXattr(ctx, n, "user.tag"); has {
		t.Error("attribute survived DeleteXattr")
	}
	if err := n.DeleteXattr(ctx, "user.tag"); !IsNotExist(err) {
		t.Errorf("double DeleteXattr = %v, want ErrNotExist", err)
	}
}

func TestXattrMissingNode(t *testing.T) {
	ctx := context.Background()
	fs := newMockFS()
	n := fs.node("/missing")

	// The node itself is missing; HasXattr cannot distinguish that from a
	// missing attribute, both report false.
	has, err := HasXattr(ctx, n, "user.tag")
	if err != nil || has {
		t.Errorf("HasXattr on missing node = %v, %v", has, err)
	}
	if err := n.SetXattr(ctx, "user.tag", nil); !IsNotExist(err) {
		t.Errorf("SetXattr on missing node = %v, want ErrNotExist", err)
	}
}
