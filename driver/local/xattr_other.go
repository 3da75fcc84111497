//go:build !linux

package local

import (
	"context"

	"github.com/javawizard/fileutils"
)

// Extended attributes are only wired up on Linux; elsewhere the methods
// report ErrNotSupported so capability helpers degrade cleanly.

func (n *node) GetXattr(ctx context.Context, name string) ([]byte, error) {
	return nil, n.pathErr("getxattr "+name, fileutils.ErrNotSupported)
}

func (n *node) SetXattr(ctx context.Context, name string, value []byte) error {
	return n.pathErr("setxattr "+name, fileutils.ErrNotSupported)
}

func (n *node) DeleteXattr(ctx context.Context, name string) error {
	return n.pathErr("removexattr "+name, fileutils.ErrNotSupported)
}

func (n *node) ListXattrs(ctx context.Context) ([]string, error) {
	return nil, n.pathErr("listxattrs", fileutils.ErrNotSupported)
}
