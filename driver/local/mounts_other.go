//go:build !linux

package local

import (
	"context"

	"github.com/javawizard/fileutils"
)

// MountPoints reports the sandbox root as the sole mount point. Nested
// host mounts are only discovered on Linux.
func (l *FS) MountPoints(ctx context.Context) ([]fileutils.MountPoint, error) {
	return []fileutils.MountPoint{
		{Location: &node{fs: l, path: fileutils.NewPath("/")}},
	}, nil
}
