package fileutils

import "context"

// MountPointOf returns the mount point a node resides on: the MountPoint
// whose location path is the longest prefix of the node's path among all
// mount points of the node's FileSystem. It walks the ancestor chain,
// starting at the node itself, until an ancestor's path exactly matches
// a mount point location. Every FileSystem guarantees at least one mount
// point matches one of its roots, so the walk terminates.
func MountPointOf(ctx context.Context, n Node) (MountPoint, error) {
	mounts, err := n.FS().MountPoints(ctx)
	if err != nil {
		return MountPoint{}, err
	}
	for p := n.Path(); ; p = p.Parent() {
		for _, mp := range mounts {
			if mp.Location.Path().Equal(p) {
				return mp, nil
			}
		}
		if p.IsRoot() {
			return MountPoint{}, &PathError{Op: "mountpoint", Path: n.Path().String(), Err: ErrNoMountPoint}
		}
	}
}

// IsMount reports whether n is itself a mount point location.
func IsMount(ctx context.Context, n Node) (bool, error) {
	mp, err := MountPointOf(ctx, n)
	if err != nil {
		return false, err
	}
	return mp.Location.Path().Equal(n.Path()), nil
}
