package fileutils

import (
	"context"
	"io"
)

// NodeType classifies what a path currently points at.
type NodeType int

const (
	// TypeMissing means the node does not exist.
	TypeMissing NodeType = iota
	// TypeFile is a regular file.
	TypeFile
	// TypeFolder is a directory.
	TypeFolder
	// TypeLink is a symbolic link (or the backend's nearest equivalent,
	// e.g. an HTTP redirect on URL backends).
	TypeLink
)

func (t NodeType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeFolder:
		return "folder"
	case TypeLink:
		return "link"
	default:
		return "missing"
	}
}

// ============================================================================
// Core Interfaces
// ============================================================================

// Node is a single addressable location within a FileSystem. Identity is
// path plus owning FileSystem: two Nodes are the same node iff they were
// produced by the same FileSystem instance and their Paths are equal (see
// SameNode). A Node says nothing about existence; that is Readable's job.
//
// A backend's node type additionally implements whichever subset of the
// capability interfaces below the backend can support. Callers discover
// capabilities by type assertion:
//
//	if r, ok := node.(fileutils.Readable); ok {
//	    rc, err := r.OpenForReading(ctx)
//	    ...
//	}
type Node interface {
	// FS returns the FileSystem that produced this node.
	FS() FileSystem

	// Path returns the node's location. Unique within its FileSystem.
	Path() Path

	// Name returns the final path component, or "" for a root.
	Name() string
}

// FileSystem is the backend-scoped authority that enumerates roots and
// mount points and resolves paths to Nodes.
type FileSystem interface {
	// Roots returns the nodes with no parent, one per distinct hierarchy
	// the backend exposes.
	Roots(ctx context.Context) ([]Node, error)

	// Resolve returns the Node for a path. Backends that can construct
	// nodes speculatively (existence is a separate predicate from
	// identity) do so; others fail with ErrNotExist when a component is
	// missing.
	Resolve(ctx context.Context, p Path) (Node, error)

	// MountPoints returns one MountPoint per distinct mounted hierarchy.
	// Every FileSystem guarantees at least one MountPoint whose location
	// is one of its roots.
	MountPoints(ctx context.Context) ([]MountPoint, error)
}

// SameNode reports whether a and b denote the same node: equal paths on
// the same FileSystem instance.
func SameNode(a, b Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.FS() == b.FS() && a.Path().Equal(b.Path())
}

// MountPoint associates the root of a mounted hierarchy with the node at
// which it is mounted and, where the platform exposes one, its backing
// device. Location and Device are immutable once produced.
type MountPoint struct {
	// Location is the node at which the mount is rooted.
	Location Node

	// Device identifies the backing device, or nil where the platform
	// exposes none (network mounts, tmpfs, URL backends).
	Device Node
}

// FS returns the FileSystem this mount point belongs to.
func (mp MountPoint) FS() FileSystem { return mp.Location.FS() }

// Usage returns disk space and inode utilization for this mount point, or
// ErrNotSupported if the owning FileSystem doesn't report usage.
func (mp MountPoint) Usage(ctx context.Context) (*DiskUsage, error) {
	if r, ok := mp.Location.FS().(UsageReporter); ok {
		return r.Usage(ctx, mp)
	}
	return nil, &PathError{Op: "usage", Path: mp.Location.Path().String(), Err: ErrNotSupported}
}

// DiskUsage is disk space and inode usage for a mount point.
type DiskUsage struct {
	Space Usage
	// Inodes is nil on platforms without an inode concept.
	Inodes *Usage
}

// Usage of a single filesystem resource, in bytes or inodes.
type Usage struct {
	Total     uint64
	Used      uint64
	Available uint64
}

// Free is the amount not currently in use. Unlike Available it ignores
// quotas and reserved blocks.
func (u Usage) Free() uint64 {
	if u.Used > u.Total {
		return 0
	}
	return u.Total - u.Used
}

// ============================================================================
// Capability Interfaces
// ============================================================================
// Each interface declares the minimal primitives a backend must supply.
// The larger derived operation set (Ancestors, CopyTo, Recurse, Delete,
// Hash, ...) lives in this package as functions generic over these
// interfaces, so backends implement only the primitives.

// Hierarchy is the capability of navigating a node's tree structure.
type Hierarchy interface {
	Node

	// Parent returns the parent node, or nil iff this node is one of its
	// FileSystem's roots. That nil is the only definition of "root".
	Parent() Node

	// Child returns the node for the named child. The name may contain
	// several "/"-separated components; "." and ".." are resolved
	// lexically. No I/O is performed and the child need not exist.
	Child(name string) (Node, error)
}

// Readable is the capability of inspecting and reading a node.
type Readable interface {
	Node

	// Type reports what the path currently points at, without following
	// links. A missing node is (TypeMissing, nil), not an error.
	Type(ctx context.Context) (NodeType, error)

	// LinkTarget returns the target of a symbolic link, or "" if the node
	// is not a link.
	LinkTarget(ctx context.Context) (string, error)

	// OpenForReading opens the node's content for reading in binary mode.
	// The returned stream is owned exclusively by the caller and must be
	// closed on all exit paths; it holds a backend resource.
	OpenForReading(ctx context.Context) (io.ReadCloser, error)
}

// Sizable is the capability of reporting a node's size in bytes. For
// folders, backends report the recursive sum of contained file sizes.
type Sizable interface {
	Node
	Size(ctx context.Context) (int64, error)
}

// Listable is the capability of enumerating a folder's children.
type Listable interface {
	Hierarchy

	// ChildNames returns the names of the node's children, sorted. Fails
	// with ErrNotDir if the node is not a folder.
	ChildNames(ctx context.Context) ([]string, error)
}

// Writable is the capability of mutating a node.
type Writable interface {
	Node

	// OpenForWriting opens the node's content for writing in binary mode,
	// truncating unless appendTo is set. Close flushes; the stream must be
	// closed on all exit paths.
	OpenForWriting(ctx context.Context, appendTo bool) (io.WriteCloser, error)

	// CreateFolder creates this node as a folder. Fails with ErrExist if
	// something already exists here and with ErrNotExist if the parent is
	// missing.
	CreateFolder(ctx context.Context) error

	// LinkTo creates this node as a symbolic link pointing at target.
	LinkTo(ctx context.Context, target string) error

	// DeleteSelf removes just this node: a file, link, or empty folder.
	// Recursive deletion is the Delete derived operation.
	DeleteSelf(ctx context.Context) error
}

// ExtendedAttributes is the capability of storing named byte values
// alongside a node.
type ExtendedAttributes interface {
	Node

	GetXattr(ctx context.Context, name string) ([]byte, error)
	SetXattr(ctx context.Context, name string, value []byte) error
	DeleteXattr(ctx context.Context, name string) error
	ListXattrs(ctx context.Context) ([]string, error)
}

// WorkingDirectory is the capability of acting as the process- or
// session-scoped current directory.
type WorkingDirectory interface {
	Node

	// ChangeTo makes this node the current directory.
	ChangeTo(ctx context.Context) error

	// Current returns the node that is currently the working directory
	// for this node's session.
	Current(ctx context.Context) (Node, error)
}

// ============================================================================
// Optional FileSystem Capabilities
// ============================================================================

// Mover is implemented by nodes whose backend supports native rename,
// which is cheaper (and often atomic) compared with the copy-and-delete
// fallback used by RenameTo.
type Mover interface {
	Node
	Move(ctx context.Context, dst Path) error
}

// UsageReporter is implemented by FileSystems that can report disk usage
// per mount point.
type UsageReporter interface {
	Usage(ctx context.Context, mp MountPoint) (*DiskUsage, error)
}

// Watchable is implemented by FileSystems that can signal changes under a
// glob pattern. Backends without native events simply lack the capability.
type Watchable interface {
	Watch(ctx context.Context, pattern string) (ChangeToken, error)
}

// DisconnectClassifier is implemented by FileSystems backed by a network
// transport. IsDisconnect reports whether an error from one of the
// backend's primitives means connectivity was lost, i.e. the operation is
// worth retrying against a freshly built backend. FileSystems that don't
// implement this are classified by errors.Is(err, ErrDisconnected).
type DisconnectClassifier interface {
	IsDisconnect(err error) bool
}
