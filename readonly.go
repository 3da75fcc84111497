package fileutils

import (
	"context"
	"errors"
	"io"
)

// ErrReadOnly is returned when a write operation is attempted through a
// read-only view.
var ErrReadOnly = errors.New("filesystem is read-only")

// ReadOnlyFS wraps a FileSystem so that the nodes it produces never expose
// the Writable capability, and extended-attribute mutation fails with
// ErrReadOnly. Useful for handing out safe views of sensitive trees and
// for exposing filesystems to untrusted code.
//
//	fs, _ := local.New("/data")
//	view := fileutils.NewReadOnlyFS(fs)
//	n, _ := view.Resolve(ctx, fileutils.ParsePath("/report.txt"))
//	_, ok := n.(fileutils.Writable) // ok == false
type ReadOnlyFS struct {
	inner FileSystem
}

// NewReadOnlyFS creates a read-only view over fs.
func NewReadOnlyFS(fs FileSystem) *ReadOnlyFS {
	return &ReadOnlyFS{inner: fs}
}

func (r *ReadOnlyFS) Roots(ctx context.Context) ([]Node, error) {
	roots, err := r.inner.Roots(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Node, len(roots))
	for i, n := range roots {
		out[i] = &readOnlyNode{fs: r, inner: n}
	}
	return out, nil
}

func (r *ReadOnlyFS) Resolve(ctx context.Context, p Path) (Node, error) {
	n, err := r.inner.Resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	return &readOnlyNode{fs: r, inner: n}, nil
}

func (r *ReadOnlyFS) MountPoints(ctx context.Context) ([]MountPoint, error) {
	mounts, err := r.inner.MountPoints(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MountPoint, len(mounts))
	for i, mp := range mounts {
		out[i] = MountPoint{Location: &readOnlyNode{fs: r, inner: mp.Location}}
		if mp.Device != nil {
			out[i].Device = &readOnlyNode{fs: r, inner: mp.Device}
		}
	}
	return out, nil
}

// IsDisconnect forwards disconnection classification so a read-only view
// can still sit under the reconnecting proxy.
func (r *ReadOnlyFS) IsDisconnect(err error) bool {
	if c, ok := r.inner.(DisconnectClassifier); ok {
		return c.IsDisconnect(err)
	}
	return IsDisconnected(err)
}

// readOnlyNode exposes the read-side capabilities of the wrapped node and
// none of the write-side ones. It intentionally does not implement
// Writable, so capability discovery by type assertion reports the node as
// unwritable rather than failing at call time.
type readOnlyNode struct {
	fs    *ReadOnlyFS
	inner Node
}

func (n *readOnlyNode) FS() FileSystem { return n.fs }
func (n *readOnlyNode) Path() Path     { return n.inner.Path() }
func (n *readOnlyNode) Name() string   { return n.inner.Name() }

func (n *readOnlyNode) Parent() Node {
	h, ok := n.inner.(Hierarchy)
	if !ok {
		return nil
	}
	parent := h.Parent()
	if parent == nil {
		return nil
	}
	return &readOnlyNode{fs: n.fs, inner: parent}
}

func (n *readOnlyNode) Child(name string) (Node, error) {
	h, ok := n.inner.(Hierarchy)
	if !ok {
		return nil, n.unsupported("child")
	}
	child, err := h.Child(name)
	if err != nil {
		return nil, err
	}
	return &readOnlyNode{fs: n.fs, inner: child}, nil
}

func (n *readOnlyNode) Type(ctx context.Context) (NodeType, error) {
	r, ok := n.inner.(Readable)
	if !ok {
		return TypeMissing, n.unsupported("type")
	}
	return r.Type(ctx)
}

func (n *readOnlyNode) LinkTarget(ctx context.Context) (string, error) {
	r, ok := n.inner.(Readable)
	if !ok {
		return "", n.unsupported("link_target")
	}
	return r.LinkTarget(ctx)
}

func (n *readOnlyNode) OpenForReading(ctx context.Context) (io.ReadCloser, error) {
	r, ok := n.inner.(Readable)
	if !ok {
		return nil, n.unsupported("open")
	}
	return r.OpenForReading(ctx)
}

func (n *readOnlyNode) Size(ctx context.Context) (int64, error) {
	s, ok := n.inner.(Sizable)
	if !ok {
		return 0, n.unsupported("size")
	}
	return s.Size(ctx)
}

func (n *readOnlyNode) ChildNames(ctx context.Context) ([]string, error) {
	l, ok := n.inner.(Listable)
	if !ok {
		return nil, n.unsupported("list")
	}
	return l.ChildNames(ctx)
}

func (n *readOnlyNode) GetXattr(ctx context.Context, name string) ([]byte, error) {
	x, ok := n.inner.(ExtendedAttributes)
	if !ok {
		return nil, n.unsupported("getxattr")
	}
	return x.GetXattr(ctx, name)
}

func (n *readOnlyNode) ListXattrs(ctx context.Context) ([]string, error) {
	x, ok := n.inner.(ExtendedAttributes)
	if !ok {
		return nil, n.unsupported("listxattrs")
	}
	return x.ListXattrs(ctx)
}

func (n *readOnlyNode) SetXattr(ctx context.Context, name string, value []byte) error {
	return &PathError{Op: "setxattr", Path: n.Path().String(), Err: ErrReadOnly}
}

func (n *readOnlyNode) DeleteXattr(ctx context.Context, name string) error {
	return &PathError{Op: "removexattr", Path: n.Path().String(), Err: ErrReadOnly}
}

func (n *readOnlyNode) unsupported(op string) error {
	return &PathError{Op: op, Path: n.Path().String(), Err: ErrNotSupported}
}

var (
	_ FileSystem           = (*ReadOnlyFS)(nil)
	_ DisconnectClassifier = (*ReadOnlyFS)(nil)
	_ Hierarchy            = (*readOnlyNode)(nil)
	_ Readable             = (*readOnlyNode)(nil)
	_ Sizable              = (*readOnlyNode)(nil)
	_ Listable             = (*readOnlyNode)(nil)
	_ ExtendedAttributes   = (*readOnlyNode)(nil)
)
