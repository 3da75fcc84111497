// Package memory provides an in-memory implementation of the fileutils
// capability interfaces. It is primarily useful for tests and as a
// reference implementation: every node supports hierarchy traversal,
// reading, writing, listing, sizing, and extended attributes.
package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/javawizard/fileutils"
)

const maxLinkDepth = 40

// Option configures an FS.
type Option func(*FS)

// WithCapacity sets the total space the filesystem reports through its
// mount point. The default is 1 GiB. Writes are not rejected when usage
// exceeds the capacity; the figure only feeds usage reporting.
func WithCapacity(capacity uint64) Option {
	return func(fs *FS) {
		fs.capacity = capacity
	}
}

// FS is an in-memory filesystem. The zero value is not usable; construct
// with New. Safe for concurrent use.
type FS struct {
	mu       sync.RWMutex
	root     *entry
	capacity uint64
}

// entry is a single filesystem object. Folders hold children by name,
// files hold data, links hold a target string.
type entry struct {
	typ      fileutils.NodeType
	data     []byte
	children map[string]*entry
	target   string
	xattrs   map[string][]byte
	modTime  time.Time
}

func newEntry(typ fileutils.NodeType) *entry {
	e := &entry{typ: typ, modTime: time.Now()}
	if typ == fileutils.TypeFolder {
		e.children = make(map[string]*entry)
	}
	return e
}

// New creates an empty in-memory filesystem with a single root folder.
func New(opts ...Option) *FS {
	fs := &FS{
		root:     newEntry(fileutils.TypeFolder),
		capacity: 1 << 30,
	}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

func (fs *FS) Roots(ctx context.Context) ([]fileutils.Node, error) {
	return []fileutils.Node{&node{fs: fs, path: fileutils.NewPath("/")}}, nil
}

// Resolve returns a node for the given path. The node may refer to a
// location that does not exist yet; existence is checked per operation.
func (fs *FS) Resolve(ctx context.Context, path fileutils.Path) (fileutils.Node, error) {
	return &node{fs: fs, path: path}, nil
}

func (fs *FS) MountPoints(ctx context.Context) ([]fileutils.MountPoint, error) {
	return []fileutils.MountPoint{
		{Location: &node{fs: fs, path: fileutils.NewPath("/")}},
	}, nil
}

// Usage implements fileutils.UsageReporter against the configured
// capacity.
func (fs *FS) Usage(ctx context.Context, mp fileutils.MountPoint) (*fileutils.DiskUsage, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	used := fs.root.sizeOfTree()
	avail := uint64(0)
	if fs.capacity > used {
		avail = fs.capacity - used
	}
	return &fileutils.DiskUsage{
		Space: fileutils.Usage{Total: fs.capacity, Used: used, Available: avail},
	}, nil
}

func (e *entry) sizeOfTree() uint64 {
	total := uint64(len(e.data))
	for _, child := range e.children {
		total += child.sizeOfTree()
	}
	return total
}

// lookup walks from the root to the entry at path without following a
// link in the final component. Returns nil when the path does not exist.
func (fs *FS) lookup(path fileutils.Path) *entry {
	e := fs.root
	for _, name := range path.Components() {
		if e == nil || e.typ != fileutils.TypeFolder {
			return nil
		}
		e = e.children[name]
	}
	return e
}

// deref resolves path to a non-link entry, following link targets
// relative to their parent. Returns the final entry, or nil when any
// step is missing or the chain exceeds maxLinkDepth.
func (fs *FS) deref(path fileutils.Path) *entry {
	for depth := 0; depth < maxLinkDepth; depth++ {
		e := fs.lookup(path)
		if e == nil || e.typ != fileutils.TypeLink {
			return e
		}
		path = path.Parent().Child(e.target)
	}
	return nil
}

type node struct {
	fs   *FS
	path fileutils.Path
}

func (n *node) FS() fileutils.FileSystem { return n.fs }
func (n *node) Path() fileutils.Path     { return n.path }
func (n *node) Name() string             { return n.path.Name() }

func (n *node) Parent() fileutils.Node {
	if n.path.IsRoot() {
		return nil
	}
	return &node{fs: n.fs, path: n.path.Parent()}
}

func (n *node) Child(name string) (fileutils.Node, error) {
	return &node{fs: n.fs, path: n.path.Child(name)}, nil
}

func (n *node) pathErr(op string, err error) error {
	return &fileutils.PathError{Op: op, Path: n.path.String(), Err: err}
}

func (n *node) Type(ctx context.Context) (fileutils.NodeType, error) {
	n.fs.mu.RLock()
	defer n.fs.mu.RUnlock()
	e := n.fs.lookup(n.path)
	if e == nil {
		return fileutils.TypeMissing, nil
	}
	return e.typ, nil
}

func (n *node) LinkTarget(ctx context.Context) (string, error) {
	n.fs.mu.RLock()
	defer n.fs.mu.RUnlock()
	e := n.fs.lookup(n.path)
	if e == nil {
		return "", n.pathErr("readlink", fileutils.ErrNotExist)
	}
	if e.typ != fileutils.TypeLink {
		return "", n.pathErr("readlink", fileutils.ErrNotLink)
	}
	return e.target, nil
}

func (n *node) OpenForReading(ctx context.Context) (io.ReadCloser, error) {
	n.fs.mu.RLock()
	defer n.fs.mu.RUnlock()
	e := n.fs.deref(n.path)
	if e == nil {
		return nil, n.pathErr("open", fileutils.ErrNotExist)
	}
	if e.typ == fileutils.TypeFolder {
		return nil, n.pathErr("open", fileutils.ErrIsDir)
	}
	// Snapshot the contents so later writes don't disturb the reader.
	data := make([]byte, len(e.data))
	copy(data, e.data)
	return &memReader{Reader: bytes.NewReader(data)}, nil
}

func (n *node) Size(ctx context.Context) (int64, error) {
	n.fs.mu.RLock()
	defer n.fs.mu.RUnlock()
	e := n.fs.deref(n.path)
	if e == nil {
		return 0, n.pathErr("size", fileutils.ErrNotExist)
	}
	return int64(len(e.data)), nil
}

func (n *node) ChildNames(ctx context.Context) ([]string, error) {
	n.fs.mu.RLock()
	defer n.fs.mu.RUnlock()
	e := n.fs.deref(n.path)
	if e == nil {
		return nil, n.pathErr("list", fileutils.ErrNotExist)
	}
	if e.typ != fileutils.TypeFolder {
		return nil, n.pathErr("list", fileutils.ErrNotDir)
	}
	names := make([]string, 0, len(e.children))
	for name := range e.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (n *node) OpenForWriting(ctx context.Context, appendTo bool) (io.WriteCloser, error) {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	parent := n.fs.deref(n.path.Parent())
	if parent == nil || parent.typ != fileutils.TypeFolder {
		return nil, n.pathErr("open", fileutils.ErrNotExist)
	}
	target := n.path
	if e := n.fs.lookup(n.path); e != nil {
		if e.typ == fileutils.TypeFolder {
			return nil, n.pathErr("open", fileutils.ErrIsDir)
		}
		if e.typ == fileutils.TypeLink {
			// Writing through a link lands on its target, like os.OpenFile.
			deref := n.fs.deref(n.path)
			if deref != nil && deref.typ == fileutils.TypeFolder {
				return nil, n.pathErr("open", fileutils.ErrIsDir)
			}
			target = resolveLinkPath(n.fs, n.path)
			if target.IsRoot() && n.fs.lookup(target) == nil {
				return nil, n.pathErr("open", fileutils.ErrBrokenLink)
			}
		}
	}
	w := &memWriter{fs: n.fs, path: target}
	if appendTo {
		if e := n.fs.lookup(target); e != nil && e.typ == fileutils.TypeFile {
			w.buf.Write(e.data)
		}
	}
	return w, nil
}

// resolveLinkPath follows links at path until it reaches a non-link
// location, capped at maxLinkDepth. Caller holds fs.mu.
func resolveLinkPath(fs *FS, path fileutils.Path) fileutils.Path {
	for depth := 0; depth < maxLinkDepth; depth++ {
		e := fs.lookup(path)
		if e == nil || e.typ != fileutils.TypeLink {
			return path
		}
		path = path.Parent().Child(e.target)
	}
	return path
}

func (n *node) CreateFolder(ctx context.Context) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	if n.path.IsRoot() {
		return n.pathErr("mkdir", fileutils.ErrExist)
	}
	parent := n.fs.deref(n.path.Parent())
	if parent == nil || parent.typ != fileutils.TypeFolder {
		return n.pathErr("mkdir", fileutils.ErrNotExist)
	}
	name := n.path.Name()
	if _, ok := parent.children[name]; ok {
		return n.pathErr("mkdir", fileutils.ErrExist)
	}
	parent.children[name] = newEntry(fileutils.TypeFolder)
	parent.modTime = time.Now()
	return nil
}

func (n *node) LinkTo(ctx context.Context, target string) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	if n.path.IsRoot() {
		return n.pathErr("link", fileutils.ErrExist)
	}
	parent := n.fs.deref(n.path.Parent())
	if parent == nil || parent.typ != fileutils.TypeFolder {
		return n.pathErr("link", fileutils.ErrNotExist)
	}
	name := n.path.Name()
	if _, ok := parent.children[name]; ok {
		return n.pathErr("link", fileutils.ErrExist)
	}
	e := newEntry(fileutils.TypeLink)
	e.target = target
	parent.children[name] = e
	parent.modTime = time.Now()
	return nil
}

func (n *node) DeleteSelf(ctx context.Context) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	if n.path.IsRoot() {
		return n.pathErr("delete", fileutils.ErrNotAllowed)
	}
	parent := n.fs.lookup(n.path.Parent())
	if parent == nil || parent.typ != fileutils.TypeFolder {
		return n.pathErr("delete", fileutils.ErrNotExist)
	}
	name := n.path.Name()
	e, ok := parent.children[name]
	if !ok {
		return n.pathErr("delete", fileutils.ErrNotExist)
	}
	if e.typ == fileutils.TypeFolder && len(e.children) > 0 {
		return n.pathErr("delete", fileutils.ErrNotEmpty)
	}
	delete(parent.children, name)
	parent.modTime = time.Now()
	return nil
}

func (n *node) GetXattr(ctx context.Context, name string) ([]byte, error) {
	n.fs.mu.RLock()
	defer n.fs.mu.RUnlock()
	e := n.fs.deref(n.path)
	if e == nil {
		return nil, n.pathErr("getxattr", fileutils.ErrNotExist)
	}
	value, ok := e.xattrs[name]
	if !ok {
		return nil, n.pathErr("getxattr "+name, fileutils.ErrNotExist)
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (n *node) SetXattr(ctx context.Context, name string, value []byte) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	e := n.fs.deref(n.path)
	if e == nil {
		return n.pathErr("setxattr", fileutils.ErrNotExist)
	}
	if e.xattrs == nil {
		e.xattrs = make(map[string][]byte)
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	e.xattrs[name] = stored
	return nil
}

func (n *node) DeleteXattr(ctx context.Context, name string) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	e := n.fs.deref(n.path)
	if e == nil {
		return n.pathErr("removexattr", fileutils.ErrNotExist)
	}
	if _, ok := e.xattrs[name]; !ok {
		return n.pathErr("removexattr "+name, fileutils.ErrNotExist)
	}
	delete(e.xattrs, name)
	return nil
}

func (n *node) ListXattrs(ctx context.Context) ([]string, error) {
	n.fs.mu.RLock()
	defer n.fs.mu.RUnlock()
	e := n.fs.deref(n.path)
	if e == nil {
		return nil, n.pathErr("listxattrs", fileutils.ErrNotExist)
	}
	names := make([]string, 0, len(e.xattrs))
	for name := range e.xattrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Move implements fileutils.Mover with a pure tree relink, so renames
// are cheap regardless of subtree size.
func (n *node) Move(ctx context.Context, dst fileutils.Path) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	if n.path.IsRoot() {
		return n.pathErr("move", fileutils.ErrNotAllowed)
	}
	srcParent := n.fs.lookup(n.path.Parent())
	if srcParent == nil || srcParent.typ != fileutils.TypeFolder {
		return n.pathErr("move", fileutils.ErrNotExist)
	}
	e, ok := srcParent.children[n.path.Name()]
	if !ok {
		return n.pathErr("move", fileutils.ErrNotExist)
	}
	dstParent := n.fs.deref(dst.Parent())
	if dstParent == nil || dstParent.typ != fileutils.TypeFolder {
		return &fileutils.PathError{Op: "move", Path: dst.String(), Err: fileutils.ErrNotExist}
	}
	if _, ok := dstParent.children[dst.Name()]; ok {
		return &fileutils.PathError{Op: "move", Path: dst.String(), Err: fileutils.ErrExist}
	}
	delete(srcParent.children, n.path.Name())
	dstParent.children[dst.Name()] = e
	srcParent.modTime = time.Now()
	dstParent.modTime = srcParent.modTime
	return nil
}

type memReader struct {
	*bytes.Reader
}

func (r *memReader) Close() error { return nil }

// memWriter buffers writes and commits them to the tree on Close, so a
// half-written stream never becomes visible.
type memWriter struct {
	fs     *FS
	path   fileutils.Path
	buf    bytes.Buffer
	closed bool
}

func (w *memWriter) Write(b []byte) (int, error) {
	if w.closed {
		return 0, fileutils.ErrClosed
	}
	return w.buf.Write(b)
}

func (w *memWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	parent := w.fs.deref(w.path.Parent())
	if parent == nil || parent.typ != fileutils.TypeFolder {
		return &fileutils.PathError{Op: "close", Path: w.path.String(), Err: fileutils.ErrNotExist}
	}
	name := w.path.Name()
	e, ok := parent.children[name]
	if !ok || e.typ != fileutils.TypeFile {
		e = newEntry(fileutils.TypeFile)
		parent.children[name] = e
	}
	e.data = w.buf.Bytes()
	e.modTime = time.Now()
	parent.modTime = e.modTime
	return nil
}

var (
	_ fileutils.FileSystem         = (*FS)(nil)
	_ fileutils.UsageReporter      = (*FS)(nil)
	_ fileutils.Hierarchy          = (*node)(nil)
	_ fileutils.Readable           = (*node)(nil)
	_ fileutils.Sizable            = (*node)(nil)
	_ fileutils.Listable           = (*node)(nil)
	_ fileutils.Writable           = (*node)(nil)
	_ fileutils.ExtendedAttributes = (*node)(nil)
	_ fileutils.Mover              = (*node)(nil)
)
