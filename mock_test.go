package fileutils

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
)

// mockEntry is a single object in the mock filesystem.
type mockEntry struct {
	typ    NodeType
	data   []byte
	target string
	xattrs map[string][]byte
}

// mockFS is a simple in-memory filesystem for testing the capability
// helpers. Entries are keyed by normalized path string; fail injects an
// error for a specific "op path" pair.
type mockFS struct {
	mu       sync.Mutex
	entries  map[string]*mockEntry
	mounts   []string
	fail     map[string]error
	failOnce map[string]error
	cwd      string
	deleted  []string
}

func newMockFS() *mockFS {
	return &mockFS{
		entries:  map[string]*mockEntry{"/": {typ: TypeFolder}},
		mounts:   []string{"/"},
		fail:     make(map[string]error),
		failOnce: make(map[string]error),
		cwd:      "/",
	}
}

func (m *mockFS) addFolder(path string) {
	m.entries[ParsePath(path).String()] = &mockEntry{typ: TypeFolder}
}

func (m *mockFS) addFile(path string, data []byte) {
	m.entries[ParsePath(path).String()] = &mockEntry{typ: TypeFile, data: data}
}

func (m *mockFS) addLink(path, target string) {
	m.entries[ParsePath(path).String()] = &mockEntry{typ: TypeLink, target: target}
}

func (m *mockFS) addMount(path string) {
	m.mounts = append(m.mounts, ParsePath(path).String())
}

func (m *mockFS) failWith(op, path string, err error) {
	m.fail[op+" "+ParsePath(path).String()] = err
}

func (m *mockFS) failOnceWith(op, path string, err error) {
	m.failOnce[op+" "+ParsePath(path).String()] = err
}

func (m *mockFS) node(path string) *mockNode {
	return &mockNode{fs: m, path: ParsePath(path)}
}

func (m *mockFS) Roots(ctx context.Context) ([]Node, error) {
	return []Node{m.node("/")}, nil
}

func (m *mockFS) Resolve(ctx context.Context, path Path) (Node, error) {
	return &mockNode{fs: m, path: path}, nil
}

func (m *mockFS) MountPoints(ctx context.Context) ([]MountPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MountPoint, len(m.mounts))
	for i, loc := range m.mounts {
		out[i] = MountPoint{Location: m.node(loc)}
	}
	return out, nil
}

type mockNode struct {
	fs   *mockFS
	path Path
}

func (n *mockNode) FS() FileSystem { return n.fs }
func (n *mockNode) Path() Path     { return n.path }
func (n *mockNode) Name() string   { return n.path.Name() }

func (n *mockNode) Parent() Node {
	if n.path.IsRoot() {
		return nil
	}
	return &mockNode{fs: n.fs, path: n.path.Parent()}
}

func (n *mockNode) Child(name string) (Node, error) {
	return &mockNode{fs: n.fs, path: n.path.Child(name)}, nil
}

func (n *mockNode) key() string { return n.path.String() }

func (n *mockNode) injected(op string) error {
	key := op + " " + n.key()
	n.fs.mu.Lock()
	once, ok := n.fs.failOnce[key]
	if ok {
		delete(n.fs.failOnce, key)
	}
	n.fs.mu.Unlock()
	if ok {
		return &PathError{Op: op, Path: n.key(), Err: once}
	}
	if err, ok := n.fs.fail[key]; ok {
		return &PathError{Op: op, Path: n.key(), Err: err}
	}
	return nil
}

// derefKey follows link entries starting at key until a non-link is
// reached. Caller holds fs.mu.
func (n *mockNode) derefKey(key string) string {
	for range maxLinkDepth {
		e, ok := n.fs.entries[key]
		if !ok || e.typ != TypeLink {
			return key
		}
		key = ParsePath(key).Parent().Child(e.target).String()
	}
	return key
}

func (n *mockNode) Type(ctx context.Context) (NodeType, error) {
	if err := n.injected("stat"); err != nil {
		return TypeMissing, err
	}
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	e, ok := n.fs.entries[n.key()]
	if !ok {
		return TypeMissing, nil
	}
	return e.typ, nil
}

func (n *mockNode) LinkTarget(ctx context.Context) (string, error) {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	e, ok := n.fs.entries[n.key()]
	if !ok {
		return "", &PathError{Op: "readlink", Path: n.key(), Err: ErrNotExist}
	}
	if e.typ != TypeLink {
		return "", &PathError{Op: "readlink", Path: n.key(), Err: ErrNotLink}
	}
	return e.target, nil
}

func (n *mockNode) OpenForReading(ctx context.Context) (io.ReadCloser, error) {
	if err := n.injected("open"); err != nil {
		return nil, err
	}
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	e, ok := n.fs.entries[n.derefKey(n.key())]
	if !ok {
		return nil, &PathError{Op: "open", Path: n.key(), Err: ErrNotExist}
	}
	if e.typ == TypeFolder {
		return nil, &PathError{Op: "open", Path: n.key(), Err: ErrIsDir}
	}
	return io.NopCloser(bytes.NewReader(e.data)), nil
}

func (n *mockNode) Size(ctx context.Context) (int64, error) {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	e, ok := n.fs.entries[n.derefKey(n.key())]
	if !ok {
		return 0, &PathError{Op: "size", Path: n.key(), Err: ErrNotExist}
	}
	return int64(len(e.data)), nil
}

func (n *mockNode) ChildNames(ctx context.Context) ([]string, error) {
	if err := n.injected("list"); err != nil {
		return nil, err
	}
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	key := n.derefKey(n.key())
	e, ok := n.fs.entries[key]
	if !ok {
		return nil, &PathError{Op: "list", Path: n.key(), Err: ErrNotExist}
	}
	if e.typ != TypeFolder {
		return nil, &PathError{Op: "list", Path: n.key(), Err: ErrNotDir}
	}
	dir := ParsePath(key)
	var names []string
	for k := range n.fs.entries {
		if k == "/" {
			continue
		}
		p := ParsePath(k)
		if p.Parent().Equal(dir) {
			names = append(names, p.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (n *mockNode) OpenForWriting(ctx context.Context, appendTo bool) (io.WriteCloser, error) {
	if err := n.injected("write"); err != nil {
		return nil, err
	}
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	parent, ok := n.fs.entries[n.derefKey(n.path.Parent().String())]
	if !ok || parent.typ != TypeFolder {
		return nil, &PathError{Op: "write", Path: n.key(), Err: ErrNotExist}
	}
	key := n.derefKey(n.key())
	if e, ok := n.fs.entries[key]; ok && e.typ == TypeFolder {
		return nil, &PathError{Op: "write", Path: n.key(), Err: ErrIsDir}
	}
	w := &mockWriter{fs: n.fs, key: key}
	if appendTo {
		if e, ok := n.fs.entries[key]; ok {
			w.buf.Write(e.data)
		}
	}
	return w, nil
}

func (n *mockNode) CreateFolder(ctx context.Context) error {
	if err := n.injected("mkdir"); err != nil {
		return err
	}
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	if _, ok := n.fs.entries[n.key()]; ok {
		return &PathError{Op: "mkdir", Path: n.key(), Err: ErrExist}
	}
	parent, ok := n.fs.entries[n.derefKey(n.path.Parent().String())]
	if !ok || parent.typ != TypeFolder {
		return &PathError{Op: "mkdir", Path: n.key(), Err: ErrNotExist}
	}
	n.fs.entries[n.key()] = &mockEntry{typ: TypeFolder}
	return nil
}

func (n *mockNode) LinkTo(ctx context.Context, target string) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	if _, ok := n.fs.entries[n.key()]; ok {
		return &PathError{Op: "link", Path: n.key(), Err: ErrExist}
	}
	n.fs.entries[n.key()] = &mockEntry{typ: TypeLink, target: target}
	return nil
}

func (n *mockNode) DeleteSelf(ctx context.Context) error {
	if err := n.injected("delete"); err != nil {
		return err
	}
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	key := n.key()
	e, ok := n.fs.entries[key]
	if !ok {
		return &PathError{Op: "delete", Path: key, Err: ErrNotExist}
	}
	if e.typ == TypeFolder {
		dir := ParsePath(key)
		for k := range n.fs.entries {
			if k != "/" && ParsePath(k).Parent().Equal(dir) {
				return &PathError{Op: "delete", Path: key, Err: ErrNotEmpty}
			}
		}
	}
	delete(n.fs.entries, key)
	n.fs.deleted = append(n.fs.deleted, key)
	return nil
}

func (n *mockNode) GetXattr(ctx context.Context, name string) ([]byte, error) {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	e, ok := n.fs.entries[n.derefKey(n.key())]
	if !ok {
		return nil, &PathError{Op: "getxattr", Path: n.key(), Err: ErrNotExist}
	}
	value, ok := e.xattrs[name]
	if !ok {
		return nil, &PathError{Op: "getxattr " + name, Path: n.key(), Err: ErrNotExist}
	}
	return value, nil
}

func (n *mockNode) SetXattr(ctx context.Context, name string, value []byte) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	e, ok := n.fs.entries[n.derefKey(n.key())]
	if !ok {
		return &PathError{Op: "setxattr", Path: n.key(), Err: ErrNotExist}
	}
	if e.xattrs == nil {
		e.xattrs = make(map[string][]byte)
	}
	e.xattrs[name] = value
	return nil
}

func (n *mockNode) DeleteXattr(ctx context.Context, name string) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	e, ok := n.fs.entries[n.derefKey(n.key())]
	if !ok {
		return &PathError{Op: "removexattr", Path: n.key(), Err: ErrNotExist}
	}
	if _, ok := e.xattrs[name]; !ok {
		return &PathError{Op: "removexattr " + name, Path: n.key(), Err: ErrNotExist}
	}
	delete(e.xattrs, name)
	return nil
}

func (n *mockNode) ListXattrs(ctx context.Context) ([]string, error) {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	e, ok := n.fs.entries[n.derefKey(n.key())]
	if !ok {
		return nil, &PathError{Op: "listxattrs", Path: n.key(), Err: ErrNotExist}
	}
	names := make([]string, 0, len(e.xattrs))
	for name := range e.xattrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (n *mockNode) ChangeTo(ctx context.Context) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	key := n.derefKey(n.key())
	e, ok := n.fs.entries[key]
	if !ok {
		return &PathError{Op: "chdir", Path: n.key(), Err: ErrNotExist}
	}
	if e.typ != TypeFolder {
		return &PathError{Op: "chdir", Path: n.key(), Err: ErrNotDir}
	}
	n.fs.cwd = key
	return nil
}

func (n *mockNode) Current(ctx context.Context) (Node, error) {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	return n.fs.node(n.fs.cwd), nil
}

// Move relinks the entry and its descendants under the new path.
func (n *mockNode) Move(ctx context.Context, dst Path) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	src := n.key()
	e, ok := n.fs.entries[src]
	if !ok {
		return &PathError{Op: "move", Path: src, Err: ErrNotExist}
	}
	if _, ok := n.fs.entries[dst.String()]; ok {
		return &PathError{Op: "move", Path: dst.String(), Err: ErrExist}
	}
	srcPath := ParsePath(src)
	moved := map[string]*mockEntry{dst.String(): e}
	delete(n.fs.entries, src)
	for k, v := range n.fs.entries {
		p := ParsePath(k)
		if srcPath.IsAncestorOf(p) {
			rel, _ := p.RelativeTo(srcPath)
			moved[dst.Child(rel...).String()] = v
			delete(n.fs.entries, k)
		}
	}
	for k, v := range moved {
		n.fs.entries[k] = v
	}
	return nil
}

type mockWriter struct {
	fs     *mockFS
	key    string
	buf    bytes.Buffer
	closed bool
}

func (w *mockWriter) Write(b []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	return w.buf.Write(b)
}

func (w *mockWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	w.fs.entries[w.key] = &mockEntry{typ: TypeFile, data: w.buf.Bytes()}
	return nil
}

var (
	_ FileSystem         = (*mockFS)(nil)
	_ Hierarchy          = (*mockNode)(nil)
	_ Readable           = (*mockNode)(nil)
	_ Sizable            = (*mockNode)(nil)
	_ Listable           = (*mockNode)(nil)
	_ Writable           = (*mockNode)(nil)
	_ ExtendedAttributes = (*mockNode)(nil)
	_ WorkingDirectory   = (*mockNode)(nil)
	_ Mover              = (*mockNode)(nil)
)
