// Package local maps a directory of the host filesystem onto the
// fileutils interfaces. A sandbox root chosen at construction time
// becomes the filesystem's "/"; nodes cannot escape it.
package local

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/javawizard/fileutils"
)

// FS provides a host-directory-backed implementation of
// fileutils.FileSystem.
type FS struct {
	root string
}

// New creates a local filesystem adapter rooted at root. The directory
// is created if it does not exist.
func New(root string) (*FS, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, err
	}
	return &FS{root: absRoot}, nil
}

// Root returns the host directory the filesystem is sandboxed to.
func (l *FS) Root() string { return l.root }

func (l *FS) Roots(ctx context.Context) ([]fileutils.Node, error) {
	return []fileutils.Node{&node{fs: l, path: fileutils.NewPath("/")}}, nil
}

// Resolve returns a node for the given path. The node may refer to a
// location that does not exist yet.
func (l *FS) Resolve(ctx context.Context, path fileutils.Path) (fileutils.Node, error) {
	if _, err := l.osPath(path); err != nil {
		return nil, err
	}
	return &node{fs: l, path: path}, nil
}

// osPath translates a virtual path into a host path under the sandbox
// root, rejecting anything that would land outside it.
func (l *FS) osPath(path fileutils.Path) (string, error) {
	full := filepath.Join(l.root, filepath.FromSlash(strings.Join(path.Components(), "/")))
	if !isPathUnderRoot(l.root, full) {
		return "", &fileutils.PathError{Op: "resolve", Path: path.String(), Err: fileutils.ErrNotAllowed}
	}
	return full, nil
}

// virtualPath translates a host path back into the sandbox's namespace.
func (l *FS) virtualPath(hostPath string) (fileutils.Path, bool) {
	rel, err := filepath.Rel(l.root, hostPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fileutils.Path{}, false
	}
	if rel == "." {
		return fileutils.NewPath("/"), true
	}
	return fileutils.NewPath("/").Child(filepath.ToSlash(rel)), true
}

// isPathUnderRoot checks if a host path is under a given root directory.
func isPathUnderRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return !filepath.IsAbs(rel) && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// mapError converts an os-level error into the package's sentinel
// vocabulary so capability-generic callers can classify it.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fileutils.ErrNotExist
	case errors.Is(err, fs.ErrExist):
		return fileutils.ErrExist
	case errors.Is(err, fs.ErrPermission):
		return fileutils.ErrPermission
	case errors.Is(err, syscall.ENOTDIR):
		return fileutils.ErrNotDir
	case errors.Is(err, syscall.EISDIR):
		return fileutils.ErrIsDir
	case errors.Is(err, syscall.ENOTEMPTY):
		return fileutils.ErrNotEmpty
	default:
		return err
	}
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
	return &fileutils.PathError{Op: op, Path: n.path.String(), Err: mapError(err)}
}

func (n *node) hostPath() (string, error) {
	return n.fs.osPath(n.path)
}

func (n *node) Type(ctx context.Context) (fileutils.NodeType, error) {
	full, err := n.hostPath()
	if err != nil {
		return fileutils.TypeMissing, err
	}
	info, err := os.Lstat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fileutils.TypeMissing, nil
		}
		return fileutils.TypeMissing, n.pathErr("stat", err)
	}
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return fileutils.TypeLink, nil
	case info.IsDir():
		return fileutils.TypeFolder, nil
	default:
		return fileutils.TypeFile, nil
	}
}

func (n *node) LinkTarget(ctx context.Context) (string, error) {
	full, err := n.hostPath()
	if err != nil {
		return "", err
	}
	target, err := os.Readlink(full)
	if err != nil {
		if errors.Is(err, syscall.EINVAL) {
			return "", n.pathErr("readlink", fileutils.ErrNotLink)
		}
		return "", n.pathErr("readlink", err)
	}
	return filepath.ToSlash(target), nil
}

func (n *node) OpenForReading(ctx context.Context) (io.ReadCloser, error) {
	full, err := n.hostPath()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, n.pathErr("open", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, n.pathErr("open", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, n.pathErr("open", fileutils.ErrIsDir)
	}
	return f, nil
}

func (n *node) Size(ctx context.Context) (int64, error) {
	full, err := n.hostPath()
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return 0, n.pathErr("size", err)
	}
	return info.Size(), nil
}

func (n *node) ChildNames(ctx context.Context) ([]string, error) {
	full, err := n.hostPath()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, n.pathErr("list", err)
	}
	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name()
	}
	return names, nil
}

func (n *node) OpenForWriting(ctx context.Context, appendTo bool) (io.WriteCloser, error) {
	full, err := n.hostPath()
	if err != nil {
		return nil, err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if appendTo {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(full, flags, 0644)
	if err != nil {
		return nil, n.pathErr("open", err)
	}
	return f, nil
}

func (n *node) CreateFolder(ctx context.Context) error {
	full, err := n.hostPath()
	if err != nil {
		return err
	}
	if err := os.Mkdir(full, 0755); err != nil {
		return n.pathErr("mkdir", err)
	}
	return nil
}

func (n *node) LinkTo(ctx context.Context, target string) error {
	full, err := n.hostPath()
	if err != nil {
		return err
	}
	if err := os.Symlink(filepath.FromSlash(target), full); err != nil {
		return n.pathErr("link", err)
	}
	return nil
}

func (n *node) DeleteSelf(ctx context.Context) error {
	full, err := n.hostPath()
	if err != nil {
		return err
	}
	if n.path.IsRoot() {
		return n.pathErr("delete", fileutils.ErrNotAllowed)
	}
	if err := os.Remove(full); err != nil {
		return n.pathErr("delete", err)
	}
	return nil
}

// Move implements fileutils.Mover via os.Rename.
func (n *node) Move(ctx context.Context, dst fileutils.Path) error {
	src, err := n.hostPath()
	if err != nil {
		return err
	}
	dstHost, err := n.fs.osPath(dst)
	if err != nil {
		return err
	}
	if err := os.Rename(src, dstHost); err != nil {
		return &fileutils.PathError{Op: "move", Path: n.path.String(), Err: mapError(err)}
	}
	return nil
}

func (n *node) ChangeTo(ctx context.Context) error {
	full, err := n.hostPath()
	if err != nil {
		return err
	}
	if err := os.Chdir(full); err != nil {
		return n.pathErr("chdir", err)
	}
	return nil
}

func (n *node) Current(ctx context.Context) (fileutils.Node, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, n.pathErr("getwd", err)
	}
	path, ok := n.fs.virtualPath(cwd)
	if !ok {
		// Process cwd moved outside the sandbox.
		return nil, n.pathErr("getwd", fileutils.ErrNotAllowed)
	}
	return &node{fs: n.fs, path: path}, nil
}

var (
	_ fileutils.FileSystem         = (*FS)(nil)
	_ fileutils.Watchable          = (*FS)(nil)
	_ fileutils.Hierarchy          = (*node)(nil)
	_ fileutils.Readable           = (*node)(nil)
	_ fileutils.Sizable            = (*node)(nil)
	_ fileutils.Listable           = (*node)(nil)
	_ fileutils.Writable           = (*node)(nil)
	_ fileutils.ExtendedAttributes = (*node)(nil)
	_ fileutils.WorkingDirectory   = (*node)(nil)
	_ fileutils.Mover              = (*node)(nil)
)
