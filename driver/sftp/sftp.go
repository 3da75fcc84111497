// Package sftp maps a directory on a remote SFTP server onto the
// fileutils interfaces. Nodes support hierarchy traversal, reading,
// writing, listing, and sizing; extended attributes and working
// directories are not part of the SFTP protocol surface and are left
// unimplemented, so capability discovery reports them absent.
//
// The adapter holds a single connection and makes no recovery attempt
// of its own; wrap it with fileutils.Wrap to get transparent
// reconnection. It implements fileutils.DisconnectClassifier so the
// proxy can tell a dropped connection from an ordinary failure.
package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path"
	"sort"
	"sync"
	"syscall"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/javawizard/fileutils"
)

// Config holds SFTP connection configuration.
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	PrivateKey []byte // PEM encoded private key
	BasePath   string
}

// FS provides an SFTP-backed implementation of fileutils.FileSystem.
type FS struct {
	mu       sync.Mutex
	client   *sftp.Client
	sshConn  *ssh.Client
	basePath string
	config   Config
}

// New dials the configured server and returns a connected adapter.
func New(cfg Config) (*FS, error) {
	a := &FS{
		config:   cfg,
		basePath: path.Clean("/" + cfg.BasePath),
	}
	if err := a.connect(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *FS) connect() error {
	sshConfig := &ssh.ClientConfig{
		User:            a.config.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: Use known_hosts in production
	}

	if len(a.config.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(a.config.PrivateKey)
		if err != nil {
			return fmt.Errorf("failed to parse private key: %w", err)
		}
		sshConfig.Auth = append(sshConfig.Auth, ssh.PublicKeys(signer))
	}
	if a.config.Password != "" {
		sshConfig.Auth = append(sshConfig.Auth, ssh.Password(a.config.Password))
	}
	if len(sshConfig.Auth) == 0 {
		return fmt.Errorf("no authentication method provided")
	}

	port := a.config.Port
	if port == 0 {
		port = 22
	}
	addr := fmt.Sprintf("%s:%d", a.config.Host, port)
	sshConn, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to SSH: %w", err)
	}

	client, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		return fmt.Errorf("failed to create SFTP client: %w", err)
	}

	a.mu.Lock()
	a.sshConn = sshConn
	a.client = client
	a.mu.Unlock()
	return nil
}

// Close closes the SFTP and SSH connections.
func (a *FS) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			errs = append(errs, err)
		}
		a.client = nil
	}
	if a.sshConn != nil {
		if err := a.sshConn.Close(); err != nil {
			errs = append(errs, err)
		}
		a.sshConn = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %v", errs)
	}
	return nil
}

func (a *FS) sftpClient() (*sftp.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return nil, fileutils.ErrDisconnected
	}
	return a.client, nil
}

// IsDisconnect implements fileutils.DisconnectClassifier. It recognizes
// the transport-loss errors pkg/sftp and the underlying SSH connection
// surface when the server goes away.
func (a *FS) IsDisconnect(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, fileutils.ErrDisconnected) ||
		errors.Is(err, sftp.ErrSshFxConnectionLost) ||
		errors.Is(err, sftp.ErrSshFxNoConnection) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}

func (a *FS) Roots(ctx context.Context) ([]fileutils.Node, error) {
	return []fileutils.Node{&node{fs: a, path: fileutils.NewPath("/")}}, nil
}

func (a *FS) Resolve(ctx context.Context, p fileutils.Path) (fileutils.Node, error) {
	return &node{fs: a, path: p}, nil
}

// MountPoints reports the base path as the sole mount point; the remote
// server's own mount table is not visible through the protocol.
func (a *FS) MountPoints(ctx context.Context) ([]fileutils.MountPoint, error) {
	return []fileutils.MountPoint{
		{Location: &node{fs: a, path: fileutils.NewPath("/")}},
	}, nil
}

// Usage implements fileutils.UsageReporter via the statvfs@openssh.com
// extension. Servers without the extension yield ErrNotSupported.
func (a *FS) Usage(ctx context.Context, mp fileutils.MountPoint) (*fileutils.DiskUsage, error) {
	client, err := a.sftpClient()
	if err != nil {
		return nil, err
	}
	remote := a.remotePath(mp.Location.Path())
	st, err := client.StatVFS(remote)
	if err != nil {
		if errors.Is(err, sftp.ErrSshFxOpUnsupported) {
			return nil, &fileutils.PathError{Op: "statvfs", Path: mp.Location.Path().String(), Err: fileutils.ErrNotSupported}
		}
		return nil, &fileutils.PathError{Op: "statvfs", Path: mp.Location.Path().String(), Err: mapError(err)}
	}
	total := st.Blocks * st.Frsize
	free := st.Bfree * st.Frsize
	usage := &fileutils.DiskUsage{
		Space: fileutils.Usage{
			Total:     total,
			Used:      total - free,
			Available: st.Bavail * st.Frsize,
		},
	}
	if st.Files > 0 {
		usage.Inodes = &fileutils.Usage{
			Total:     st.Files,
			Used:      st.Files - st.Ffree,
			Available: st.Favail,
		}
	}
	return usage, nil
}

// remotePath translates a virtual path into a server-side path under
// the base path.
func (a *FS) remotePath(p fileutils.Path) string {
	return path.Join(a.basePath, path.Join(p.Components()...))
}

// mapError converts pkg/sftp status errors into the package's sentinel
// vocabulary.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist) || errors.Is(err, sftp.ErrSshFxNoSuchFile):
		return fileutils.ErrNotExist
	case errors.Is(err, fs.ErrExist):
		return fileutils.ErrExist
	case errors.Is(err, fs.ErrPermission) || errors.Is(err, sftp.ErrSshFxPermissionDenied):
		return fileutils.ErrPermission
	case errors.Is(err, sftp.ErrSshFxOpUnsupported):
		return fileutils.ErrNotSupported
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

func (n *node) remote() string {
	return n.fs.remotePath(n.path)
}

func (n *node) Type(ctx context.Context) (fileutils.NodeType, error) {
	client, err := n.fs.sftpClient()
	if err != nil {
		return fileutils.TypeMissing, n.pathErr("stat", err)
	}
	info, err := client.Lstat(n.remote())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, sftp.ErrSshFxNoSuchFile) {
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
	client, err := n.fs.sftpClient()
	if err != nil {
		return "", n.pathErr("readlink", err)
	}
	target, err := client.ReadLink(n.remote())
	if err != nil {
		return "", n.pathErr("readlink", err)
	}
	return target, nil
}

func (n *node) OpenForReading(ctx context.Context) (io.ReadCloser, error) {
	client, err := n.fs.sftpClient()
	if err != nil {
		return nil, n.pathErr("open", err)
	}
	f, err := client.Open(n.remote())
	if err != nil {
		return nil, n.pathErr("open", err)
	}
	return f, nil
}

func (n *node) Size(ctx context.Context) (int64, error) {
	client, err := n.fs.sftpClient()
	if err != nil {
		return 0, n.pathErr("size", err)
	}
	info, err := client.Stat(n.remote())
	if err != nil {
		return 0, n.pathErr("size", err)
	}
	return info.Size(), nil
}

func (n *node) ChildNames(ctx context.Context) ([]string, error) {
	client, err := n.fs.sftpClient()
	if err != nil {
		return nil, n.pathErr("list", err)
	}
	entries, err := client.ReadDir(n.remote())
	if err != nil {
		return nil, n.pathErr("list", err)
	}
	return childNames(entries), nil
}

// childNames extracts and sorts entry names. ReadDir order is
// server-defined; the Listable contract is sorted.
func childNames(entries []os.FileInfo) []string {
	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name()
	}
	sort.Strings(names)
	return names
}

func (n *node) OpenForWriting(ctx context.Context, appendTo bool) (io.WriteCloser, error) {
	client, err := n.fs.sftpClient()
	if err != nil {
		return nil, n.pathErr("open", err)
	}
	flags := os.O_WRONLY | os.O_CREATE
	if appendTo {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := client.OpenFile(n.remote(), flags)
	if err != nil {
		return nil, n.pathErr("open", err)
	}
	return f, nil
}

func (n *node) CreateFolder(ctx context.Context) error {
	client, err := n.fs.sftpClient()
	if err != nil {
		return n.pathErr("mkdir", err)
	}
	remote := n.remote()
	// Some servers report a bare Failure for an existing directory, so
	// distinguish it explicitly.
	if info, serr := client.Lstat(remote); serr == nil && info != nil {
		return n.pathErr("mkdir", fileutils.ErrExist)
	}
	if err := client.Mkdir(remote); err != nil {
		return n.pathErr("mkdir", err)
	}
	return nil
}

func (n *node) LinkTo(ctx context.Context, target string) error {
	client, err := n.fs.sftpClient()
	if err != nil {
		return n.pathErr("link", err)
	}
	if err := client.Symlink(target, n.remote()); err != nil {
		return n.pathErr("link", err)
	}
	return nil
}

func (n *node) DeleteSelf(ctx context.Context) error {
	client, err := n.fs.sftpClient()
	if err != nil {
		return n.pathErr("delete", err)
	}
	if n.path.IsRoot() {
		return n.pathErr("delete", fileutils.ErrNotAllowed)
	}
	remote := n.remote()
	info, err := client.Lstat(remote)
	if err != nil {
		return n.pathErr("delete", err)
	}
	if info.IsDir() {
		if err := client.RemoveDirectory(remote); err != nil {
			return n.pathErr("delete", err)
		}
		return nil
	}
	if err := client.Remove(remote); err != nil {
		return n.pathErr("delete", err)
	}
	return nil
}

// Move implements fileutils.Mover. PosixRename is atomic where the
// server supports the extension; plain Rename otherwise.
func (n *node) Move(ctx context.Context, dst fileutils.Path) error {
	client, err := n.fs.sftpClient()
	if err != nil {
		return n.pathErr("move", err)
	}
	src := n.remote()
	target := n.fs.remotePath(dst)
	if err := client.PosixRename(src, target); err != nil {
		if !errors.Is(err, sftp.ErrSshFxOpUnsupported) {
			return n.pathErr("move", err)
		}
		if err := client.Rename(src, target); err != nil {
			return n.pathErr("move", err)
		}
	}
	return nil
}

var (
	_ fileutils.FileSystem           = (*FS)(nil)
	_ fileutils.UsageReporter        = (*FS)(nil)
	_ fileutils.DisconnectClassifier = (*FS)(nil)
	_ fileutils.Hierarchy            = (*node)(nil)
	_ fileutils.Readable             = (*node)(nil)
	_ fileutils.Sizable              = (*node)(nil)
	_ fileutils.Listable             = (*node)(nil)
	_ fileutils.Writable             = (*node)(nil)
	_ fileutils.Mover                = (*node)(nil)
)
