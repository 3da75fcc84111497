// Package urlfs exposes an HTTP server's URL space as a read-only
// fileutils hierarchy. A URL that answers 2xx is a file, a redirect is
// a link whose target is the Location header, and 404/410 is a missing
// node. Listing and writing are not expressible over plain HTTP, so
// nodes implement neither Listable nor Writable.
package urlfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"github.com/javawizard/fileutils"
)

// Option configures an FS.
type Option func(*FS)

// WithHTTPClient replaces the default http.Client. The client's redirect
// policy is overridden internally where single-hop semantics are needed.
func WithHTTPClient(client *http.Client) Option {
	return func(fs *FS) {
		fs.client = client
	}
}

// FS provides an HTTP-backed implementation of fileutils.FileSystem
// rooted at a base URL.
type FS struct {
	base   *url.URL
	client *http.Client
}

// New creates a URL filesystem rooted at base.
func New(base string, opts ...Option) (*FS, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	fs := &FS{base: u, client: http.DefaultClient}
	for _, opt := range opts {
		opt(fs)
	}
	return fs, nil
}

func (u *FS) Roots(ctx context.Context) ([]fileutils.Node, error) {
	return []fileutils.Node{&node{fs: u, path: fileutils.NewPath("/")}}, nil
}

func (u *FS) Resolve(ctx context.Context, p fileutils.Path) (fileutils.Node, error) {
	return &node{fs: u, path: p}, nil
}

func (u *FS) MountPoints(ctx context.Context) ([]fileutils.MountPoint, error) {
	return []fileutils.MountPoint{
		{Location: &node{fs: u, path: fileutils.NewPath("/")}},
	}, nil
}

// IsDisconnect implements fileutils.DisconnectClassifier for transport
// failures: refused or reset connections, timeouts, and closed sockets.
func (u *FS) IsDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, fileutils.ErrDisconnected) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// urlFor maps a virtual path onto the base URL.
func (u *FS) urlFor(p fileutils.Path) string {
	ref := &url.URL{Path: strings.Join(p.Components(), "/")}
	base := *u.base
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return base.ResolveReference(ref).String()
}

// noRedirect returns a client that surfaces redirects as responses
// instead of following them, so they can be reported as links.
func (u *FS) noRedirect() *http.Client {
	c := *u.client
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &c
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

// head issues a single-hop HEAD, falling back to GET for servers that
// reject HEAD. The response body is always closed.
func (n *node) head(ctx context.Context) (*http.Response, error) {
	client := n.fs.noRedirect()
	target := n.fs.urlFor(n.path)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		return resp, nil
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err = client.Do(req)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	return resp, nil
}

func (n *node) Type(ctx context.Context) (fileutils.NodeType, error) {
	resp, err := n.head(ctx)
	if err != nil {
		return fileutils.TypeMissing, n.pathErr("stat", err)
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return fileutils.TypeFile, nil
	case resp.StatusCode >= 300 && resp.StatusCode < 400 && resp.Header.Get("Location") != "":
		return fileutils.TypeLink, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fileutils.TypeMissing, nil
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return fileutils.TypeMissing, n.pathErr("stat", fileutils.ErrPermission)
	default:
		return fileutils.TypeMissing, n.pathErr("stat", fmt.Errorf("unexpected status %s", resp.Status))
	}
}

func (n *node) LinkTarget(ctx context.Context) (string, error) {
	resp, err := n.head(ctx)
	if err != nil {
		return "", n.pathErr("readlink", err)
	}
	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			return "", n.pathErr("readlink", fileutils.ErrNotExist)
		}
		return "", n.pathErr("readlink", fileutils.ErrNotLink)
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return "", n.pathErr("readlink", fileutils.ErrNotLink)
	}
	return location, nil
}

// OpenForReading issues a GET with redirects followed, mirroring how an
// os-level open traverses symlinks.
func (n *node) OpenForReading(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.fs.urlFor(n.path), nil)
	if err != nil {
		return nil, n.pathErr("open", err)
	}
	resp, err := n.fs.client.Do(req)
	if err != nil {
		return nil, n.pathErr("open", err)
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp.Body, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		resp.Body.Close()
		return nil, n.pathErr("open", fileutils.ErrNotExist)
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		resp.Body.Close()
		return nil, n.pathErr("open", fileutils.ErrPermission)
	default:
		resp.Body.Close()
		return nil, n.pathErr("open", fmt.Errorf("unexpected status %s", resp.Status))
	}
}

func (n *node) Size(ctx context.Context) (int64, error) {
	resp, err := n.head(ctx)
	if err != nil {
		return 0, n.pathErr("size", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return 0, n.pathErr("size", fileutils.ErrNotExist)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return 0, n.pathErr("size", fmt.Errorf("unexpected status %s", resp.Status))
	}
	if resp.ContentLength < 0 {
		// Chunked responses do not declare a length.
		return 0, n.pathErr("size", fileutils.ErrNotSupported)
	}
	return resp.ContentLength, nil
}

var (
	_ fileutils.FileSystem           = (*FS)(nil)
	_ fileutils.DisconnectClassifier = (*FS)(nil)
	_ fileutils.Hierarchy            = (*node)(nil)
	_ fileutils.Readable             = (*node)(nil)
	_ fileutils.Sizable              = (*node)(nil)
)
