package fileutils

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Factory constructs a fresh backend FileSystem. The reconnecting proxy
// invokes it once up front and again whenever the current backend is
// declared disconnected.
type Factory func(ctx context.Context) (FileSystem, error)

// ProxyOption configures the reconnecting proxy.
type ProxyOption func(*ReconnectingFS)

// WithLogger sets the logger used to report reconnect activity. The
// default discards everything.
func WithLogger(log zerolog.Logger) ProxyOption {
	return func(p *ReconnectingFS) {
		p.log = log
	}
}

// Wrap decorates a backend-constructing factory with transparent
// reconnection. The returned FileSystem produces proxy nodes, mount
// points, and streams that delegate every operation to the current live
// backend; when a delegated call fails with a disconnection-class error
// (per the backend's DisconnectClassifier, or ErrDisconnected), the proxy
// rebuilds the backend, re-resolves the same path on the new instance, and
// retries the call exactly once. Any other error, including a disconnect
// that recurs after the one retry, propagates unchanged, so a genuinely
// unreachable backend surfaces as a failure rather than a stall.
//
// Concurrent callers observing a disconnect share a single rebuild; at
// most one factory invocation is in flight at a time.
func Wrap(factory Factory, opts ...ProxyOption) *ReconnectingFS {
	p := &ReconnectingFS{
		factory: factory,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ReconnectingFS is the FileSystem returned by Wrap.
type ReconnectingFS struct {
	factory Factory
	log     zerolog.Logger

	mu      sync.Mutex
	backend FileSystem
	gen     uint64

	group singleflight.Group
}

// current returns the live backend, connecting lazily on first use.
func (p *ReconnectingFS) current(ctx context.Context) (FileSystem, uint64, error) {
	p.mu.Lock()
	backend, gen := p.backend, p.gen
	p.mu.Unlock()
	if backend != nil {
		return backend, gen, nil
	}
	if err := p.rebuild(ctx, gen); err != nil {
		return nil, 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backend, p.gen, nil
}

func (p *ReconnectingFS) generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

// rebuild replaces the backend, unless another caller already replaced the
// generation the failure was observed on. Concurrent callers coalesce
// onto one factory invocation and share its outcome.
func (p *ReconnectingFS) rebuild(ctx context.Context, failedGen uint64) error {
	_, err, _ := p.group.Do("rebuild", func() (any, error) {
		p.mu.Lock()
		if p.backend != nil && p.gen != failedGen {
			// Already reconnected since the failure was observed.
			p.mu.Unlock()
			return nil, nil
		}
		p.mu.Unlock()

		p.log.Debug().Uint64("generation", failedGen).Msg("rebuilding backend")
		backend, err := p.factory(ctx)
		if err != nil {
			p.log.Warn().Err(err).Msg("backend rebuild failed")
			return nil, err
		}

		p.mu.Lock()
		p.backend = backend
		p.gen++
		gen := p.gen
		p.mu.Unlock()
		p.log.Info().Uint64("generation", gen).Msg("backend rebuilt")
		return nil, nil
	})
	return err
}

func (p *ReconnectingFS) isDisconnect(backend FileSystem, err error) bool {
	if err == nil {
		return false
	}
	if c, ok := backend.(DisconnectClassifier); ok {
		return c.IsDisconnect(err)
	}
	return IsDisconnected(err)
}

// do runs op against the live backend, reconnecting and retrying exactly
// once if op fails with a disconnection-class error.
func (p *ReconnectingFS) do(ctx context.Context, op func(FileSystem) error) error {
	backend, gen, err := p.current(ctx)
	if err != nil {
		return err
	}
	err = op(backend)
	if err == nil || !p.isDisconnect(backend, err) {
		return err
	}
	p.log.Debug().Err(err).Msg("disconnect detected, reconnecting")
	if rerr := p.rebuild(ctx, gen); rerr != nil {
		return fmt.Errorf("reconnect: %w", rerr)
	}
	backend, _, err = p.current(ctx)
	if err != nil {
		return err
	}
	// The retried call's outcome propagates unchanged, disconnect or not.
	return op(backend)
}

func (p *ReconnectingFS) Roots(ctx context.Context) ([]Node, error) {
	var paths []Path
	err := p.do(ctx, func(b FileSystem) error {
		roots, err := b.Roots(ctx)
		if err != nil {
			return err
		}
		paths = paths[:0]
		for _, r := range roots {
			paths = append(paths, r.Path())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]Node, len(paths))
	for i, path := range paths {
		out[i] = &proxyNode{p: p, path: path}
	}
	return out, nil
}

func (p *ReconnectingFS) Resolve(ctx context.Context, path Path) (Node, error) {
	var resolved Path
	err := p.do(ctx, func(b FileSystem) error {
		n, err := b.Resolve(ctx, path)
		if err != nil {
			return err
		}
		resolved = n.Path()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &proxyNode{p: p, path: resolved}, nil
}

func (p *ReconnectingFS) MountPoints(ctx context.Context) ([]MountPoint, error) {
	type mount struct {
		location Path
		device   *Path
	}
	var mounts []mount
	err := p.do(ctx, func(b FileSystem) error {
		mps, err := b.MountPoints(ctx)
		if err != nil {
			return err
		}
		mounts = mounts[:0]
		for _, mp := range mps {
			m := mount{location: mp.Location.Path()}
			if mp.Device != nil {
				dp := mp.Device.Path()
				m.device = &dp
			}
			mounts = append(mounts, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]MountPoint, len(mounts))
	for i, m := range mounts {
		out[i] = MountPoint{Location: &proxyNode{p: p, path: m.location}}
		if m.device != nil {
			out[i].Device = &proxyNode{p: p, path: *m.device}
		}
	}
	return out, nil
}

// proxyNode delegates every capability to the node at the same path on the
// current live backend. It implements all seven capability interfaces and
// reports ErrNotSupported at call time when the live backend lacks one;
// capability discovery therefore happens against the wrapped backend, not
// against the proxy type.
type proxyNode struct {
	p    *ReconnectingFS
	path Path
}

func (n *proxyNode) FS() FileSystem { return n.p }
func (n *proxyNode) Path() Path     { return n.path }
func (n *proxyNode) Name() string   { return n.path.Name() }

func (n *proxyNode) Parent() Node {
	if n.path.IsRoot() {
		return nil
	}
	return &proxyNode{p: n.p, path: n.path.Parent()}
}

func (n *proxyNode) Child(name string) (Node, error) {
	return &proxyNode{p: n.p, path: n.path.Child(name)}, nil
}

// withTarget resolves the proxied path on the live backend and runs op on
// the resulting node. The resolve happens inside the retry scope, so after
// a reconnect op always sees a node from the fresh backend.
func (n *proxyNode) withTarget(ctx context.Context, op func(Node) error) error {
	return n.p.do(ctx, func(b FileSystem) error {
		target, err := b.Resolve(ctx, n.path)
		if err != nil {
			return err
		}
		return op(target)
	})
}

func (n *proxyNode) unsupported(op string) error {
	return &PathError{Op: op, Path: n.path.String(), Err: ErrNotSupported}
}

func (n *proxyNode) Type(ctx context.Context) (NodeType, error) {
	var t NodeType
	err := n.withTarget(ctx, func(target Node) error {
		r, ok := target.(Readable)
		if !ok {
			return n.unsupported("type")
		}
		var err error
		t, err = r.Type(ctx)
		return err
	})
	return t, err
}

func (n *proxyNode) LinkTarget(ctx context.Context) (string, error) {
	var target string
	err := n.withTarget(ctx, func(node Node) error {
		r, ok := node.(Readable)
		if !ok {
			return n.unsupported("link_target")
		}
		var err error
		target, err = r.LinkTarget(ctx)
		return err
	})
	return target, err
}

func (n *proxyNode) OpenForReading(ctx context.Context) (io.ReadCloser, error) {
	r := &proxyReader{p: n.p, path: n.path, ctx: ctx}
	if err := r.openStream(); err != nil {
		return nil, err
	}
	return r, nil
}

func (n *proxyNode) Size(ctx context.Context) (int64, error) {
	var size int64
	err := n.withTarget(ctx, func(target Node) error {
		s, ok := target.(Sizable)
		if !ok {
			return n.unsupported("size")
		}
		var err error
		size, err = s.Size(ctx)
		return err
	})
	return size, err
}

func (n *proxyNode) ChildNames(ctx context.Context) ([]string, error) {
	var names []string
	err := n.withTarget(ctx, func(target Node) error {
		l, ok := target.(Listable)
		if !ok {
			return n.unsupported("list")
		}
		var err error
		names, err = l.ChildNames(ctx)
		return err
	})
	return names, err
}

func (n *proxyNode) OpenForWriting(ctx context.Context, appendTo bool) (io.WriteCloser, error) {
	w := &proxyWriter{p: n.p, path: n.path, ctx: ctx, appendTo: appendTo}
	if err := w.openStream(); err != nil {
		return nil, err
	}
	return w, nil
}

func (n *proxyNode) CreateFolder(ctx context.Context) error {
	return n.withTarget(ctx, func(target Node) error {
		w, ok := target.(Writable)
		if !ok {
			return n.unsupported("mkdir")
		}
		return w.CreateFolder(ctx)
	})
}

func (n *proxyNode) LinkTo(ctx context.Context, target string) error {
	return n.withTarget(ctx, func(node Node) error {
		w, ok := node.(Writable)
		if !ok {
			return n.unsupported("link")
		}
		return w.LinkTo(ctx, target)
	})
}

func (n *proxyNode) DeleteSelf(ctx context.Context) error {
	return n.withTarget(ctx, func(target Node) error {
		w, ok := target.(Writable)
		if !ok {
			return n.unsupported("delete")
		}
		return w.DeleteSelf(ctx)
	})
}

func (n *proxyNode) GetXattr(ctx context.Context, name string) ([]byte, error) {
	var value []byte
	err := n.withTarget(ctx, func(target Node) error {
		x, ok := target.(ExtendedAttributes)
		if !ok {
			return n.unsupported("getxattr")
		}
		var err error
		value, err = x.GetXattr(ctx, name)
		return err
	})
	return value, err
}

func (n *proxyNode) SetXattr(ctx context.Context, name string, value []byte) error {
	return n.withTarget(ctx, func(target Node) error {
		x, ok := target.(ExtendedAttributes)
		if !ok {
			return n.unsupported("setxattr")
		}
		return x.SetXattr(ctx, name, value)
	})
}

func (n *proxyNode) DeleteXattr(ctx context.Context, name string) error {
	return n.withTarget(ctx, func(target Node) error {
		x, ok := target.(ExtendedAttributes)
		if !ok {
			return n.unsupported("removexattr")
		}
		return x.DeleteXattr(ctx, name)
	})
}

func (n *proxyNode) ListXattrs(ctx context.Context) ([]string, error) {
	var names []string
	err := n.withTarget(ctx, func(target Node) error {
		x, ok := target.(ExtendedAttributes)
		if !ok {
			return n.unsupported("listxattrs")
		}
		var err error
		names, err = x.ListXattrs(ctx)
		return err
	})
	return names, err
}

func (n *proxyNode) ChangeTo(ctx context.Context) error {
	return n.withTarget(ctx, func(target Node) error {
		wd, ok := target.(WorkingDirectory)
		if !ok {
			return n.unsupported("chdir")
		}
		return wd.ChangeTo(ctx)
	})
}

func (n *proxyNode) Current(ctx context.Context) (Node, error) {
	var current Path
	err := n.withTarget(ctx, func(target Node) error {
		wd, ok := target.(WorkingDirectory)
		if !ok {
			return n.unsupported("getwd")
		}
		cur, err := wd.Current(ctx)
		if err != nil {
			return err
		}
		current = cur.Path()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &proxyNode{p: n.p, path: current}, nil
}

var (
	_ FileSystem         = (*ReconnectingFS)(nil)
	_ Hierarchy          = (*proxyNode)(nil)
	_ Readable           = (*proxyNode)(nil)
	_ Sizable            = (*proxyNode)(nil)
	_ Listable           = (*proxyNode)(nil)
	_ Writable           = (*proxyNode)(nil)
	_ ExtendedAttributes = (*proxyNode)(nil)
	_ WorkingDirectory   = (*proxyNode)(nil)
)
