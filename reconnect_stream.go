package fileutils

import (
	"context"
	"io"
	"sync"
)

// proxyReader is the read stream handed out by proxy nodes. It counts the
// bytes delivered to the caller; after a reconnect it reopens the file on
// the fresh backend and skips forward to that offset (seeking when the
// underlying stream supports it, discarding otherwise), so the caller sees
// one contiguous byte sequence across backend generations.
type proxyReader struct {
	p    *ReconnectingFS
	path Path
	ctx  context.Context

	mu      sync.Mutex
	rc      io.ReadCloser
	backend FileSystem
	gen     uint64
	offset  int64
	closed  bool
}

// openStream opens the file on the live backend positioned at r.offset,
// reconnecting and retrying once if the open itself hits a disconnect.
func (r *proxyReader) openStream() error {
	backend, gen, err := r.p.current(r.ctx)
	if err != nil {
		return err
	}
	err = r.openOn(backend)
	if err == nil {
		r.backend, r.gen = backend, gen
		return nil
	}
	if !r.p.isDisconnect(backend, err) {
		return err
	}
	if rerr := r.p.rebuild(r.ctx, gen); rerr != nil {
		return rerr
	}
	backend, gen, err = r.p.current(r.ctx)
	if err != nil {
		return err
	}
	if err := r.openOn(backend); err != nil {
		return err
	}
	r.backend, r.gen = backend, gen
	return nil
}

func (r *proxyReader) openOn(backend FileSystem) error {
	target, err := backend.Resolve(r.ctx, r.path)
	if err != nil {
		return err
	}
	readable, ok := target.(Readable)
	if !ok {
		return &PathError{Op: "open", Path: r.path.String(), Err: ErrNotSupported}
	}
	rc, err := readable.OpenForReading(r.ctx)
	if err != nil {
		return err
	}
	if err := skipTo(rc, r.offset); err != nil {
		rc.Close()
		return err
	}
	r.rc = rc
	return nil
}

func (r *proxyReader) Read(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrClosed
	}
	// A rebuild triggered elsewhere leaves this stream on a dead backend;
	// reopen against the current generation before reading.
	if r.rc == nil || r.gen != r.p.generation() {
		r.dropStream()
		if err := r.openStream(); err != nil {
			return 0, err
		}
	}

	n, err := r.rc.Read(b)
	r.offset += int64(n)
	if err == nil || err == io.EOF {
		return n, err
	}
	if !r.p.isDisconnect(r.backend, err) {
		return n, err
	}

	r.dropStream()
	if n > 0 {
		// Deliver the partial read; the next call reconnects.
		return n, nil
	}
	if rerr := r.p.rebuild(r.ctx, r.gen); rerr != nil {
		return 0, rerr
	}
	if err := r.openStream(); err != nil {
		return 0, err
	}
	n, err = r.rc.Read(b)
	r.offset += int64(n)
	return n, err
}

func (r *proxyReader) dropStream() {
	if r.rc != nil {
		r.rc.Close()
		r.rc = nil
	}
}

func (r *proxyReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.rc == nil {
		return nil
	}
	err := r.rc.Close()
	r.rc = nil
	return err
}

// skipTo positions rc at offset, seeking when possible and reading into
// the void otherwise.
func skipTo(rc io.ReadCloser, offset int64) error {
	if offset == 0 {
		return nil
	}
	if s, ok := rc.(io.Seeker); ok {
		_, err := s.Seek(offset, io.SeekStart)
		return err
	}
	_, err := io.CopyN(io.Discard, rc, offset)
	if err == io.EOF {
		// File shrank under us; surface it as a short stream rather than
		// an open failure.
		return nil
	}
	return err
}

// proxyWriter is the write stream handed out by proxy nodes. It counts
// the bytes the backend has accepted; after a reconnect it reopens the
// file in append mode on the fresh backend and resumes with the
// unaccepted remainder of the interrupted Write. Bytes buffered but not
// yet flushed by the dead backend may be lost, so a resumed write is a
// best-effort continuation, not an exactness guarantee.
type proxyWriter struct {
	p        *ReconnectingFS
	path     Path
	ctx      context.Context
	appendTo bool

	mu      sync.Mutex
	wc      io.WriteCloser
	backend FileSystem
	gen     uint64
	opened  bool
	closed  bool
}

func (w *proxyWriter) openStream() error {
	backend, gen, err := w.p.current(w.ctx)
	if err != nil {
		return err
	}
	err = w.openOn(backend)
	if err == nil {
		w.backend, w.gen = backend, gen
		return nil
	}
	if !w.p.isDisconnect(backend, err) {
		return err
	}
	if rerr := w.p.rebuild(w.ctx, gen); rerr != nil {
		return rerr
	}
	backend, gen, err = w.p.current(w.ctx)
	if err != nil {
		return err
	}
	if err := w.openOn(backend); err != nil {
		return err
	}
	w.backend, w.gen = backend, gen
	return nil
}

func (w *proxyWriter) openOn(backend FileSystem) error {
	target, err := backend.Resolve(w.ctx, w.path)
	if err != nil {
		return err
	}
	writable, ok := target.(Writable)
	if !ok {
		return &PathError{Op: "open", Path: w.path.String(), Err: ErrNotSupported}
	}
	// The first open honors the caller's append flag; reopens after a
	// reconnect always append so already-written bytes survive.
	appendTo := w.appendTo || w.opened
	wc, err := writable.OpenForWriting(w.ctx, appendTo)
	if err != nil {
		return err
	}
	w.wc = wc
	w.opened = true
	return nil
}

func (w *proxyWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, ErrClosed
	}
	if w.wc == nil || w.gen != w.p.generation() {
		w.dropStream()
		if err := w.openStream(); err != nil {
			return 0, err
		}
	}

	n, err := w.wc.Write(b)
	if err == nil || !w.p.isDisconnect(w.backend, err) {
		return n, err
	}

	w.dropStream()
	if rerr := w.p.rebuild(w.ctx, w.gen); rerr != nil {
		return n, rerr
	}
	if oerr := w.openStream(); oerr != nil {
		return n, oerr
	}
	m, err := w.wc.Write(b[n:])
	return n + m, err
}

func (w *proxyWriter) dropStream() {
	if w.wc != nil {
		w.wc.Close()
		w.wc = nil
	}
}

func (w *proxyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.wc == nil {
		return nil
	}
	err := w.wc.Close()
	w.wc = nil
	return err
}
