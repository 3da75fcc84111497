package fileutils

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
)

// countingFactory returns the same backend on every build and counts how
// many times it was asked to build.
func countingFactory(backend FileSystem) (Factory, *int) {
	builds := new(int)
	return func(ctx context.Context) (FileSystem, error) {
		*builds++
		return backend, nil
	}, builds
}

func TestProxyRetriesDisconnectOnce(t *testing.T) {
	ctx := context.Background()
	backend := newMockFS()
	backend.addFile("/f", []byte("v"))
	backend.failOnceWith("stat", "/f", ErrDisconnected)

	factory, builds := countingFactory(backend)
	proxy := Wrap(factory)

	n, err := proxy.Resolve(ctx, ParsePath("/f"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	typ, err := n.(Readable).Type(ctx)
	if err != nil {
		t.Fatalf("Type through proxy = %v, want transparent retry", err)
	}
	if typ != TypeFile {
		t.Errorf("Type = %v", typ)
	}
	// One build for first contact, one for the reconnect.
	if *builds != 2 {
		t.Errorf("factory built %d times, want 2", *builds)
	}
}

func TestProxyDoesNotRetryOrdinaryErrors(t *testing.T) {
	ctx := context.Background()
	backend := newMockFS()
	backend.addFile("/f", []byte("v"))
	backend.failWith("open", "/f", ErrPermission)

	factory, builds := countingFactory(backend)
	proxy := Wrap(factory)

	n, _ := proxy.Resolve(ctx, ParsePath("/f"))
	if _, err := ReadAll(ctx, n.(Readable)); !IsPermission(err) {
		t.Fatalf("ReadAll = %v, want ErrPermission", err)
	}
	if *builds != 1 {
		t.Errorf("factory built %d times, want 1 (no reconnect)", *builds)
	}
}

func TestProxyGivesUpAfterOneRetry(t *testing.T) {
	ctx := context.Background()
	backend := newMockFS()
	backend.addFile("/f", []byte("v"))
	backend.failWith("stat", "/f", ErrDisconnected) // fails every time

	factory, builds := countingFactory(backend)
	proxy := Wrap(factory)

	n, _ := proxy.Resolve(ctx, ParsePath("/f"))
	if _, err := n.(Readable).Type(ctx); !IsDisconnected(err) {
		t.Fatalf("Type = %v, want the second disconnect to propagate", err)
	}
	if *builds != 2 {
		t.Errorf("factory built %d times, want exactly 2", *builds)
	}
}

func TestProxyFactoryFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("server down")
	proxy := Wrap(func(ctx context.Context) (FileSystem, error) {
		return nil, boom
	})

	if _, err := proxy.Resolve(ctx, ParsePath("/f")); !errors.Is(err, boom) {
		t.Errorf("Resolve = %v, want the factory error", err)
	}
}

func TestProxyReportsMissingCapabilities(t *testing.T) {
	ctx := context.Background()
	backend := &streamFS{data: []byte("x")}
	proxy := Wrap(func(ctx context.Context) (FileSystem, error) {
		return backend, nil
	})

	n, err := proxy.Resolve(ctx, ParsePath("/stream"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// The proxy node asserts as everything; the live backend decides at
	// call time.
	if _, err := n.(Listable).ChildNames(ctx); !IsNotSupported(err) {
		t.Errorf("ChildNames = %v, want ErrNotSupported", err)
	}
	if err := n.(Writable).CreateFolder(ctx); !IsNotSupported(err) {
		t.Errorf("CreateFolder = %v, want ErrNotSupported", err)
	}
	if _, err := n.(Sizable).Size(ctx); !IsNotSupported(err) {
		t.Errorf("Size = %v, want ErrNotSupported", err)
	}
}

func TestProxyReaderResumesAfterDisconnect(t *testing.T) {
	ctx := context.Background()
	backend := &streamFS{
		data:       []byte("0123456789abcdef"),
		dropAt:     4, // first-generation streams die after 4 bytes
		dropInGen:  1,
		generation: 1,
	}
	builds := 0
	proxy := Wrap(func(ctx context.Context) (FileSystem, error) {
		builds++
		backend.mu.Lock()
		backend.generation = builds
		backend.mu.Unlock()
		return backend, nil
	})

	n, err := proxy.Resolve(ctx, ParsePath("/stream"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	rc, err := n.(Readable).OpenForReading(ctx)
	if err != nil {
		t.Fatalf("OpenForReading failed: %v", err)
	}
	defer rc.Close()

	// The caller sees one contiguous byte sequence despite the backend
	// dying mid-stream.
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll through proxy = %v", err)
	}
	if string(data) != "0123456789abcdef" {
		t.Errorf("resumed stream = %q", data)
	}
	if builds != 2 {
		t.Errorf("factory built %d times, want 2", builds)
	}
}

func TestProxyWriterResumesAfterDisconnect(t *testing.T) {
	ctx := context.Background()
	backend := &streamFS{
		dropWriteAt: 3, // the first-generation writer dies on its 3rd Write
		dropInGen:   1,
		generation:  1,
	}
	builds := 0
	proxy := Wrap(func(ctx context.Context) (FileSystem, error) {
		builds++
		backend.mu.Lock()
		backend.generation = builds
		backend.mu.Unlock()
		return backend, nil
	})

	n, err := proxy.Resolve(ctx, ParsePath("/stream"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	wc, err := n.(Writable).OpenForWriting(ctx, false)
	if err != nil {
		t.Fatalf("OpenForWriting failed: %v", err)
	}
	for _, chunk := range []string{"aa", "bb", "cc", "dd"} {
		if _, err := wc.Write([]byte(chunk)); err != nil {
			t.Fatalf("Write(%q) = %v", chunk, err)
		}
	}
	if err := wc.Close(); err != nil {
		t.Fatalf("Close = %v", err)
	}

	backend.mu.Lock()
	written := string(backend.written)
	backend.mu.Unlock()
	if written != "aabbccdd" {
		t.Errorf("written = %q, want %q", written, "aabbccdd")
	}
	if builds != 2 {
		t.Errorf("factory built %d times, want 2", builds)
	}
}

// streamFS is a single-node backend whose read and write streams can be
// scheduled to die with ErrDisconnected while a given backend generation
// is current. Bytes accepted by its writer persist across generations,
// like a remote server that flushed what it acknowledged.
type streamFS struct {
	mu          sync.Mutex
	data        []byte
	written     []byte
	generation  int
	dropInGen   int
	dropAt      int // reader: byte offset at which the stream dies
	dropWriteAt int // writer: 1-based Write call number that dies
	writeCalls  int
}

func (s *streamFS) Roots(ctx context.Context) ([]Node, error) {
	return []Node{&streamNode{fs: s, path: ParsePath("/stream")}}, nil
}

func (s *streamFS) Resolve(ctx context.Context, p Path) (Node, error) {
	return &streamNode{fs: s, path: p}, nil
}

func (s *streamFS) MountPoints(ctx context.Context) ([]MountPoint, error) {
	return nil, nil
}

type streamNode struct {
	fs   *streamFS
	path Path
}

func (n *streamNode) FS() FileSystem { return n.fs }
func (n *streamNode) Path() Path     { return n.path }
func (n *streamNode) Name() string   { return n.path.Name() }

func (n *streamNode) Type(ctx context.Context) (NodeType, error) {
	return TypeFile, nil
}

func (n *streamNode) LinkTarget(ctx context.Context) (string, error) {
	return "", &PathError{Op: "readlink", Path: n.path.String(), Err: ErrNotLink}
}

func (n *streamNode) OpenForReading(ctx context.Context) (io.ReadCloser, error) {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	r := &droppingReader{data: n.fs.data, dropAt: -1}
	if n.fs.generation == n.fs.dropInGen {
		r.dropAt = n.fs.dropAt
	}
	return r, nil
}

func (n *streamNode) OpenForWriting(ctx context.Context, appendTo bool) (io.WriteCloser, error) {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	if !appendTo {
		n.fs.written = nil
	}
	return &droppingWriter{fs: n.fs}, nil
}

func (n *streamNode) CreateFolder(ctx context.Context) error {
	return &PathError{Op: "mkdir", Path: n.path.String(), Err: ErrNotSupported}
}

func (n *streamNode) LinkTo(ctx context.Context, target string) error {
	return &PathError{Op: "link", Path: n.path.String(), Err: ErrNotSupported}
}

func (n *streamNode) DeleteSelf(ctx context.Context) error {
	return &PathError{Op: "delete", Path: n.path.String(), Err: ErrNotSupported}
}

type droppingReader struct {
	data   []byte
	pos    int
	dropAt int // -1 never drops
}

func (r *droppingReader) Read(b []byte) (int, error) {
	if r.dropAt >= 0 && r.pos >= r.dropAt {
		return 0, ErrDisconnected
	}
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	end := len(r.data)
	if r.dropAt >= 0 && r.dropAt < end {
		end = r.dropAt
	}
	n := copy(b, r.data[r.pos:end])
	r.pos += n
	if n == 0 {
		return 0, ErrDisconnected
	}
	return n, nil
}

func (r *droppingReader) Close() error { return nil }

type droppingWriter struct {
	fs     *streamFS
	closed bool
}

func (w *droppingWriter) Write(b []byte) (int, error) {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	if w.closed {
		return 0, ErrClosed
	}
	w.fs.writeCalls++
	if w.fs.generation == w.fs.dropInGen && w.fs.dropWriteAt > 0 && w.fs.writeCalls == w.fs.dropWriteAt {
		return 0, ErrDisconnected
	}
	w.fs.written = append(w.fs.written, b...)
	return len(b), nil
}

func (w *droppingWriter) Close() error {
	w.closed = true
	return nil
}
