package fileutils

import (
	"context"
	"io"
	"iter"
)

// DefaultBlockSize is the chunk size used by ReadBlocks, CopyTo and Hash
// when streaming file content.
const DefaultBlockSize = 16 * 1024

// Links pointing at links are followed at most this many hops before the
// chain is reported broken.
const maxLinkDepth = 40

// Exists reports whether the node currently exists. True even for broken
// links; use Valid for an alternative that is false for those.
func Exists(ctx context.Context, n Readable) (bool, error) {
	t, err := n.Type(ctx)
	if err != nil {
		return false, err
	}
	return t != TypeMissing, nil
}

// IsLink reports whether the node is a symbolic link, broken or not.
func IsLink(ctx context.Context, n Readable) (bool, error) {
	t, err := n.Type(ctx)
	if err != nil {
		return false, err
	}
	return t == TypeLink, nil
}

// Dereference resolves the link n points at, relative to n's parent, and
// returns the referent. With recursive set, the referent is dereferenced
// again until a non-link is reached. A non-link dereferences to itself.
func Dereference(ctx context.Context, n Readable, recursive bool) (Readable, error) {
	current := n
	for depth := 0; ; depth++ {
		t, err := current.Type(ctx)
		if err != nil {
			return nil, err
		}
		if t != TypeLink {
			return current, nil
		}
		if depth >= maxLinkDepth {
			return nil, &PathError{Op: "dereference", Path: n.Path().String(), Err: ErrBrokenLink}
		}
		target, err := current.LinkTarget(ctx)
		if err != nil {
			return nil, err
		}
		h, ok := current.(Hierarchy)
		if !ok {
			return nil, &PathError{Op: "dereference", Path: current.Path().String(), Err: ErrNotSupported}
		}
		// Resolve relative to the link's parent in case the target is a
		// relative path.
		parent := h.Parent()
		if parent == nil {
			return nil, &PathError{Op: "dereference", Path: current.Path().String(), Err: ErrBrokenLink}
		}
		ph, ok := parent.(Hierarchy)
		if !ok {
			return nil, &PathError{Op: "dereference", Path: parent.Path().String(), Err: ErrNotSupported}
		}
		referent, err := ph.Child(target)
		if err != nil {
			return nil, err
		}
		r, ok := referent.(Readable)
		if !ok {
			return nil, &PathError{Op: "dereference", Path: referent.Path().String(), Err: ErrNotSupported}
		}
		if !recursive {
			return r, nil
		}
		current = r
	}
}

// IsFile reports whether the node is a file, following links.
func IsFile(ctx context.Context, n Readable) (bool, error) {
	return dereferencedTypeIs(ctx, n, TypeFile)
}

// IsFolder reports whether the node is a folder, following links.
func IsFolder(ctx context.Context, n Readable) (bool, error) {
	return dereferencedTypeIs(ctx, n, TypeFolder)
}

// brokenChain reports whether a Dereference failure means the link chain
// itself is unresolvable, as opposed to a primitive failing for some other
// reason (permission, disconnect, unsupported). Only chain failures may be
// folded into a boolean answer; every other failure propagates unchanged.
func brokenChain(err error) bool {
	return IsNotExist(err) || IsBrokenLink(err)
}

func dereferencedTypeIs(ctx context.Context, n Readable, want NodeType) (bool, error) {
	target, err := Dereference(ctx, n, true)
	if err != nil {
		// A broken chain just means the node is not of the wanted type.
		if brokenChain(err) {
			return false, nil
		}
		return false, err
	}
	t, err := target.Type(ctx)
	if err != nil {
		return false, err
	}
	return t == want, nil
}

// IsBroken reports whether the node is a symbolic link whose target chain
// does not resolve to an existing node.
func IsBroken(ctx context.Context, n Readable) (bool, error) {
	link, err := IsLink(ctx, n)
	if err != nil || !link {
		return false, err
	}
	target, err := Dereference(ctx, n, true)
	if err != nil {
		if brokenChain(err) {
			return true, nil
		}
		return false, err
	}
	exists, err := Exists(ctx, target)
	return !exists, err
}

// Valid reports whether the node exists and, if it is a link, is not
// broken.
func Valid(ctx context.Context, n Readable) (bool, error) {
	target, err := Dereference(ctx, n, true)
	if err != nil {
		if brokenChain(err) {
			return false, nil
		}
		return false, err
	}
	return Exists(ctx, target)
}

// CheckFile fails with ErrNotExist unless the node is a file.
func CheckFile(ctx context.Context, n Readable) error {
	ok, err := IsFile(ctx, n)
	if err != nil {
		return err
	}
	if !ok {
		return &PathError{Op: "check_file", Path: n.Path().String(), Err: ErrNotExist}
	}
	return nil
}

// CheckFolder fails with ErrNotDir unless the node is a folder.
func CheckFolder(ctx context.Context, n Readable) error {
	ok, err := IsFolder(ctx, n)
	if err != nil {
		return err
	}
	if !ok {
		return &PathError{Op: "check_folder", Path: n.Path().String(), Err: ErrNotDir}
	}
	return nil
}

// ReadAll reads the node's entire content into memory. Use ReadBlocks for
// files that may be large.
func ReadAll(ctx context.Context, n Readable) ([]byte, error) {
	rc, err := n.OpenForReading(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// ReadBlocks returns a lazy sequence of successive content blocks, each at
// most blockSize bytes (DefaultBlockSize if blockSize <= 0). The stream is
// opened when iteration starts and closed when it stops, on all exit
// paths. The sequence is restartable; each iteration reopens the node.
func ReadBlocks(ctx context.Context, n Readable, blockSize int) iter.Seq2[[]byte, error] {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return func(yield func([]byte, error) bool) {
		rc, err := n.OpenForReading(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		defer rc.Close()
		buf := make([]byte, blockSize)
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			nr, err := rc.Read(buf)
			if nr > 0 {
				block := make([]byte, nr)
				copy(block, buf[:nr])
				if !yield(block, nil) {
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// Hash streams the node's content through the given digest algorithm and
// returns the hex-encoded result. The file is never materialized in
// memory.
func Hash(ctx context.Context, n Readable, algorithm ChecksumAlgorithm) (string, error) {
	rc, err := n.OpenForReading(ctx)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return CalculateChecksum(rc, algorithm)
}

// Hashes computes several digests of the node's content in a single
// streaming pass, one open and one read per call regardless of how many
// algorithms are requested.
func Hashes(ctx context.Context, n Readable, algorithms []ChecksumAlgorithm) (map[ChecksumAlgorithm]string, error) {
	rc, err := n.OpenForReading(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return CalculateChecksums(rc, algorithms)
}

// CopyTo copies the node's content to dst, which must be Writable. Links
// are dereferenced and their targets copied in their place. Files are
// streamed block-wise so arbitrarily large files copy in bounded memory;
// folders are recreated recursively (src must then be Listable and dst
// Hierarchy). An existing destination fails with ErrExist unless overwrite
// is set, in which case it is deleted first.
//
// A failure partway through a folder copy leaves the destination partially
// copied; nothing is rolled back.
func CopyTo(ctx context.Context, src Readable, dst Node, overwrite bool) error {
	w, ok := dst.(Writable)
	if !ok {
		return &PathError{Op: "copy_to", Path: dst.Path().String(), Err: ErrNotSupported}
	}
	if dr, ok := dst.(Readable); ok {
		exists, err := Exists(ctx, dr)
		if err != nil {
			return err
		}
		if exists {
			if !overwrite {
				return &PathError{Op: "copy_to", Path: dst.Path().String(), Err: ErrExist}
			}
			if err := Delete(ctx, dst); err != nil {
				return err
			}
		}
	}

	source, err := Dereference(ctx, src, true)
	if err != nil {
		return err
	}
	t, err := source.Type(ctx)
	if err != nil {
		return err
	}
	switch t {
	case TypeFile:
		return copyFileContent(ctx, source, w)
	case TypeFolder:
		l, ok := source.(Listable)
		if !ok {
			return &PathError{Op: "copy_to", Path: source.Path().String(), Err: ErrNotSupported}
		}
		if err := w.CreateFolder(ctx); err != nil {
			return err
		}
		for child, err := range Children(ctx, l) {
			if err != nil {
				return err
			}
			cr, ok := child.(Readable)
			if !ok {
				return &PathError{Op: "copy_to", Path: child.Path().String(), Err: ErrNotSupported}
			}
			if _, err := CopyInto(ctx, cr, dst, overwrite); err != nil {
				return err
			}
		}
		return nil
	default:
		return &PathError{Op: "copy_to", Path: src.Path().String(), Err: ErrNotExist}
	}
}

// CopyInto copies the node to an identically named child of the given
// folder and returns the new node. Shorthand for
// CopyTo(src, folder.Child(src.Name())).
func CopyInto(ctx context.Context, src Readable, folder Node, overwrite bool) (Node, error) {
	h, ok := folder.(Hierarchy)
	if !ok {
		return nil, &PathError{Op: "copy_into", Path: folder.Path().String(), Err: ErrNotSupported}
	}
	target, err := h.Child(src.Name())
	if err != nil {
		return nil, err
	}
	if err := CopyTo(ctx, src, target, overwrite); err != nil {
		return nil, err
	}
	return target, nil
}

func copyFileContent(ctx context.Context, src Readable, dst Writable) (err error) {
	in, err := src.OpenForReading(ctx)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := dst.OpenForWriting(ctx, false)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	// The plain-Reader wrapper hides any WriterTo fast path so the copy
	// stays chunked at DefaultBlockSize.
	buf := make([]byte, DefaultBlockSize)
	_, err = io.CopyBuffer(out, struct{ io.Reader }{in}, buf)
	return err
}
