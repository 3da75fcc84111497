package fileutils

import (
	"context"

	"github.com/google/uuid"
)

// Write replaces the node's content with data. After it returns, the
// node's size equals len(data).
func Write(ctx context.Context, n Writable, data []byte) error {
	return writeStream(ctx, n, data, false)
}

// Append appends data to the end of the node's content.
func Append(ctx context.Context, n Writable, data []byte) error {
	return writeStream(ctx, n, data, true)
}

func writeStream(ctx context.Context, n Writable, data []byte, appendTo bool) (err error) {
	out, err := n.OpenForWriting(ctx, appendTo)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = out.Write(data)
	return err
}

// Delete removes the node, recursively deleting children first when it is
// a folder (links are never recursed into; they are removed themselves).
// Deletion is non-atomic and fail-fast: a failure partway through leaves
// the remaining children and the node itself in place and propagates the
// first error.
func Delete(ctx context.Context, n Node) error {
	w, ok := n.(Writable)
	if !ok {
		return &PathError{Op: "delete", Path: n.Path().String(), Err: ErrNotSupported}
	}
	if r, ok := n.(Readable); ok {
		t, err := r.Type(ctx)
		if err != nil {
			return err
		}
		if t == TypeFolder {
			l, ok := n.(Listable)
			if !ok {
				return &PathError{Op: "delete", Path: n.Path().String(), Err: ErrNotSupported}
			}
			for child, err := range Children(ctx, l) {
				if err != nil {
					return err
				}
				if err := Delete(ctx, child); err != nil {
					return err
				}
			}
		}
	}
	return w.DeleteSelf(ctx)
}

// DeleteIgnoringMissing is Delete, except a node that does not exist is
// not an error.
func DeleteIgnoringMissing(ctx context.Context, n Node) error {
	err := Delete(ctx, n)
	if err != nil && IsNotExist(err) {
		return nil
	}
	return err
}

// CreateFolders creates the node as a folder along with any missing
// ancestors, like mkdir -p. An existing folder at the node itself is not
// an error.
func CreateFolders(ctx context.Context, n Node) error {
	w, ok := n.(Writable)
	if !ok {
		return &PathError{Op: "create_folders", Path: n.Path().String(), Err: ErrNotSupported}
	}
	err := w.CreateFolder(ctx)
	switch {
	case err == nil:
		return nil
	case IsExist(err):
		return nil
	case IsNotExist(err):
		h, ok := n.(Hierarchy)
		if !ok {
			return err
		}
		parent := h.Parent()
		if parent == nil {
			return err
		}
		if perr := CreateFolders(ctx, parent); perr != nil {
			return perr
		}
		return w.CreateFolder(ctx)
	default:
		return err
	}
}

// CreateTempFolder creates a uniquely named folder under the given node
// and returns it. Names collide at random only, but creation is retried a
// few times in case they do.
func CreateTempFolder(ctx context.Context, n Hierarchy) (Node, error) {
	for range 5 {
		child, err := n.Child("tmp-" + uuid.NewString())
		if err != nil {
			return nil, err
		}
		w, ok := child.(Writable)
		if !ok {
			return nil, &PathError{Op: "mkdtemp", Path: child.Path().String(), Err: ErrNotSupported}
		}
		err = w.CreateFolder(ctx)
		if err == nil {
			return child, nil
		}
		if !IsExist(err) {
			return nil, err
		}
	}
	return nil, &PathError{Op: "mkdtemp", Path: n.Path().String(), Err: ErrExist}
}

// RenameTo moves the node to dst. When the node's backend supports native
// rename within the same FileSystem that is used (atomic where the
// platform guarantees it); otherwise the node is copied to dst and then
// deleted, which is not atomic across the two steps.
func RenameTo(ctx context.Context, src Node, dst Node) error {
	if m, ok := src.(Mover); ok && src.FS() == dst.FS() {
		return m.Move(ctx, dst.Path())
	}
	r, ok := src.(Readable)
	if !ok {
		return &PathError{Op: "rename", Path: src.Path().String(), Err: ErrNotSupported}
	}
	if err := CopyTo(ctx, r, dst, false); err != nil {
		return err
	}
	return Delete(ctx, src)
}
