package fileutils

import "context"

// AsWorking makes the node the current working directory, runs fn, and
// restores the previous working directory on all exit paths, including
// when fn fails. fn receives the node itself. If restoration fails and fn
// succeeded, the restoration error is returned.
func AsWorking(ctx context.Context, n WorkingDirectory, fn func(Node) error) (err error) {
	previous, err := n.Current(ctx)
	if err != nil {
		return err
	}
	prevWD, ok := previous.(WorkingDirectory)
	if !ok {
		return &PathError{Op: "as_working", Path: previous.Path().String(), Err: ErrNotSupported}
	}
	if err := n.ChangeTo(ctx); err != nil {
		return err
	}
	defer func() {
		if rerr := prevWD.ChangeTo(ctx); err == nil {
			err = rerr
		}
	}()
	return fn(n)
}
