package fileutils

import "context"

// HasXattr reports whether the node carries the named extended attribute.
func HasXattr(ctx context.Context, n ExtendedAttributes, name string) (bool, error) {
	_, err := n.GetXattr(ctx, name)
	if err != nil {
		if IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CheckXattr returns the value of the named extended attribute, failing
// with ErrNotExist when the attribute is absent. Unlike GetXattr the error
// always carries the attribute name.
func CheckXattr(ctx context.Context, n ExtendedAttributes, name string) ([]byte, error) {
	value, err := n.GetXattr(ctx, name)
	if err != nil {
		if IsNotExist(err) {
			return nil, &PathError{Op: "xattr " + name, Path: n.Path().String(), Err: ErrNotExist}
		}
		return nil, err
	}
	return value, nil
}
