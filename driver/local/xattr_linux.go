//go:build linux

package local

import (
	"context"
	"errors"

	"golang.org/x/sys/unix"

	"github.com/javawizard/fileutils"
)

func mapXattrError(err error) error {
	switch {
	case errors.Is(err, unix.ENODATA):
		return fileutils.ErrNotExist
	case errors.Is(err, unix.ENOTSUP):
		return fileutils.ErrNotSupported
	default:
		return mapError(err)
	}
}

func (n *node) GetXattr(ctx context.Context, name string) ([]byte, error) {
	full, err := n.hostPath()
	if err != nil {
		return nil, err
	}
	// The value can grow between the sizing call and the fetch; retry
	// until a buffer fits.
	size := 128
	for {
		buf := make([]byte, size)
		sz, err := unix.Getxattr(full, name, buf)
		if err == unix.ERANGE {
			sz, err = unix.Getxattr(full, name, nil)
			if err != nil {
				return nil, n.pathErr("getxattr "+name, mapXattrError(err))
			}
			size = sz
			continue
		}
		if err != nil {
			return nil, n.pathErr("getxattr "+name, mapXattrError(err))
		}
		return buf[:sz], nil
	}
}

func (n *node) SetXattr(ctx context.Context, name string, value []byte) error {
	full, err := n.hostPath()
	if err != nil {
		return err
	}
	if err := unix.Setxattr(full, name, value, 0); err != nil {
		return n.pathErr("setxattr "+name, mapXattrError(err))
	}
	return nil
}

func (n *node) DeleteXattr(ctx context.Context, name string) error {
	full, err := n.hostPath()
	if err != nil {
		return err
	}
	if err := unix.Removexattr(full, name); err != nil {
		return n.pathErr("removexattr "+name, mapXattrError(err))
	}
	return nil
}

func (n *node) ListXattrs(ctx context.Context) ([]string, error) {
	full, err := n.hostPath()
	if err != nil {
		return nil, err
	}
	size := 256
	for {
		buf := make([]byte, size)
		sz, err := unix.Listxattr(full, buf)
		if err == unix.ERANGE {
			sz, err = unix.Listxattr(full, nil)
			if err != nil {
				return nil, n.pathErr("listxattrs", mapXattrError(err))
			}
			size = sz
			continue
		}
		if err != nil {
			return nil, n.pathErr("listxattrs", mapXattrError(err))
		}
		return splitXattrNames(buf[:sz]), nil
	}
}

// splitXattrNames parses the NUL-separated name list listxattr returns.
func splitXattrNames(buf []byte) []string {
	var names []string
	start := 0
	for i, b := range buf {
		if b == 0 {
			if i > start {
				names = append(names, string(buf[start:i]))
			}
			start = i + 1
		}
	}
	return names
}
