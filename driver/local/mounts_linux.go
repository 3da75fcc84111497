//go:build linux

package local

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/javawizard/fileutils"
)

const mountsFile = "/proc/self/mounts"

// MountPoints reports the sandbox root plus every host mount point that
// falls inside it, read from /proc/self/mounts.
func (l *FS) MountPoints(ctx context.Context) ([]fileutils.MountPoint, error) {
	mounts := []fileutils.MountPoint{
		{Location: &node{fs: l, path: fileutils.NewPath("/")}},
	}

	f, err := os.Open(mountsFile)
	if err != nil {
		// No mounts table (non-procfs environments); the root mount alone
		// still satisfies the longest-prefix lookup.
		return mounts, nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		target := unescapeMountField(fields[1])
		path, ok := l.virtualPath(target)
		if !ok || path.IsRoot() {
			continue
		}
		mounts = append(mounts, fileutils.MountPoint{
			Location: &node{fs: l, path: path},
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, &fileutils.PathError{Op: "mounts", Path: mountsFile, Err: err}
	}
	return mounts, nil
}

// unescapeMountField decodes the octal escapes (\040 etc.) the kernel
// uses for whitespace in mount table fields.
func unescapeMountField(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Usage implements fileutils.UsageReporter via statfs.
func (l *FS) Usage(ctx context.Context, mp fileutils.MountPoint) (*fileutils.DiskUsage, error) {
	full, err := l.osPath(mp.Location.Path())
	if err != nil {
		return nil, err
	}
	var st unix.Statfs_t
	if err := unix.Statfs(full, &st); err != nil {
		return nil, &fileutils.PathError{Op: "statfs", Path: mp.Location.Path().String(), Err: mapError(err)}
	}
	bsize := uint64(st.Bsize)
	total := st.Blocks * bsize
	free := st.Bfree * bsize
	usage := &fileutils.DiskUsage{
		Space: fileutils.Usage{
			Total:     total,
			Used:      total - free,
			Available: st.Bavail * bsize,
		},
	}
	if st.Files > 0 {
		usage.Inodes = &fileutils.Usage{
			Total:     st.Files,
			Used:      st.Files - st.Ffree,
			Available: st.Ffree,
		}
	}
	return usage, nil
}

var _ fileutils.UsageReporter = (*FS)(nil)
