// Package fileutils is a uniform, backend-agnostic abstraction over
// file-like resources: local filesystems, remote hosts reachable over a
// file-transfer protocol, and URL-addressed resources.
//
// A caller obtains a Node from a FileSystem (by resolving a Path or asking
// for a root) and manipulates it through small orthogonal capability
// interfaces: Hierarchy, Readable, Sizable, Listable, Writable,
// ExtendedAttributes, WorkingDirectory. A backend implements only the
// primitives it can actually support; everything else (recursive copy,
// recursive delete, globbing, hashing, ancestor math) is derived
// generically by this package from those primitives:
//
//	fs, err := local.New("/srv/data")
//	node, err := fs.Resolve(ctx, fileutils.ParsePath("/reports/q3.csv"))
//	sum, err := fileutils.Hash(ctx, node.(fileutils.Readable), fileutils.ChecksumSHA256)
//
// Capability discovery is by type assertion; a URL node simply isn't
// Listable, and callers that need listing ask for it:
//
//	if l, ok := node.(fileutils.Listable); ok {
//	    for child, err := range fileutils.Children(ctx, l) {
//	        ...
//	    }
//	}
//
// Unreliable backends can be wrapped with Wrap, which rebuilds the backend
// and retries once when a primitive fails with a disconnection-class error,
// so callers holding nodes or streams never see a severed link as a
// permanent failure.
//
// Concrete backends live in the driver subpackages: driver/local,
// driver/memory, driver/sftp, and driver/urlfs.
package fileutils
