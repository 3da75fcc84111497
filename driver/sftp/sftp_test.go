package sftp

import (
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeInfo struct{ name string }

func (f fakeInfo) Name() string       { return f.name }
func (f fakeInfo) Size() int64        { return 0 }
func (f fakeInfo) Mode() fs.FileMode  { return 0 }
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return false }
func (f fakeInfo) Sys() any           { return nil }

func TestChildNamesSorted(t *testing.T) {
	entries := []os.FileInfo{
		fakeInfo{name: "zeta"},
		fakeInfo{name: "alpha"},
		fakeInfo{name: "mid"},
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, childNames(entries))
	assert.Empty(t, childNames(nil))
}
