package memory

import "github.com/javawizard/fileutils"

func init() {
	fileutils.RegisterDriver("memory", func(cfg *fileutils.Config) (fileutils.FileSystem, error) {
		return New(), nil
	})
}
