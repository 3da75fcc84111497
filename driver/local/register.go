package local

import "github.com/javawizard/fileutils"

func init() {
	fileutils.RegisterDriver("local", func(cfg *fileutils.Config) (fileutils.FileSystem, error) {
		return New(cfg.LocalRoot)
	})
}
