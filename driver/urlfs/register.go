package urlfs

import (
	"fmt"

	"github.com/javawizard/fileutils"
)

func init() {
	fileutils.RegisterDriver("url", func(cfg *fileutils.Config) (fileutils.FileSystem, error) {
		if cfg.URLBase == "" {
			return nil, fmt.Errorf("URL base is required")
		}
		return New(cfg.URLBase)
	})
}
