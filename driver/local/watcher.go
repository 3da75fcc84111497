package local

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/javawizard/fileutils"
)

// Watch implements fileutils.Watchable using fsnotify. The pattern is a
// glob over virtual paths ("logs/*.txt", "**/*.go"); the returned token
// is signalled once, on the first matching event.
func (l *FS) Watch(ctx context.Context, pattern string) (fileutils.ChangeToken, error) {
	pattern = strings.TrimPrefix(pattern, "/")
	matcher, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, &fileutils.PathError{Op: "watch", Path: pattern, Err: err}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &fileutils.PathError{Op: "watch", Path: pattern, Err: err}
	}

	watchPath := filepath.Join(l.root, filepath.FromSlash(staticPrefix(pattern)))
	if err := watcher.Add(watchPath); err != nil {
		watcher.Close()
		return nil, &fileutils.PathError{Op: "watch", Path: pattern, Err: err}
	}

	// fsnotify does not recurse, so deep patterns need every existing
	// subdirectory registered up front.
	if strings.Contains(pattern, "**") {
		filepath.WalkDir(watchPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				watcher.Add(path)
			}
			return nil
		})
	}

	token := fileutils.NewCallbackChangeToken()
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				path, valid := l.virtualPath(event.Name)
				if !valid {
					continue
				}
				rel := strings.TrimPrefix(path.String(), "/")
				if matcher.Match(rel) || matcher.Match(path.Name()) {
					token.SignalChange()
					return // token is spent after the first change
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return token, nil
}

// staticPrefix returns the longest leading path segment of pattern that
// contains no glob metacharacters; that directory is where the watch is
// anchored.
func staticPrefix(pattern string) string {
	idx := strings.IndexAny(pattern, "*?[{")
	if idx < 0 {
		return filepath.Dir(pattern)
	}
	prefix := pattern[:idx]
	if slash := strings.LastIndex(prefix, "/"); slash >= 0 {
		return prefix[:slash]
	}
	return "."
}
