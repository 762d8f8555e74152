package rnconfig

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchedFiles change the output of `react-native config`.
var watchedFiles = map[string]bool{
	"package.json":             true,
	"react-native.config.js":   true,
	"react-native.config.ts":   true,
	"app.json":                 true,
	"settings.gradle":          true,
	"build.gradle":             true,
	"AndroidManifest.xml":      true,
	"Podfile":                  true,
	"project.pbxproj":          true,
	"contents.xcworkspacedata": true,
}

// IsConfigFile reports whether a file with this base name affects the
// project config.
func IsConfigFile(name string) bool {
	return watchedFiles[name]
}

// Watch invalidates the cache whenever a file that feeds the config changes
// under the project root. It blocks until ctx is done.
func (c *Cache) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	for _, dir := range []string{c.root, filepath.Join(c.root, "android"), filepath.Join(c.root, "ios")} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) && IsConfigFile(filepath.Base(ev.Name)) {
				slog.Debug("Project file changed", "path", ev.Name, "op", ev.Op.String())
				c.Invalidate()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Project watcher error", "err", err)
		}
	}
}
