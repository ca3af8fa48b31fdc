package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// reloadOps are the events that can leave a new version of the file behind.
// Atomic saves (write temp, rename over) surface as Create or Rename on the
// directory rather than Write on the file.
const reloadOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename

// Watch reloads the config at path whenever it changes and hands each valid
// result to onChange. It watches the containing directory so replacements by
// rename are seen without re-adding the file. It runs until ctx is done.
//
// A reload that fails to parse or validate is logged and skipped; the
// scanner keeps using the config it already has.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: resolve %q: %w", path, err)
	}
	dir, name := filepath.Split(abs)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: new watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config: watch %q: %w", dir, err)
	}
	slog.Info("config: watching for changes", "path", abs)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name || event.Op&reloadOps == 0 {
				continue
			}
			cfg, err := Load(abs)
			if err != nil {
				// A rename-away leaves nothing to read until the new file lands.
				slog.Warn("config: reload skipped", "path", abs, "op", event.Op.String(), "err", err)
				continue
			}
			slog.Info("config: reloaded", "path", abs, "feeds", len(cfg.Scanner.Feeds))
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
