package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors the config file and the readings directory for changes and
// calls onChange with the freshly loaded Config each time either is written.
// It runs until ctx is cancelled.
//
// If a reload fails (e.g., invalid YAML), the error is logged and the
// previous config remains active — Watch does not call onChange.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	// Re-run when new provider files land in the readings directory too. The
	// watched directory follows readings_glob across reloads.
	dataDir := ""
	watchDataDir := func(glob string) {
		dir := filepath.Dir(glob)
		if dir == dataDir {
			return
		}
		if dataDir != "" {
			_ = watcher.Remove(dataDir)
		}
		dataDir = ""
		if err := watcher.Add(dir); err != nil {
			slog.Warn("config: cannot watch readings dir", "dir", dir, "err", err)
			return
		}
		dataDir = dir
	}
	if cfg, err := Load(path); err == nil {
		watchDataDir(cfg.Input.ReadingsGlob)
	}

	slog.Info("config: watching for changes", "path", path, "data_dir", dataDir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Only reload on write or create events. Editors often write via
			// rename (atomic save), so also catch fsnotify.Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				slog.Error("config: reload failed — keeping previous config",
					"path", path, "err", err)
				continue
			}

			slog.Info("config: reloaded", "path", path, "trigger", event.Name)
			watchDataDir(cfg.Input.ReadingsGlob)
			onChange(cfg)

			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
