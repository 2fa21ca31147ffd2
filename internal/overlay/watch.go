package overlay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the overlay from path whenever the file is written or
// recreated, until ctx is done. The parent directory is watched so that
// editors replacing the file atomically are picked up.
func (s *Store) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	s.logger.Info("watching overlay file", "path", abs)

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != abs {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s.reloadFile(abs)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("overlay watcher error", "error", werr)
		}
	}
}

func (s *Store) reloadFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("failed to read overlay file", "path", path, "error", err)
		return
	}
	if err := s.Replace(filepath.Base(path), data); err != nil {
		// Partial writes fail to decode; the next write event retries.
		s.logger.Debug("overlay file not decodable yet", "path", path, "error", err)
	}
}
