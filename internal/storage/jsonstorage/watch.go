package jsonstorage

import (
	"context"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"path/filepath"
	"time"
)

const DefaultDebounce = 100 * time.Millisecond

// Watch calls onChange whenever the storage file is modified by someone
// else. Writes made through s are not reported. Watch blocks until ctx is
// done. The parent directory is watched because writes replace the file.
func (s *JSONStorage) Watch(ctx context.Context, debounce time.Duration, onChange func()) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "could not create file watcher")
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return errors.Wrapf(err, "could not watch %s", filepath.Dir(s.path))
	}

	var timer *time.Timer
	fired := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != s.path {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fired <- struct{}{}:
				default:
				}
			})

		case <-fired:
			changed, err := s.Sync()
			if err != nil {
				return err
			}

			if changed {
				onChange()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return errors.Wrap(err, "file watcher failed")
		}
	}
}
