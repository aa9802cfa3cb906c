package chainfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FollowReader reads a chain file that is still being written. At the end
// of the file it blocks until the file grows, the file is removed, the
// idle timeout passes, or the context is cancelled.
type FollowReader struct {
	ctx     context.Context
	path    string
	f       *os.File
	watcher *fsnotify.Watcher
	idle    time.Duration
	logger  *slog.Logger
}

// FollowOption configures a FollowReader.
type FollowOption func(*FollowReader)

// WithIdleTimeout ends the stream after d without writes. Zero waits
// forever.
func WithIdleTimeout(d time.Duration) FollowOption {
	return func(r *FollowReader) {
		r.idle = d
	}
}

// WithFollowLogger sets the logger.
func WithFollowLogger(logger *slog.Logger) FollowOption {
	return func(r *FollowReader) {
		r.logger = logger
	}
}

// Follow opens path for following.
func Follow(ctx context.Context, path string, opts ...FollowOption) (*FollowReader, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	// Watch before opening so no write between open and watch is missed.
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("chainfile: new watcher: %w", err)
	}
	// Watch the directory, not the file, to see removals and renames.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("chainfile: watch %s: %w", filepath.Dir(abs), err)
	}

	f, err := os.Open(abs)
	if err != nil {
		w.Close()
		return nil, err
	}

	r := &FollowReader{
		ctx:     ctx,
		path:    abs,
		f:       f,
		watcher: w,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Read implements io.Reader.
func (r *FollowReader) Read(p []byte) (int, error) {
	for {
		n, err := r.f.Read(p)
		if n > 0 {
			return n, nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if err := r.wait(); err != nil {
			return 0, err
		}
	}
}

// wait blocks until the followed file may have grown.
func (r *FollowReader) wait() error {
	var timeout <-chan time.Time
	if r.idle > 0 {
		t := time.NewTimer(r.idle)
		defer t.Stop()
		timeout = t.C
	}

	for {
		select {
		case <-r.ctx.Done():
			return r.ctx.Err()
		case <-timeout:
			r.logger.Debug("follow idle timeout", "file", r.path, "idle", r.idle)
			return io.EOF
		case event, ok := <-r.watcher.Events:
			if !ok {
				return io.EOF
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				r.logger.Debug("followed file went away", "file", r.path, "op", event.Op.String())
				return io.EOF
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				return nil
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return io.EOF
			}
			return fmt.Errorf("chainfile: watch %s: %w", r.path, err)
		}
	}
}

// Close stops watching and closes the file.
func (r *FollowReader) Close() error {
	werr := r.watcher.Close()
	if err := r.f.Close(); err != nil {
		return err
	}
	return werr
}
