package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
)

// Common errors
var (
	errKeyNotFound = errors.New("catalog: key not found")
	errStop        = errors.New("catalog: stop scan")
)

// index wraps the Badger database holding chain metadata.
type index struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	lastGCTime atomic.Int64 // Unix milliseconds

	stopCh chan struct{}
	doneCh chan struct{}
}

func openIndex(dir string, cfg BadgerConfig, logger *slog.Logger) (*index, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = &badgerLogger{logger: logger}
	opts.BlockCacheSize = cfg.CacheSize
	opts.ValueLogFileSize = cfg.ValueLogFileSize
	opts.SyncWrites = cfg.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	idx := &index{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go idx.gcLoop()

	logger.Debug("catalog index opened",
		"dir", dir,
		"cache_size", cfg.CacheSize,
		"gc_interval", cfg.GCInterval)

	return idx, nil
}

func (x *index) get(key []byte) ([]byte, error) {
	var value []byte
	err := x.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return errKeyNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// update runs fn in a read-write transaction.
func (x *index) update(fn func(txn *badger.Txn) error) error {
	return x.db.Update(fn)
}

// scan iterates over keys with the given prefix in key order. fn returns
// errStop to end the scan early.
func (x *index) scan(ctx context.Context, prefix []byte, fn func(key, value []byte) error) error {
	err := x.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(item.KeyCopy(nil), value); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, errStop) {
		return nil
	}
	return err
}

// backup writes a full Badger backup of the index to w.
func (x *index) backup(w io.Writer) error {
	if _, err := x.db.Backup(w, 0); err != nil {
		return fmt.Errorf("badger: backup: %w", err)
	}
	return nil
}

// gc runs value log GC until nothing more can be rewritten.
func (x *index) gc() (int, error) {
	runs := 0
	for {
		err := x.db.RunValueLogGC(x.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return runs, fmt.Errorf("badger: gc: %w", err)
		}
		runs++
	}
	x.lastGCTime.Store(time.Now().UnixMilli())
	return runs, nil
}

func (x *index) gcLoop() {
	defer close(x.doneCh)

	interval, err := time.ParseDuration(x.cfg.GCInterval)
	if err != nil || interval <= 0 {
		x.logger.Warn("invalid gc_interval, using default 10m", "value", x.cfg.GCInterval)
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runs, err := x.gc()
			if err != nil {
				x.logger.Error("catalog gc failed", "error", err)
				continue
			}
			x.logger.Debug("catalog gc completed", "rewrites", runs)
		case <-x.stopCh:
			return
		}
	}
}

func (x *index) close() error {
	close(x.stopCh)
	<-x.doneCh
	if err := x.db.Close(); err != nil {
		return fmt.Errorf("badger: close db: %w", err)
	}
	return nil
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
