// Package catalog keeps the history of recorded chains.
//
// Metadata lives in a Badger index and chain files live next to it:
//
//	<data_dir>/catalog/         Badger index
//	<data_dir>/chains/<id>.chain chain files (raw or zstd)
//
// Index keys:
//
//	chain/<id>               JSON-encoded domain.Chain
//	user/<user>/<id>         secondary index, empty value
//	graph/<graph_hash>/<id>  secondary index, empty value
//
// Chain ids are ULIDs, so key order is creation order.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v3"

	"github.com/yndnr/pcompress-go/internal/codec"
	"github.com/yndnr/pcompress-go/internal/core/domain"
	"github.com/yndnr/pcompress-go/internal/storage/chainfile"
)

const (
	prefixChain = "chain/"
	prefixUser  = "user/"
	prefixGraph = "graph/"
)

// Catalog stores chains and their metadata.
type Catalog struct {
	cfg    Config
	idx    *index
	logger *slog.Logger
}

// Open opens or creates a catalog under cfg.DataDir.
func Open(cfg Config, logger *slog.Logger) (*Catalog, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("catalog: data dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	for _, dir := range []string{cfg.indexDir(), cfg.chainsDir()} {
		if err := os.MkdirAll(dir, chainfile.DefaultDirPerm); err != nil {
			return nil, fmt.Errorf("catalog: create %s: %w", dir, err)
		}
	}

	idx, err := openIndex(cfg.indexDir(), cfg.Badger, logger)
	if err != nil {
		return nil, err
	}
	return &Catalog{cfg: cfg, idx: idx, logger: logger}, nil
}

// Close closes the index.
func (c *Catalog) Close() error {
	return c.idx.close()
}

// ImportRequest describes a chain to add to the catalog.
type ImportRequest struct {
	// Source is the chain stream, raw or zstd.
	Source io.Reader

	Filename     string
	User         string
	GraphHash    string
	GitCommit    string
	GitRepoClean *bool

	StartTimestamp int64
	EndTimestamp   int64

	// Compression selects how the chain file is stored.
	Compression domain.Compression
	// Extreme records whether the chain was encoded with relabelling.
	Extreme    bool
	Attributes map[string]string
}

// Import validates the chain in req.Source, stores it and records its
// metadata. The stream is fully decoded on the way in, so a truncated or
// corrupt chain is rejected before anything is committed.
func (c *Catalog) Import(ctx context.Context, req *ImportRequest) (*domain.Chain, error) {
	if req == nil || req.Source == nil {
		return nil, domain.ErrBadRequest.WithDetails("source is required")
	}

	chain, err := domain.NewChain(req.Filename, req.User)
	if err != nil {
		return nil, err
	}
	chain.GraphHash = req.GraphHash
	chain.GitCommit = req.GitCommit
	chain.GitRepoClean = req.GitRepoClean
	chain.StartTimestamp = req.StartTimestamp
	chain.EndTimestamp = req.EndTimestamp
	chain.Extreme = req.Extreme
	for k, v := range req.Attributes {
		chain.Attributes[k] = v
	}
	compression, err := domain.ParseCompression(string(req.Compression))
	if err != nil {
		return nil, err
	}
	chain.Compression = compression
	if chain.Filename == "" {
		chain.Filename = chain.ID + chainfile.FileExtension
	}
	if err := chain.Validate(); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(c.cfg.chainsDir(), ".import-*")
	if err != nil {
		return nil, domain.ErrStorage.WithCause(err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := c.copyChain(ctx, tmp, req.Source, chain); err != nil {
		return nil, err
	}
	if err := tmp.Sync(); err != nil {
		return nil, domain.ErrStorage.WithCause(err)
	}
	info, err := tmp.Stat()
	if err != nil {
		return nil, domain.ErrStorage.WithCause(err)
	}
	chain.Size = info.Size()
	if err := tmp.Close(); err != nil {
		return nil, domain.ErrStorage.WithCause(err)
	}

	if err := os.Rename(tmpPath, c.Path(chain.ID)); err != nil {
		return nil, domain.ErrStorage.WithCause(err)
	}
	if err := c.put(chain); err != nil {
		os.Remove(c.Path(chain.ID))
		return nil, err
	}
	committed = true

	c.logger.Info("chain imported",
		"chain_id", chain.ID,
		"user", chain.User,
		"steps", chain.Steps,
		"size", chain.Size)
	return chain, nil
}

// copyChain decodes src while writing it to dst, filling in the sha256,
// step and node counts of chain. The hash covers the raw record stream.
func (c *Catalog) copyChain(ctx context.Context, dst io.Writer, src io.Reader, chain *domain.Chain) error {
	raw, _, err := chainfile.NewReader(src)
	if err != nil {
		return domain.ErrBadRequest.WithCause(err)
	}
	defer raw.Close()

	out, err := chainfile.NewWriter(dst, chain.Compression)
	if err != nil {
		return domain.ErrInternal.WithCause(err)
	}

	hasher := sha256.New()
	r := codec.NewReader(io.TeeReader(raw, io.MultiWriter(hasher, out)), false)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.Next(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			var de *domain.DomainError
			if errors.As(err, &de) {
				return err
			}
			return domain.ErrStorage.WithCause(err)
		}
	}
	if err := out.Close(); err != nil {
		return domain.ErrStorage.WithCause(err)
	}

	chain.Steps = r.Decoder().Records()
	chain.Nodes = r.Decoder().Snapshot().Len()
	chain.SHA256 = hex.EncodeToString(hasher.Sum(nil))
	return nil
}

func (c *Catalog) put(chain *domain.Chain) error {
	data, err := json.Marshal(chain)
	if err != nil {
		return domain.ErrInternal.WithCause(err)
	}
	err = c.idx.update(func(txn *badger.Txn) error {
		if err := txn.Set(chainKey(chain.ID), data); err != nil {
			return err
		}
		for _, key := range indexKeys(chain) {
			if err := txn.Set(key, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.ErrStorage.WithCause(err)
	}
	return nil
}

// Get returns the metadata of chain id.
func (c *Catalog) Get(ctx context.Context, id string) (*domain.Chain, error) {
	norm := domain.NormalizeChainID(id)
	if norm == "" {
		return nil, domain.ErrInvalidChainID.WithDetails(id)
	}
	data, err := c.idx.get(chainKey(norm))
	if err != nil {
		if errors.Is(err, errKeyNotFound) {
			return nil, domain.ErrChainNotFound.WithDetails(norm)
		}
		return nil, domain.ErrStorage.WithCause(err)
	}
	var chain domain.Chain
	if err := json.Unmarshal(data, &chain); err != nil {
		return nil, domain.ErrStorage.WithDetails("corrupt metadata for " + norm).WithCause(err)
	}
	return &chain, nil
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	User      string
	GraphHash string
	// Limit caps the number of results; zero means no limit.
	Limit int
}

// List returns chains matching f, oldest first.
func (c *Catalog) List(ctx context.Context, f Filter) ([]*domain.Chain, error) {
	var ids []string
	switch {
	case f.User != "":
		prefix := []byte(prefixUser + f.User + "/")
		err := c.idx.scan(ctx, prefix, func(key, _ []byte) error {
			ids = append(ids, string(key[len(prefix):]))
			return nil
		})
		if err != nil {
			return nil, domain.ErrStorage.WithCause(err)
		}
	case f.GraphHash != "":
		prefix := []byte(prefixGraph + f.GraphHash + "/")
		err := c.idx.scan(ctx, prefix, func(key, _ []byte) error {
			ids = append(ids, string(key[len(prefix):]))
			return nil
		})
		if err != nil {
			return nil, domain.ErrStorage.WithCause(err)
		}
	default:
		var out []*domain.Chain
		err := c.idx.scan(ctx, []byte(prefixChain), func(_, value []byte) error {
			var chain domain.Chain
			if err := json.Unmarshal(value, &chain); err != nil {
				return err
			}
			out = append(out, &chain)
			if f.Limit > 0 && len(out) >= f.Limit {
				return errStop
			}
			return nil
		})
		if err != nil {
			return nil, domain.ErrStorage.WithCause(err)
		}
		return out, nil
	}

	out := make([]*domain.Chain, 0, len(ids))
	for _, id := range ids {
		chain, err := c.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if f.GraphHash != "" && chain.GraphHash != f.GraphHash {
			continue
		}
		out = append(out, chain)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// Open returns the raw record stream of chain id along with its metadata.
func (c *Catalog) Open(ctx context.Context, id string) (io.ReadCloser, *domain.Chain, error) {
	chain, err := c.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := chainfile.Open(c.Path(chain.ID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, domain.ErrChainNotFound.WithDetails("file missing for " + chain.ID)
		}
		return nil, nil, domain.ErrStorage.WithCause(err)
	}
	return rc, chain, nil
}

// OpenFile returns the stored chain file as is, without decompressing.
func (c *Catalog) OpenFile(ctx context.Context, id string) (*os.File, *domain.Chain, error) {
	chain, err := c.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(c.Path(chain.ID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, domain.ErrChainNotFound.WithDetails("file missing for " + chain.ID)
		}
		return nil, nil, domain.ErrStorage.WithCause(err)
	}
	return f, chain, nil
}

// Delete removes chain id and its file.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	chain, err := c.Get(ctx, id)
	if err != nil {
		return err
	}
	err = c.idx.update(func(txn *badger.Txn) error {
		if err := txn.Delete(chainKey(chain.ID)); err != nil {
			return err
		}
		for _, key := range indexKeys(chain) {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.ErrStorage.WithCause(err)
	}
	if err := os.Remove(c.Path(chain.ID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return domain.ErrStorage.WithCause(err)
	}
	c.logger.Info("chain deleted", "chain_id", chain.ID)
	return nil
}

// Stats returns the number of chains and their total stored size. It
// satisfies metric.CatalogStats.
func (c *Catalog) Stats() (int, int64, error) {
	var (
		count int
		size  int64
	)
	err := c.idx.scan(context.Background(), []byte(prefixChain), func(_, value []byte) error {
		var chain domain.Chain
		if err := json.Unmarshal(value, &chain); err != nil {
			return err
		}
		count++
		size += chain.Size
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return count, size, nil
}

// Backup writes a Badger backup of the metadata index to w.
func (c *Catalog) Backup(w io.Writer) error {
	return c.idx.backup(w)
}

// Path returns the location of the file for chain id.
func (c *Catalog) Path(id string) string {
	return filepath.Join(c.cfg.chainsDir(), strings.ToLower(id)+chainfile.FileExtension)
}

func chainKey(id string) []byte {
	return []byte(prefixChain + id)
}

func indexKeys(chain *domain.Chain) [][]byte {
	keys := [][]byte{[]byte(prefixUser + chain.User + "/" + chain.ID)}
	if chain.GraphHash != "" {
		keys = append(keys, []byte(prefixGraph+chain.GraphHash+"/"+chain.ID))
	}
	return keys
}
