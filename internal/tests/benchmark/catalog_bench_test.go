package benchmark

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/yndnr/pcompress-go/internal/core/domain"
	"github.com/yndnr/pcompress-go/internal/storage/catalog"
)

func openCatalog(b *testing.B) *catalog.Catalog {
	b.Helper()
	cfg := catalog.DefaultConfig(b.TempDir())
	cfg.Badger.GCInterval = "1h"
	cfg.Badger.SyncWrites = false

	c, err := catalog.Open(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		b.Fatalf("Failed to open catalog: %v", err)
	}
	b.Cleanup(func() { c.Close() })
	return c
}

// BenchmarkCatalogImport benchmarks importing a chain in each container.
func BenchmarkCatalogImport(b *testing.B) {
	chain := encodeChain(b, randomWalk(10000, 16, chainSteps))

	for _, compression := range []domain.Compression{domain.CompressionNone, domain.CompressionZstd} {
		b.Run(string(compression), func(b *testing.B) {
			c := openCatalog(b)
			ctx := context.Background()
			b.SetBytes(int64(len(chain)))

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				_, err := c.Import(ctx, &catalog.ImportRequest{
					Source:      bytes.NewReader(chain),
					User:        "bench-user",
					Compression: compression,
				})
				if err != nil {
					b.Fatalf("Import failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkCatalogList benchmarks indexed listing by user.
func BenchmarkCatalogList(b *testing.B) {
	chain := encodeChain(b, randomWalk(100, 4, 4))
	c := openCatalog(b)
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		user := "user-a"
		if i%5 == 0 {
			user = "user-b"
		}
		if _, err := c.Import(ctx, &catalog.ImportRequest{Source: bytes.NewReader(chain), User: user}); err != nil {
			b.Fatalf("Import failed: %v", err)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		list, err := c.List(ctx, catalog.Filter{User: "user-b"})
		if err != nil {
			b.Fatalf("List failed: %v", err)
		}
		if len(list) != 100 {
			b.Fatalf("List returned %d chains, want 100", len(list))
		}
	}
}
