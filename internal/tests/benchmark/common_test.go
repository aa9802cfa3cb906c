package benchmark

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"testing"

	"github.com/yndnr/pcompress-go/internal/core/domain"
	"github.com/yndnr/pcompress-go/internal/core/service"
	"github.com/yndnr/pcompress-go/internal/telemetry/logger"
	"github.com/yndnr/pcompress-go/internal/telemetry/metric"
)

// NodeCounts defines the snapshot widths for benchmarking.
var NodeCounts = []int{1000, 10000, 50000}

// SmallNodeCounts for quick benchmarks.
var SmallNodeCounts = []int{100, 1000}

// chainSteps is the number of snapshots in every generated chain.
const chainSteps = 64

// newService returns a chain service with its own metrics registry.
func newService() *service.ChainService {
	return service.NewChainService(logger.Discard(), metric.NewRegistry())
}

// randomWalk returns steps snapshots of n nodes over parts partitions.
// Each step moves about one percent of the nodes, which is the shape of a
// partitioner converging.
func randomWalk(n, parts, steps int) []domain.Snapshot {
	rng := rand.New(rand.NewSource(int64(n)))
	cur := make(domain.Snapshot, n)
	for i := range cur {
		cur[i] = rng.Intn(parts)
	}
	out := make([]domain.Snapshot, 0, steps)
	for s := 0; s < steps; s++ {
		next := cur.Clone()
		for m := 0; m < n/100+1; m++ {
			next[rng.Intn(n)] = rng.Intn(parts)
		}
		out = append(out, next)
		cur = next
	}
	return out
}

// jsonLines renders snapshots as encoder input.
func jsonLines(snaps []domain.Snapshot) []byte {
	var buf []byte
	for _, s := range snaps {
		buf = s.AppendJSON(buf)
		buf = append(buf, '\n')
	}
	return buf
}

// encodeChain encodes snapshots and returns the binary chain.
func encodeChain(b *testing.B, snaps []domain.Snapshot) []byte {
	b.Helper()
	var out bytes.Buffer
	_, err := newService().Encode(context.Background(), &service.EncodeRequest{
		Input:  bytes.NewReader(jsonLines(snaps)),
		Output: &out,
	})
	if err != nil {
		b.Fatalf("Encode failed: %v", err)
	}
	return out.Bytes()
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithNodeCounts runs a benchmark function with various snapshot widths.
func runWithNodeCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("nodes_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
