package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/yndnr/pcompress-go/internal/codec"
	"github.com/yndnr/pcompress-go/internal/core/diff"
	"github.com/yndnr/pcompress-go/internal/core/domain"
	"github.com/yndnr/pcompress-go/internal/textio"
)

// EncodeRequest contains parameters for encoding a chain.
type EncodeRequest struct {
	// Input holds one JSON snapshot per line.
	Input io.Reader
	// Output receives the binary chain.
	Output io.Writer
	// Extreme enables the two-label relabel search.
	Extreme bool
}

// EncodeResult summarizes an encode pass.
type EncodeResult struct {
	Steps        int
	Nodes        int
	Changed      int
	RelabelSwaps int
	Stats        codec.RecordStats
}

// Encode reads snapshots and writes one record per snapshot.
//
// The first record carries every node. Each later record carries the
// nodes that changed since the previous snapshot, plus any node past the
// previous snapshot's end. With
// Extreme set, a relabelled snapshot replaces the input snapshot as the
// baseline for the next step, so replay reproduces the relabelled labels.
func (s *ChainService) Encode(ctx context.Context, req *EncodeRequest) (*EncodeResult, error) {
	if req == nil || req.Input == nil || req.Output == nil {
		return nil, domain.ErrBadRequest.WithDetails("input and output are required")
	}

	in := textio.NewSnapshotReader(req.Input)
	enc := codec.NewEncoder(req.Output)
	progress := newProgress()

	res := &EncodeResult{}
	var prev domain.Snapshot

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, err := in.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}

		d, _ := diff.Compute(prev, next)
		if req.Extreme {
			var swapped bool
			next, d, swapped = diff.Relabel(prev, next, d)
			if swapped {
				res.RelabelSwaps++
				s.metrics.RelabelSwaps.Inc()
			}
		}

		stats, err := enc.WriteDelta(d)
		if err != nil {
			return nil, fmt.Errorf("encode step %d (line %d): %w", res.Steps, in.Line(), err)
		}

		res.Steps++
		res.Changed += stats.Nodes
		res.Nodes = max(res.Nodes, len(next))
		s.metrics.RecordsEncoded.Inc()
		s.metrics.NodesChanged.Add(float64(stats.Nodes))
		s.metrics.SkipEscapes.Add(float64(stats.Skips))
		s.metrics.BytesEncoded.Add(float64(stats.Bytes))

		progress.Do(func() {
			s.log.Info("encoding chain", "steps", res.Steps, "bytes", enc.Totals().Bytes)
		})
		prev = next
	}

	if err := enc.Flush(); err != nil {
		return nil, err
	}
	res.Stats = enc.Totals()

	s.log.Debug("chain encoded",
		"steps", res.Steps,
		"nodes", res.Nodes,
		"changed", res.Changed,
		"relabel_swaps", res.RelabelSwaps,
		"bytes", res.Stats.Bytes)

	return res, nil
}
