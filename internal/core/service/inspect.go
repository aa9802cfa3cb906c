package service

import (
	"context"
	"io"

	"github.com/yndnr/pcompress-go/internal/codec"
	"github.com/yndnr/pcompress-go/internal/core/domain"
)

// ChainStats describes the content of a chain.
type ChainStats struct {
	Records      int   `json:"records" yaml:"records"`
	Bytes        int64 `json:"bytes" yaml:"bytes"`
	Nodes        int   `json:"nodes" yaml:"nodes"`
	MaxPartition int   `json:"max_partition" yaml:"max_partition"`
	Changed      int   `json:"changed" yaml:"changed"`
	Skips        int   `json:"skips" yaml:"skips"`
	EmptyRecords int   `json:"empty_records" yaml:"empty_records"`

	LargestRecord      int `json:"largest_record" yaml:"largest_record"`
	LargestRecordBytes int `json:"largest_record_bytes" yaml:"largest_record_bytes"`
}

// Inspect scans a chain and collects its statistics.
func (s *ChainService) Inspect(ctx context.Context, chain io.Reader) (*ChainStats, error) {
	if chain == nil {
		return nil, domain.ErrBadRequest.WithDetails("chain is required")
	}

	r := codec.NewReader(chain, false)
	st := &ChainStats{MaxPartition: -1, LargestRecord: -1}

	err := s.walk(ctx, r, func(r *codec.Reader) error {
		rs := r.Stats()
		st.Records++
		st.Bytes += int64(rs.Bytes)
		st.Changed += rs.Nodes
		st.Skips += rs.Skips
		st.MaxPartition = max(st.MaxPartition, rs.MaxPartition)
		if rs.Nodes == 0 {
			st.EmptyRecords++
		}
		if rs.Bytes > st.LargestRecordBytes {
			st.LargestRecord = r.Index()
			st.LargestRecordBytes = rs.Bytes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Node ids are only ever set, so the decoder's snapshot length is the
	// highest node id seen plus one.
	st.Nodes = r.Decoder().Snapshot().Len()
	return st, nil
}
