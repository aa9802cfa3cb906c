package service

import (
	"context"
	"fmt"
	"io"

	"github.com/yndnr/pcompress-go/internal/codec"
	"github.com/yndnr/pcompress-go/internal/core/domain"
	"github.com/yndnr/pcompress-go/internal/textio"
)

// ReplayRequest contains parameters for replaying a chain.
type ReplayRequest struct {
	// Input is the binary chain.
	Input io.Reader
	// Output receives one JSON line per emitted record.
	Output io.Writer
	// Location selects a single zero-based record when greater than zero.
	// Zero emits every record.
	Location int
	// Diff emits deltas instead of full snapshots.
	Diff bool
	// Flush writes each line through as soon as its record is decoded.
	// Set it when the input is still growing.
	Flush bool
}

// ReplayResult summarizes a replay pass.
type ReplayResult struct {
	// Records is the number of records read.
	Records int
	// Emitted is the number of lines written.
	Emitted int
}

// Replay decodes a chain and writes snapshots or deltas as JSON lines.
//
// With Location k > 0 only record k is written and reading stops right
// after it. A chain with k or fewer records yields ErrStepNotFound.
//
// Lines of records decoded before an error, including cancellation, are
// written out before the error is returned.
func (s *ChainService) Replay(ctx context.Context, req *ReplayRequest) (*ReplayResult, error) {
	if req == nil || req.Input == nil || req.Output == nil {
		return nil, domain.ErrBadRequest.WithDetails("input and output are required")
	}
	if req.Location < 0 {
		return nil, domain.ErrBadRequest.WithDetails(fmt.Sprintf("negative location %d", req.Location))
	}

	out := textio.NewRecordWriter(req.Output)
	r := codec.NewReader(req.Input, req.Diff)
	res := &ReplayResult{}

	err := s.walk(ctx, r, func(r *codec.Reader) error {
		res.Records++
		idx := r.Index()
		if req.Location > 0 && idx != req.Location {
			return nil
		}

		var err error
		if req.Diff {
			err = out.WriteDelta(r.Delta())
		} else {
			err = out.WriteSnapshot(r.Snapshot())
		}
		if err != nil {
			return err
		}
		res.Emitted++
		if req.Flush {
			if err := out.Flush(); err != nil {
				return err
			}
		}

		if req.Location > 0 {
			return errStopWalk
		}
		return nil
	})
	if err != nil {
		if ferr := out.Flush(); ferr != nil {
			s.log.Warn("flush replay output", "error", ferr)
		}
		return nil, err
	}
	if err := out.Flush(); err != nil {
		return nil, err
	}
	if req.Location > 0 && res.Emitted == 0 {
		return nil, domain.ErrStepNotFound.WithDetails(
			fmt.Sprintf("location %d, chain has %d records", req.Location, res.Records))
	}
	return res, nil
}
