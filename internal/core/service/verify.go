package service

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/spaolacci/murmur3"

	"github.com/yndnr/pcompress-go/internal/codec"
	"github.com/yndnr/pcompress-go/internal/core/domain"
	"github.com/yndnr/pcompress-go/internal/textio"
)

// VerifyRequest contains parameters for checking a chain against the
// snapshots it was encoded from.
type VerifyRequest struct {
	Chain     io.Reader
	Snapshots io.Reader
	// UpToRelabel compares groupings instead of labels, for chains encoded
	// with the relabel search.
	UpToRelabel bool
}

// VerifyResult reports the outcome of a verify pass.
type VerifyResult struct {
	Steps int  `json:"steps" yaml:"steps"`
	OK    bool `json:"ok" yaml:"ok"`
	// Mismatch is the first step whose fingerprints differ, or -1.
	Mismatch int    `json:"mismatch" yaml:"mismatch"`
	Reason   string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Want     uint64 `json:"want,omitempty" yaml:"want,omitempty"`
	Got      uint64 `json:"got,omitempty" yaml:"got,omitempty"`
}

// Verify replays a chain and compares each step with the matching input
// snapshot using murmur3 fingerprints. A replayed snapshot shorter than its
// input is a mismatch. A longer one is allowed when the extra nodes are 0,
// since the decoder keeps nodes an earlier, longer step introduced.
func (s *ChainService) Verify(ctx context.Context, req *VerifyRequest) (*VerifyResult, error) {
	if req == nil || req.Chain == nil || req.Snapshots == nil {
		return nil, domain.ErrBadRequest.WithDetails("chain and snapshots are required")
	}

	in := textio.NewSnapshotReader(req.Snapshots)
	r := codec.NewReader(req.Chain, false)
	res := &VerifyResult{OK: true, Mismatch: -1}

	fail := func(step int, reason string) {
		res.OK = false
		res.Mismatch = step
		res.Reason = reason
	}

	err := s.walk(ctx, r, func(r *codec.Reader) error {
		step := r.Index()
		want, err := in.Next()
		if errors.Is(err, io.EOF) {
			fail(step, "chain has more steps than input")
			return errStopWalk
		}
		if err != nil {
			return err
		}

		got := r.Snapshot()
		res.Steps++
		if got.Len() < want.Len() {
			fail(step, "chain is missing nodes")
			return errStopWalk
		}
		wf, gf := fingerprintPair(want, got, req.UpToRelabel)
		if wf != gf {
			fail(step, "snapshot differs")
			res.Want, res.Got = wf, gf
			return errStopWalk
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.OK {
		if _, err := in.Next(); err == nil {
			fail(res.Steps, "input has more steps than chain")
		} else if !errors.Is(err, io.EOF) {
			return nil, err
		}
	}

	if !res.OK {
		s.log.Warn("chain verification failed",
			"step", res.Mismatch,
			"reason", res.Reason)
	}
	return res, nil
}

// fingerprintPair pads the shorter snapshot with label 0 and returns both
// fingerprints.
func fingerprintPair(a, b domain.Snapshot, canonical bool) (uint64, uint64) {
	n := max(len(a), len(b))
	a, b = a.Clone(), b.Clone()
	a.Grow(n)
	b.Grow(n)
	if canonical {
		a, b = a.Canonical(), b.Canonical()
	}
	return Fingerprint(a), Fingerprint(b)
}

// Fingerprint returns the 64-bit murmur3 hash of the snapshot labels.
func Fingerprint(s domain.Snapshot) uint64 {
	h := murmur3.New64()
	var buf [4]byte
	for _, label := range s {
		binary.BigEndian.PutUint32(buf[:], uint32(label))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

// String describes the outcome for humans.
func (r *VerifyResult) String() string {
	if r.OK {
		return fmt.Sprintf("ok: %d steps match", r.Steps)
	}
	return fmt.Sprintf("mismatch at step %d: %s", r.Mismatch, r.Reason)
}
