package service

import (
	"context"
	"errors"
	"io"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/pcompress-go/internal/codec"
	"github.com/yndnr/pcompress-go/internal/telemetry/logger"
	"github.com/yndnr/pcompress-go/internal/telemetry/metric"
)

// ProgressInterval is the minimum gap between progress log lines during a
// long pass.
const ProgressInterval = 5 * time.Second

// errStopWalk ends a walk early without reporting an error.
var errStopWalk = errors.New("service: stop walk")

// ChainService encodes, replays, verifies and inspects chains.
//
// It is stateless apart from its logger and metrics and can be shared.
type ChainService struct {
	log     logger.Logger
	metrics *metric.Registry
}

// NewChainService creates a ChainService. A nil registry selects the
// global one and a nil logger the default one.
func NewChainService(log logger.Logger, metrics *metric.Registry) *ChainService {
	if log == nil {
		log = logger.Default()
	}
	if metrics == nil {
		metrics = metric.Global()
	}
	return &ChainService{
		log:     log,
		metrics: metrics,
	}
}

func newProgress() *rate.Sometimes {
	return &rate.Sometimes{Interval: ProgressInterval}
}

// walk decodes records from r and calls fn after each one until the stream
// ends, fn returns errStopWalk, or ctx is cancelled.
func (s *ChainService) walk(ctx context.Context, r *codec.Reader, fn func(*codec.Reader) error) error {
	progress := newProgress()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.Next(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		s.metrics.RecordsDecoded.Inc()
		progress.Do(func() {
			s.log.Info("decoding chain", "records", r.Index()+1)
		})
		if err := fn(r); err != nil {
			if errors.Is(err, errStopWalk) {
				return nil
			}
			return err
		}
	}
}
