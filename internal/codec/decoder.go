package codec

import (
	"fmt"

	"github.com/yndnr/pcompress-go/internal/core/domain"
)

// State is the position of the decoder within the byte stream.
type State int

const (
	// AwaitPairFirst expects the high byte of a word.
	AwaitPairFirst State = iota
	// AwaitPairSecond expects the low byte of a word.
	AwaitPairSecond
	// AwaitSkipCount expects the single count byte after SKIP_ESCAPE.
	AwaitSkipCount
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case AwaitPairFirst:
		return "await_pair_first"
	case AwaitPairSecond:
		return "await_pair_second"
	case AwaitSkipCount:
		return "await_skip_count"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Decoder rebuilds snapshots from a chain one byte at a time.
//
// The snapshot is cumulative over the whole chain. The delta, when
// tracked, holds only the nodes of the current record; it is cleared
// lazily when the next record starts, so it stays readable after Consume
// reports a completed record.
type Decoder struct {
	state  State
	high   byte
	cursor int

	snapshot   domain.Snapshot
	delta      domain.Delta
	trackDelta bool

	// pending is set after END_OF_RECORD until the next record starts.
	pending bool
	// open is set while a record has consumed bytes but is not yet closed.
	open      bool
	groupOpen bool
	records   int
	stats     RecordStats
	last      RecordStats
}

// NewDecoder returns a decoder. When trackDelta is set the decoder also
// collects the per-record delta.
func NewDecoder(trackDelta bool) *Decoder {
	return &Decoder{
		trackDelta: trackDelta,
		stats:      RecordStats{MaxPartition: -1},
	}
}

// Consume feeds one byte to the decoder. It reports true when b completed
// a record.
func (d *Decoder) Consume(b byte) (bool, error) {
	switch d.state {
	case AwaitPairFirst:
		if d.pending {
			d.beginRecord()
		}
		d.high = b
		d.open = true
		d.state = AwaitPairSecond
		d.stats.Bytes++
		return false, nil

	case AwaitPairSecond:
		word := uint16(d.high)<<8 | uint16(b)
		d.stats.Bytes++
		d.state = AwaitPairFirst
		switch word {
		case EndOfRecord:
			d.endRecord()
			return true, nil
		case SkipEscape:
			d.state = AwaitSkipCount
			return false, nil
		default:
			d.assign(int(word))
			return false, nil
		}

	case AwaitSkipCount:
		d.stats.Bytes++
		if b == 0 {
			return false, domain.ErrZeroSkip.WithDetails(fmt.Sprintf("record %d", d.records))
		}
		d.cursor += int(b)
		d.groupOpen = false
		d.stats.Skips++
		d.state = AwaitPairFirst
		return false, nil

	default:
		return false, fmt.Errorf("codec: invalid decoder state %v", d.state)
	}
}

func (d *Decoder) assign(node int) {
	d.snapshot.Set(node, d.cursor)
	if d.trackDelta {
		d.delta.Add(d.cursor, node)
	}
	d.stats.Nodes++
	d.stats.MaxPartition = max(d.stats.MaxPartition, d.cursor)
	if !d.groupOpen {
		d.groupOpen = true
		d.stats.Groups++
	}
}

func (d *Decoder) endRecord() {
	d.last = d.stats
	d.records++
	d.cursor = 0
	d.open = false
	d.groupOpen = false
	d.pending = true
}

func (d *Decoder) beginRecord() {
	if d.trackDelta {
		d.delta.Reset()
	}
	d.stats = RecordStats{MaxPartition: -1}
	d.pending = false
}

// Finish reports whether the stream ended cleanly on a record boundary.
func (d *Decoder) Finish() error {
	if d.state != AwaitPairFirst || d.open {
		return domain.ErrTruncatedStream.WithDetails(
			fmt.Sprintf("record %d ended in state %v", d.records, d.state))
	}
	return nil
}

// State returns the current decoder state.
func (d *Decoder) State() State {
	return d.state
}

// Cursor returns the partition that the next node word is assigned to.
func (d *Decoder) Cursor() int {
	return d.cursor
}

// Records returns the number of completed records.
func (d *Decoder) Records() int {
	return d.records
}

// Snapshot returns a copy of the cumulative snapshot.
func (d *Decoder) Snapshot() domain.Snapshot {
	if d.snapshot == nil {
		return domain.Snapshot{}
	}
	return d.snapshot.Clone()
}

// Delta returns a copy of the delta of the most recent record. It is
// empty when delta tracking is off.
func (d *Decoder) Delta() domain.Delta {
	if d.delta == nil {
		return domain.Delta{}
	}
	return d.delta.Clone()
}

// LastStats returns the stats of the most recently completed record.
func (d *Decoder) LastStats() RecordStats {
	return d.last
}
