package codec

import (
	"bufio"
	"fmt"
	"io"

	"github.com/yndnr/pcompress-go/internal/core/domain"
)

// AppendRecord appends the wire form of d to dst.
//
// Partitions are written in ascending order and empty ones are skipped.
// The cursor starts at 0; a non-empty partition p at cursor c is preceded
// by escapes totalling p-c. On error dst is returned unchanged.
func AppendRecord(dst []byte, d domain.Delta) ([]byte, RecordStats, error) {
	start := len(dst)
	stats := RecordStats{MaxPartition: -1}
	cursor := 0

	for partition, nodes := range d {
		if len(nodes) == 0 {
			continue
		}
		if partition != cursor {
			for gap := partition - cursor; gap > 0; {
				n := min(gap, MaxSkip)
				dst = appendWord(dst, SkipEscape)
				dst = append(dst, byte(n))
				gap -= n
				stats.Skips++
			}
			cursor = partition
		}
		for _, node := range nodes {
			if node < 0 || node > MaxNodeID {
				return dst[:start], RecordStats{}, domain.ErrReservedNodeID.WithDetails(
					fmt.Sprintf("node %d in partition %d", node, partition))
			}
			dst = appendWord(dst, uint16(node))
		}
		stats.Nodes += len(nodes)
		stats.Groups++
		stats.MaxPartition = partition
	}

	dst = appendWord(dst, EndOfRecord)
	stats.Bytes = len(dst) - start
	return dst, stats, nil
}

func appendWord(dst []byte, w uint16) []byte {
	return append(dst, byte(w>>8), byte(w))
}

// Encoder writes records to a buffered stream.
type Encoder struct {
	w   *bufio.Writer
	buf []byte

	records int
	total   RecordStats
}

// NewEncoder returns an encoder writing to w through a 1MB buffer.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:     bufio.NewWriterSize(w, DefaultBufferSize),
		total: RecordStats{MaxPartition: -1},
	}
}

// WriteDelta encodes d as one record.
func (e *Encoder) WriteDelta(d domain.Delta) (RecordStats, error) {
	buf, stats, err := AppendRecord(e.buf[:0], d)
	if err != nil {
		return RecordStats{}, fmt.Errorf("codec: record %d: %w", e.records, err)
	}
	e.buf = buf
	if _, err := e.w.Write(buf); err != nil {
		return RecordStats{}, fmt.Errorf("codec: write record %d: %w", e.records, err)
	}
	e.records++
	e.total.Add(stats)
	return stats, nil
}

// Records returns the number of records written.
func (e *Encoder) Records() int {
	return e.records
}

// Totals returns the stats accumulated over every record written.
func (e *Encoder) Totals() RecordStats {
	return e.total
}

// Flush writes any buffered data to the underlying writer.
func (e *Encoder) Flush() error {
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("codec: flush: %w", err)
	}
	return nil
}
