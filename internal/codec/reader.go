package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/yndnr/pcompress-go/internal/core/domain"
)

// Reader decodes records from a byte stream.
type Reader struct {
	r   io.ByteReader
	dec *Decoder
}

// NewReader returns a reader over r. Readers that are not already
// io.ByteReaders are wrapped in a 1MB buffer.
func NewReader(r io.Reader, trackDelta bool) *Reader {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReaderSize(r, DefaultBufferSize)
	}
	return &Reader{
		r:   br,
		dec: NewDecoder(trackDelta),
	}
}

// Next advances to the end of the next record. It returns io.EOF when the
// stream ends cleanly on a record boundary.
func (r *Reader) Next() error {
	for {
		b, err := r.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if ferr := r.dec.Finish(); ferr != nil {
					return ferr
				}
				return io.EOF
			}
			return fmt.Errorf("codec: read record %d: %w", r.dec.Records(), err)
		}
		done, err := r.dec.Consume(b)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Index returns the zero-based index of the record Next just completed.
func (r *Reader) Index() int {
	return r.dec.Records() - 1
}

// Snapshot returns a copy of the cumulative snapshot after the current
// record.
func (r *Reader) Snapshot() domain.Snapshot {
	return r.dec.Snapshot()
}

// Delta returns a copy of the current record's delta.
func (r *Reader) Delta() domain.Delta {
	return r.dec.Delta()
}

// Stats returns the stats of the current record.
func (r *Reader) Stats() RecordStats {
	return r.dec.LastStats()
}

// Decoder exposes the underlying decoder.
func (r *Reader) Decoder() *Decoder {
	return r.dec
}
