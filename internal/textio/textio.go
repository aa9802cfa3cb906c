// Package textio reads and writes the line-oriented JSON forms of
// snapshots and deltas.
//
// Input is one JSON integer array per line, the array position being the
// node id. Output is one compact JSON array per line: a snapshot such as
// [0,1,1] or a delta such as [[],[1]].
package textio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/yndnr/pcompress-go/internal/core/domain"
)

// Buffer sizes for line IO.
const (
	DefaultBufferSize = 1 << 20 // 1MB
	MaxLineSize       = 64 << 20
)

// SnapshotReader parses snapshots from JSON lines.
type SnapshotReader struct {
	sc   *bufio.Scanner
	line int
}

// NewSnapshotReader returns a reader over r that validates every snapshot.
func NewSnapshotReader(r io.Reader) *SnapshotReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, DefaultBufferSize), MaxLineSize)
	return &SnapshotReader{sc: sc}
}

// Line returns the 1-based number of the last line read.
func (r *SnapshotReader) Line() int {
	return r.line
}

// Next returns the next snapshot. Blank lines are skipped. It returns
// io.EOF after the last snapshot.
func (r *SnapshotReader) Next() (domain.Snapshot, error) {
	for r.sc.Scan() {
		r.line++
		raw := bytes.TrimSpace(r.sc.Bytes())
		if len(raw) == 0 {
			continue
		}

		var labels []int
		if err := json.Unmarshal(raw, &labels); err != nil || labels == nil {
			if err == nil {
				err = errors.New("not an array")
			}
			return nil, domain.ErrMalformedInput.
				WithDetails(fmt.Sprintf("line %d", r.line)).
				WithCause(err)
		}
		s := domain.Snapshot(labels)
		if err := s.Validate(); err != nil {
			var de *domain.DomainError
			if errors.As(err, &de) {
				return nil, de.WithDetails(fmt.Sprintf("line %d: %s", r.line, de.Details))
			}
			return nil, err
		}
		return s, nil
	}
	if err := r.sc.Err(); err != nil {
		return nil, fmt.Errorf("textio: read line %d: %w", r.line+1, err)
	}
	return nil, io.EOF
}

// RecordWriter writes snapshots or deltas as compact JSON lines.
type RecordWriter struct {
	w   *bufio.Writer
	buf []byte
	n   int
}

// NewRecordWriter returns a writer over w with a 1MB buffer.
func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{w: bufio.NewWriterSize(w, DefaultBufferSize)}
}

// WriteSnapshot writes s as one line.
func (w *RecordWriter) WriteSnapshot(s domain.Snapshot) error {
	w.buf = append(s.AppendJSON(w.buf[:0]), '\n')
	return w.write()
}

// WriteDelta writes d as one line.
func (w *RecordWriter) WriteDelta(d domain.Delta) error {
	w.buf = append(d.AppendJSON(w.buf[:0]), '\n')
	return w.write()
}

func (w *RecordWriter) write() error {
	if _, err := w.w.Write(w.buf); err != nil {
		return fmt.Errorf("textio: write line %d: %w", w.n+1, err)
	}
	w.n++
	return nil
}

// Lines returns the number of lines written.
func (w *RecordWriter) Lines() int {
	return w.n
}

// Flush writes buffered lines to the underlying writer.
func (w *RecordWriter) Flush() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("textio: flush: %w", err)
	}
	return nil
}
