// Package chainfile stores chains on disk.
//
// A chain file is either the raw record stream or the same stream wrapped
// in a single zstd frame. Readers detect the zstd magic and decompress
// transparently, so callers never need to know how a file was written.
package chainfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/yndnr/pcompress-go/internal/core/domain"
)

// File format constants.
const (
	FileExtension   = ".chain"
	DefaultFilePerm = 0640
	DefaultDirPerm  = 0750
)

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

var errUnknownCompression = errors.New("chainfile: unknown compression")

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NewWriter wraps w according to c. Close must be called to flush a zstd
// frame; it does not close w.
func NewWriter(w io.Writer, c domain.Compression) (io.WriteCloser, error) {
	switch c {
	case "", domain.CompressionNone:
		return nopWriteCloser{w}, nil
	case domain.CompressionZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return nil, fmt.Errorf("chainfile: zstd writer: %w", err)
		}
		return enc, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownCompression, c)
	}
}

// NewReader returns a reader over the raw record stream in r and the
// compression it detected.
func NewReader(r io.Reader) (io.ReadCloser, domain.Compression, error) {
	br := bufio.NewReaderSize(r, 64<<10)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, "", fmt.Errorf("chainfile: sniff header: %w", err)
	}
	if !bytes.Equal(head, zstdMagic) {
		return io.NopCloser(br), domain.CompressionNone, nil
	}

	dec, err := zstd.NewReader(br)
	if err != nil {
		return nil, "", fmt.Errorf("chainfile: zstd reader: %w", err)
	}
	return dec.IOReadCloser(), domain.CompressionZstd, nil
}

type fileReader struct {
	io.ReadCloser
	f *os.File
}

func (r *fileReader) Close() error {
	err := r.ReadCloser.Close()
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Open opens a chain file for reading.
func Open(path string) (io.ReadCloser, domain.Compression, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	rc, c, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, "", err
	}
	return &fileReader{ReadCloser: rc, f: f}, c, nil
}

type fileWriter struct {
	io.WriteCloser
	f *os.File
}

func (w *fileWriter) Close() error {
	err := w.WriteCloser.Close()
	if serr := w.f.Sync(); err == nil {
		err = serr
	}
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Create creates or truncates a chain file written with compression c.
func Create(path string, c domain.Compression) (io.WriteCloser, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, DefaultFilePerm)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, c)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileWriter{WriteCloser: w, f: f}, nil
}
