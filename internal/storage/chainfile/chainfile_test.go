package chainfile

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yndnr/pcompress-go/internal/core/domain"
)

var sample = []byte{
	0x00, 0x00, 0x00, 0x01, 0xFF, 0xFE, 0x01, 0x00, 0x02, 0xFF, 0xFF,
	0xFF, 0xFE, 0x01, 0x00, 0x01, 0xFF, 0xFF,
}

func TestRoundTrip(t *testing.T) {
	for _, c := range []domain.Compression{domain.CompressionNone, domain.CompressionZstd} {
		t.Run(string(c), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "run"+FileExtension)
			w, err := Create(path, c)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if _, err := w.Write(sample); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			raw, _ := os.ReadFile(path)
			if isZstd := bytes.HasPrefix(raw, zstdMagic); isZstd != (c == domain.CompressionZstd) {
				t.Fatalf("zstd magic present = %v for %s", isZstd, c)
			}

			r, got, err := Open(path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer r.Close()
			if got != c {
				t.Errorf("detected %q, want %q", got, c)
			}
			data, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if !bytes.Equal(data, sample) {
				t.Fatalf("data = % x, want % x", data, sample)
			}
		})
	}
}

func TestNewReader_ShortInput(t *testing.T) {
	r, c, err := NewReader(bytes.NewReader([]byte{0xFF, 0xFF}))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if c != domain.CompressionNone {
		t.Fatalf("compression = %q", c)
	}
	data, _ := io.ReadAll(r)
	if !bytes.Equal(data, []byte{0xFF, 0xFF}) {
		t.Fatalf("data = % x", data)
	}
}

func TestNewWriter_Unknown(t *testing.T) {
	if _, err := NewWriter(io.Discard, "xz"); !errors.Is(err, errUnknownCompression) {
		t.Fatalf("err = %v, want errUnknownCompression", err)
	}
}

func TestFollowReader_SeesAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live"+FileExtension)
	if err := os.WriteFile(path, sample[:11], DefaultFilePerm); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r, err := Follow(ctx, path, WithIdleTimeout(500*time.Millisecond))
	if err != nil {
		t.Fatalf("Follow: %v", err)
	}
	defer r.Close()

	go func() {
		time.Sleep(100 * time.Millisecond)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
		if err != nil {
			return
		}
		f.Write(sample[11:])
		f.Close()
	}()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(data, sample) {
		t.Fatalf("data = % x, want % x", data, sample)
	}
}

func TestFollowReader_Cancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idle"+FileExtension)
	if err := os.WriteFile(path, nil, DefaultFilePerm); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r, err := Follow(ctx, path)
	if err != nil {
		t.Fatalf("Follow: %v", err)
	}
	defer r.Close()

	time.AfterFunc(50*time.Millisecond, cancel)
	_, err = r.Read(make([]byte, 8))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestFollowReader_Removed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone"+FileExtension)
	if err := os.WriteFile(path, nil, DefaultFilePerm); err != nil {
		t.Fatal(err)
	}

	r, err := Follow(context.Background(), path, WithIdleTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("Follow: %v", err)
	}
	defer r.Close()

	time.AfterFunc(50*time.Millisecond, func() { os.Remove(path) })
	start := time.Now()
	_, err = r.Read(make([]byte, 8))
	if err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
	if time.Since(start) > 4*time.Second {
		t.Fatal("removal was not noticed before the idle timeout")
	}
}
