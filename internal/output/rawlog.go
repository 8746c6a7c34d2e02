package output

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"videotouch-go/internal/types"
)

const RawLogMagic = "VTRAW001"

const recordHeaderSize = 12

// RawLogWriter appends inbound payloads to a capture file. Each record is a
// 12 byte header (unix nanos, payload length, little endian) followed by a
// CBOR encoded types.RawEntry.
type RawLogWriter struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string
}

func NewRawLogWriter(outputDir string, prefix string) (*RawLogWriter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("%s_%s.bin", timestamp, prefix))
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriterSize(f, 256*1024)
	if _, err := w.WriteString(RawLogMagic); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &RawLogWriter{
		f:    f,
		w:    w,
		path: filename,
	}, nil
}

func (r *RawLogWriter) Path() string {
	return r.path
}

func (r *RawLogWriter) Record(entry types.RawEntry) error {
	payload, err := cbor.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode raw entry: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return fmt.Errorf("raw log writer is closed")
	}
	var header [recordHeaderSize]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(time.Now().UnixNano()))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(payload)))
	if _, err := r.w.Write(header[:]); err != nil {
		return err
	}
	if _, err := r.w.Write(payload); err != nil {
		return err
	}
	return r.w.Flush()
}

func (r *RawLogWriter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return nil
	}
	if err := r.w.Flush(); err != nil {
		_ = r.f.Close()
		r.w = nil
		return err
	}
	err := r.f.Close()
	r.w = nil
	return err
}

var ErrBadMagic = errors.New("unexpected raw log magic")

// ReadRawLog walks a capture stream, calling fn for each entry until fn
// returns false or the stream ends. A record cut short by a crash ends the
// walk without error.
func ReadRawLog(r io.Reader, fn func(ts time.Time, entry types.RawEntry) bool) error {
	br := bufio.NewReader(r)
	magic := make([]byte, len(RawLogMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != RawLogMagic {
		return fmt.Errorf("%w %q", ErrBadMagic, string(magic))
	}

	for {
		var header [recordHeaderSize]byte
		if _, err := io.ReadFull(br, header[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("read record header: %w", err)
		}
		ts := time.Unix(0, int64(binary.LittleEndian.Uint64(header[:8])))
		size := binary.LittleEndian.Uint32(header[8:12])

		payload := make([]byte, size)
		if _, err := io.ReadFull(br, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("read payload: %w", err)
		}

		var entry types.RawEntry
		if err := cbor.Unmarshal(payload, &entry); err != nil {
			return fmt.Errorf("decode entry at %s: %w", ts.Format(time.RFC3339Nano), err)
		}
		if !fn(ts, entry) {
			return nil
		}
	}
}
