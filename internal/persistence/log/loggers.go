package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"slabfall.ai/internal/sim/engine"
)

// JSONLZstdWriter appends one JSON document per line to a zstd stream. The
// file is created on first write.
type JSONLZstdWriter struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

func NewJSONLZstdWriter(path string) *JSONLZstdWriter {
	return &JSONLZstdWriter{path: path}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil {
		if err := w.openLocked(); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

func (w *JSONLZstdWriter) openLocked() error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		err1 = w.w.Flush()
	}
	if w.enc != nil {
		if err := w.enc.Close(); err1 == nil {
			err1 = err
		}
		w.enc = nil
	}
	if w.f != nil {
		if err := w.f.Close(); err1 == nil {
			err1 = err
		}
		w.f = nil
	}
	w.w = nil
	return err1
}

// PassEntry is one settle pass as written to the event log.
type PassEntry struct {
	RunID string    `json:"run_id"`
	At    time.Time `json:"at"`
	engine.PassStats
}

// PassLogger records settle passes. The first write error is kept and
// returned by Close, since engine callbacks cannot fail.
type PassLogger struct {
	w     *JSONLZstdWriter
	runID string
	err   error
}

func NewPassLogger(path, runID string) *PassLogger {
	return &PassLogger{w: NewJSONLZstdWriter(path), runID: runID}
}

func (l *PassLogger) WritePass(p engine.PassStats) {
	if l.err != nil {
		return
	}
	l.err = l.w.Write(PassEntry{RunID: l.runID, At: time.Now().UTC(), PassStats: p})
}

func (l *PassLogger) Close() error {
	err := l.w.Close()
	if l.err != nil {
		return l.err
	}
	return err
}
