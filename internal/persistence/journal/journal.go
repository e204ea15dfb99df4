// Package journal appends one compressed JSONL record per catalog load, so
// reload history survives restarts.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"baseparts.ai/internal/sim/baseparts"
)

// JSONLZstdWriter appends JSON lines to a daily rotated .jsonl.zst file.
// Every Write ends a zstd frame, so files stay readable after a crash.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu     sync.Mutex
	curDay string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	day := w.now().UTC().Format("2006-01-02")
	if day != w.curDay || w.f == nil {
		if err := w.rotateLocked(day); err != nil {
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
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	// Finish the frame and start a new one on the same file.
	if err := w.enc.Close(); err != nil {
		return err
	}
	w.enc.Reset(w.f)
	return nil
}

// Path returns the file records for t are appended to.
func (w *JSONLZstdWriter) Path(t time.Time) string {
	return w.pathForDay(t.UTC().Format("2006-01-02"))
}

func (w *JSONLZstdWriter) rotateLocked(day string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	p := w.pathForDay(day)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
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
	w.w = bufio.NewWriterSize(enc, 32*1024)
	w.curDay = day
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curDay = ""
	return err1
}

func (w *JSONLZstdWriter) pathForDay(day string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, day))
}

// Entry records one catalog load attempt.
type Entry struct {
	At         time.Time        `json:"at"`
	OK         bool             `json:"ok"`
	Digest     string           `json:"digest,omitempty"`
	Stats      *baseparts.Stats `json:"stats,omitempty"`
	Error      string           `json:"error,omitempty"`
	DurationMS float64          `json:"duration_ms"`
}

// ReloadJournal writes catalog load outcomes (compressed).
type ReloadJournal struct{ w *JSONLZstdWriter }

func NewReloadJournal(dir string) *ReloadJournal {
	return &ReloadJournal{w: NewJSONLZstdWriter(dir, "reloads")}
}

func (j *ReloadJournal) WriteEntry(e Entry) error { return j.w.Write(e) }
func (j *ReloadJournal) Close() error             { return j.w.Close() }

// Path returns the file entries written at t go to.
func (j *ReloadJournal) Path(t time.Time) string { return j.w.Path(t) }

// Wrap returns a load func that journals every attempt made through load.
// A journal write failure is passed to onErr and does not fail the load.
func (j *ReloadJournal) Wrap(load func() (*baseparts.Registry, error), onErr func(error)) func() (*baseparts.Registry, error) {
	return func() (*baseparts.Registry, error) {
		start := time.Now()
		reg, err := load()
		e := Entry{
			At:         start.UTC(),
			OK:         err == nil,
			DurationMS: float64(time.Since(start).Microseconds()) / 1000,
		}
		if err != nil {
			e.Error = err.Error()
		} else {
			st := reg.Stats()
			e.Digest = reg.Digest
			e.Stats = &st
		}
		if werr := j.WriteEntry(e); werr != nil && onErr != nil {
			onErr(werr)
		}
		return reg, err
	}
}

// ReadEntries decodes every record in a journal file.
func ReadEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Entry
	jd := json.NewDecoder(bufio.NewReader(dec))
	for {
		var e Entry
		if err := jd.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		out = append(out, e)
	}
}
