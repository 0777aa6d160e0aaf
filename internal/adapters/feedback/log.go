// Package feedback persists submitted outcome feedback as an append-only log.
package feedback

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/okian/crisk/internal/domain/model"
	"github.com/okian/crisk/internal/domain/validate"
)

// Log is a JSONL file of feedback records, one object per line. Appends are
// serialized by a mutex and flushed before Append returns, so every record
// acknowledged to a caller survives a restart. Records are only ever added;
// retraining always replays the full history.
type Log struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	count  int
	noSync bool
}

// Open opens or creates the log at path and counts the existing records.
func Open(path string, opts ...Option) (*Log, error) {
	l := &Log{path: path}
	for _, opt := range opts {
		opt(l)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open feedback log: %w", err)
	}
	l.file = file

	count, err := countLines(path)
	if err != nil {
		file.Close()
		return nil, err
	}
	l.count = count
	return l, nil
}

// Append writes one feedback record to the end of the log.
func (l *Log) Append(ctx context.Context, rec model.FeedbackRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("append cancelled: %w", err)
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode feedback: %w", err)
	}
	raw = append(raw, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return ErrLogClosed
	}
	if _, err := l.file.Write(raw); err != nil {
		return fmt.Errorf("append feedback: %w", err)
	}
	if !l.noSync {
		if err := l.file.Sync(); err != nil {
			return fmt.Errorf("flush feedback: %w", err)
		}
	}
	l.count++
	return nil
}

// ReadAll replays the full history as raw records ready for validation.
func (l *Log) ReadAll(ctx context.Context) ([]validate.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("read cancelled: %w", err)
	}

	raw, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read feedback log: %w", err)
	}

	var out []validate.RawRecord
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec validate.RawRecord
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptLog, line, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan feedback log: %w", err)
	}
	return out, nil
}

// Count returns the number of records appended so far.
func (l *Log) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Close releases the underlying file. Further appends fail with ErrLogClosed.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func countLines(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count feedback log: %w", err)
	}
	count := 0
	for _, line := range bytes.Split(raw, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) > 0 {
			count++
		}
	}
	return count, nil
}
