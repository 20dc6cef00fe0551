// Package objectlog stores the application payload associated with each
// indexed point. Payloads live in a single append-only UTF-8 text file, one
// record per line; a record's object id is its zero-based line number.
package objectlog

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// logFileName is the payload log file inside the index directory.
const logFileName = "objects.log"

var ErrObjectNotFound = errors.New("object id beyond end of log")

// Log is an append-only, line-addressed payload store. Records are immutable
// once written; the next object id equals the number of lines in the file.
type Log struct {
	path   string
	file   *os.File
	count  int64
	logger *zap.Logger
}

// Open opens (or creates) the object log under dir and counts its records so
// that the next append receives the correct id.
func Open(dir string, logger *zap.Logger) (*Log, error) {
	path := filepath.Join(dir, logFileName)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open object log %s: %w", path, err)
	}

	count, err := countLines(path)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to count object log records: %w", err)
	}

	return &Log{
		path:   path,
		file:   file,
		count:  count,
		logger: logger,
	}, nil
}

// Append writes one payload record and returns its object id.
func (l *Log) Append(payload string) (int64, error) {
	if _, err := fmt.Fprintln(l.file, payload); err != nil {
		return 0, fmt.Errorf("failed to append object record: %w", err)
	}
	id := l.count
	l.count++
	return id, nil
}

// Get returns the payload for the given object id by scanning from the start
// of the log and skipping id lines.
func (l *Log) Get(id int64) (string, error) {
	if id < 0 || id >= l.count {
		return "", fmt.Errorf("object %d: %w", id, ErrObjectNotFound)
	}

	file, err := os.Open(l.path)
	if err != nil {
		return "", fmt.Errorf("failed to open object log for read: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var line int64
	for scanner.Scan() {
		if line == id {
			return scanner.Text(), nil
		}
		line++
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to scan object log: %w", err)
	}
	return "", fmt.Errorf("object %d: %w", id, ErrObjectNotFound)
}

// Count returns the number of records in the log, which is also the id the
// next Append will return.
func (l *Log) Count() int64 { return l.count }

// SetCount reconciles the record counter with a session checkpoint. The
// on-disk line count stays authoritative because records are addressed by
// line number; a mismatch is only logged.
func (l *Log) SetCount(n int64) {
	if n != l.count {
		l.logger.Warn("object log counter mismatch with session checkpoint",
			zap.Int64("session", n),
			zap.Int64("on_disk", l.count),
		)
	}
}

// Close syncs and closes the append handle.
func (l *Log) Close() error {
	if l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		l.file.Close()
		l.file = nil
		return fmt.Errorf("failed to sync object log: %w", err)
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func countLines(path string) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var n int64
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}
