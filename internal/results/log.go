package results

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Log is the on-disk results table: UTF-8 text, one record per line, no
// header, append-only. The next experiment id is the current line count, so
// two processes reading the log before either appends can both claim the
// same id; nothing here guards against that.
type Log struct {
	Path string
}

// NewLog returns a log backed by the file at path. The file need not exist
// yet; the first append creates it.
func NewLog(path string) *Log {
	return &Log{Path: path}
}

// NextID returns the id for the next record to be appended: the number of
// lines currently in the file, 0 if the file is missing or empty. Read-only;
// the id is not reserved.
func (l *Log) NextID() (uint64, error) {
	f, err := os.Open(l.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("opening results log: %w", err)
	}
	defer f.Close()

	var lines uint64
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines++
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("counting results log lines: %w", err)
	}
	return lines, nil
}

// Append writes one record line to the end of the log, creating the file if
// needed, and closes it before returning.
func (l *Log) Append(rec Record) error {
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening results log for append: %w", err)
	}
	if _, err := fmt.Fprintln(f, rec.Line()); err != nil {
		f.Close()
		return fmt.Errorf("appending record %d: %w", rec.ID, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing results log: %w", err)
	}
	return nil
}
