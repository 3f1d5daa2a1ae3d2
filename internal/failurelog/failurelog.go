// Package failurelog persists failed slots as "instrument,YYYY-MM-DD" lines and
// reads them back for replay.
package failurelog

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const DateLayout = "2006-01-02"

type Record struct {
	Instrument string
	Date       string
}

// Day parses Date as a UTC calendar day.
func (r Record) Day() (time.Time, error) {
	return time.Parse(DateLayout, r.Date)
}

func (r Record) String() string {
	return r.Instrument + "," + r.Date
}

// Sink receives failure records in detection order.
type Sink interface {
	Append(Record) error
}

// Writer appends records to a file. Each Append is flushed before it returns,
// so an interrupted run keeps every record it reported.
type Writer struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *bufio.Writer
	n    int
}

// Open opens path in append mode, creating it when missing.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open failure log %s: %w", path, err)
	}

	return &Writer{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

func (w *Writer) Append(r Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return fmt.Errorf("failure log %s is closed", w.path)
	}

	if _, err := w.w.WriteString(r.String() + "\n"); err != nil {
		return fmt.Errorf("failed to append to %s: %w", w.path, err)
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", w.path, err)
	}
	w.n++

	return nil
}

// Count is the number of records appended through this writer.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

func (w *Writer) Path() string {
	return w.path
}

// Close flushes, syncs and closes the file. It is safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return nil
	}

	err := errors.Join(w.w.Flush(), w.f.Sync(), w.f.Close())
	w.f = nil
	if err != nil {
		return fmt.Errorf("failed to close failure log %s: %w", w.path, err)
	}
	return nil
}

// Read parses records in file order. Lines that are not exactly two non-empty
// fields with a valid date are skipped and counted in malformed.
func Read(r io.Reader) (records []Record, malformed int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				malformed++
				continue
			}
			return nil, malformed, fmt.Errorf("failed to read failure log: %w", err)
		}

		if len(fields) != 2 {
			malformed++
			continue
		}

		rec := Record{
			Instrument: strings.TrimSpace(fields[0]),
			Date:       strings.TrimSpace(fields[1]),
		}
		if rec.Instrument == "" {
			malformed++
			continue
		}
		if _, err := rec.Day(); err != nil {
			malformed++
			continue
		}

		records = append(records, rec)
	}

	return records, malformed, nil
}

func ReadFile(path string) ([]Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open failure log %s: %w", path, err)
	}
	defer f.Close()

	return Read(f)
}
