package csvencoder

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Row is anything that renders as one delimited line.
type Row interface {
	Fields() []string
}

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// CSVEncoder joins each row's fields with the separator and rows with a single
// newline. No trailing newline is written.
type CSVEncoder struct {
	separator rune
	headers   []string
}

func NewCSVEncoder() *CSVEncoder {
	return &CSVEncoder{
		separator: ',',
	}
}

func (e *CSVEncoder) SetSeparator(sep rune) {
	e.separator = sep
}

// SetHeaders makes Encode emit a header line first. Off by default.
func (e *CSVEncoder) SetHeaders(headers ...string) {
	e.headers = headers
}

func (e *CSVEncoder) Encode(w io.Writer, rows []Row) error {
	var buf bytes.Buffer

	csvWriter := csv.NewWriter(&buf)
	csvWriter.Comma = e.separator

	if len(e.headers) > 0 {
		if err := csvWriter.Write(e.headers); err != nil {
			return err
		}
	}

	for _, row := range rows {
		if err := csvWriter.Write(row.Fields()); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return err
	}

	_, err := w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return err
}

func (e *CSVEncoder) EncodeToString(rows []Row) (string, error) {
	var b strings.Builder
	if err := e.Encode(&b, rows); err != nil {
		return "", err
	}
	return b.String(), nil
}

// EncodeJSON writes rows as one JSON array.
func EncodeJSON(w io.Writer, rows []Row) error {
	if rows == nil {
		rows = []Row{}
	}
	return json.NewEncoder(w).Encode(rows)
}

// Encode dispatches on format.
func Encode(w io.Writer, format Format, rows []Row) error {
	switch format {
	case FormatCSV, "":
		return NewCSVEncoder().Encode(w, rows)
	case FormatJSON:
		return EncodeJSON(w, rows)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// WriteFile writes through a temporary file in the target directory and
// renames it into place, so readers never observe a partial file.
func WriteFile(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := write(tmp); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to rename into %s: %w", path, err)
	}

	return nil
}
