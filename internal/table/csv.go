package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrEmptyFile is returned when an upload has no header row.
var ErrEmptyFile = errors.New("empty file: no header row found")

// ParseWarning is a non-fatal problem found while reading a CSV file.
type ParseWarning struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ParseResult is a decoded upload.
type ParseResult struct {
	Table       *Table
	Encoding    string
	Fingerprint string
	Warnings    []ParseWarning
}

// ReadCSV reads r to completion and parses it with Parse.
func ReadCSV(r io.Reader) (*ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return Parse(data)
}

// Parse decodes data to UTF-8 and parses it as a header row followed by data
// rows. All values are kept as strings. Blank rows are skipped. Rows whose
// width differs from the header are padded or truncated and reported as
// warnings, as are repeated header names (renamed to name_1, name_2, ...).
func Parse(data []byte) (*ParseResult, error) {
	decoded, enc, err := Decode(data)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(decoded))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("parse csv header: %w", err)
	}

	res := &ParseResult{
		Encoding:    enc,
		Fingerprint: Fingerprint(data),
	}
	header = cleanHeader(header, res)

	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			line := 0
			if errors.As(err, &pe) {
				line = pe.Line
			}
			res.Warnings = append(res.Warnings, ParseWarning{
				Line:    line,
				Message: fmt.Sprintf("parse error: %v", err),
			})
			continue
		}
		line, _ := r.FieldPos(0)
		if isEmptyRow(row) {
			continue
		}
		switch {
		case len(row) < len(header):
			res.Warnings = append(res.Warnings, ParseWarning{
				Line:    line,
				Message: fmt.Sprintf("row has %d columns, expected %d; padding with empty values", len(row), len(header)),
			})
		case len(row) > len(header):
			res.Warnings = append(res.Warnings, ParseWarning{
				Line:    line,
				Message: fmt.Sprintf("row has %d columns, expected %d; truncating extra columns", len(row), len(header)),
			})
		}
		rows = append(rows, row)
	}

	res.Table = New(header, rows)
	return res, nil
}

func cleanHeader(header []string, res *ParseResult) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = "column_" + strconv.Itoa(i+1)
			res.Warnings = append(res.Warnings, ParseWarning{
				Line:    1,
				Message: fmt.Sprintf("blank header in column %d named %q", i+1, h),
			})
		}
		name := h
		if n, dup := seen[h]; dup {
			name = h + "_" + strconv.Itoa(n)
			for _, taken := seen[name]; taken; _, taken = seen[name] {
				n++
				name = h + "_" + strconv.Itoa(n)
			}
			seen[h] = n + 1
			res.Warnings = append(res.Warnings, ParseWarning{
				Line:    1,
				Message: fmt.Sprintf("duplicate header %q renamed to %q", h, name),
			})
		} else {
			seen[h] = 1
		}
		seen[name] = 1
		out[i] = name
	}
	return out
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WriteCSV writes t as CSV with a header row.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < t.Len(); i++ {
		if err := cw.Write(t.rows[i]); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
