package record

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// maxLineSize bounds a single JSON Lines entry. Reasoning traces in
// datasets easily exceed bufio's 64KB default.
const maxLineSize = 64 * 1024 * 1024

// ReadLines decodes every non-blank line of a JSON Lines stream
func ReadLines(r io.Reader) ([]*Record, error) {
	var records []*Record
	err := ScanLines(r, func(rec *Record) error {
		records = append(records, rec)
		return nil
	})
	return records, err
}

// ScanLines calls fn for each record of a JSON Lines stream in order
func ScanLines(r io.Reader, fn func(*Record) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		rec, err := Parse(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read JSON lines: %w", err)
	}
	return nil
}

// WriteLines writes records as JSON Lines
func WriteLines(w io.Writer, records []*Record) error {
	for _, rec := range records {
		line, err := rec.Line()
		if err != nil {
			return err
		}
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	return nil
}
