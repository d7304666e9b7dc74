package imu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// Reader decodes records line by line from a recording or any other stream.
type Reader struct {
	scan *bufio.Scanner
	line int
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scan: bufio.NewScanner(r)}
}

// Next returns the next record, skipping blank and comment lines. It returns
// io.EOF when the stream is exhausted. Parse errors carry the line number.
func (r *Reader) Next() (Record, error) {
	for r.scan.Scan() {
		r.line++
		rec, err := ParseLine(r.scan.Text())
		if errors.Is(err, ErrSkipLine) {
			continue
		}
		if err != nil {
			return Record{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return rec, nil
	}
	if err := r.scan.Err(); err != nil {
		return Record{}, err
	}
	return Record{}, io.EOF
}

// ReadAll returns every record in the stream.
func ReadAll(r io.Reader) ([]Record, error) {
	rd := NewReader(r)
	var out []Record
	for {
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}
