package imu

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSkipLine is returned for blank lines and # comments.
var ErrSkipLine = errors.New("imu: skip line")

type wireRecord struct {
	T        *int64      `json:"t"`
	Accel    *[3]float64 `json:"accel"`
	Gyro     *[3]float64 `json:"gyro"`
	Rotation *[9]float64 `json:"rotation"`
}

// ParseLine decodes one line in either format:
//
//	{"t":1000,"accel":[0,0,9.8],"gyro":[0,0,0]}
//	{"rotation":[1,0,0,0,1,0,0,0,1]}
//	1000,0,0,9.8,0,0,0
//
// CSV columns are t,ax,ay,az,gx,gy,gz.
func ParseLine(line string) (Record, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Record{}, ErrSkipLine
	}
	if strings.HasPrefix(line, "{") {
		return parseJSON(line)
	}
	return parseCSV(line)
}

func parseJSON(line string) (Record, error) {
	var w wireRecord
	if err := json.Unmarshal([]byte(line), &w); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	if w.Rotation != nil {
		return Record{Kind: KindOrientation, Rotation: *w.Rotation}, nil
	}
	if w.T == nil || w.Accel == nil {
		return Record{}, fmt.Errorf("sample requires \"t\" and \"accel\": %s", line)
	}
	s := Sample{TimestampNanos: *w.T, Accel: *w.Accel}
	if w.Gyro != nil {
		s.Gyro = *w.Gyro
	}
	return Record{Kind: KindSample, Sample: s}, nil
}

func parseCSV(line string) (Record, error) {
	segments := strings.Split(line, ",")
	if len(segments) != 7 {
		return Record{}, fmt.Errorf("invalid payload format: %s, expected 7 segments", line)
	}

	ts, err := strconv.ParseInt(strings.TrimSpace(segments[0]), 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}

	var vals [6]float64
	for i := range vals {
		vals[i], err = strconv.ParseFloat(strings.TrimSpace(segments[i+1]), 64)
		if err != nil {
			return Record{}, fmt.Errorf("failed to parse column %d: %w", i+1, err)
		}
	}

	return Record{
		Kind: KindSample,
		Sample: Sample{
			TimestampNanos: ts,
			Accel:          [3]float64{vals[0], vals[1], vals[2]},
			Gyro:           [3]float64{vals[3], vals[4], vals[5]},
		},
	}, nil
}

// FormatCSV renders a sample as a CSV line without a trailing newline.
func FormatCSV(s Sample) string {
	parts := make([]string, 0, 7)
	parts = append(parts, strconv.FormatInt(s.TimestampNanos, 10))
	for _, v := range s.Accel {
		parts = append(parts, strconv.FormatFloat(v, 'g', -1, 64))
	}
	for _, v := range s.Gyro {
		parts = append(parts, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return strings.Join(parts, ",")
}
