// Package imu defines inertial samples and the line formats used to carry
// them from a device or a recording.
package imu

import "time"

// Sample is one accelerometer + gyroscope reading in the device frame.
// Timestamps are monotonic per session.
type Sample struct {
	TimestampNanos int64      `json:"t"`
	Accel          [3]float64 `json:"accel"` // m/s², includes gravity
	Gyro           [3]float64 `json:"gyro"`  // rad/s
}

// Time returns the sample timestamp as a time.Time (monotonic clock epoch).
func (s Sample) Time() time.Time {
	return time.Unix(0, s.TimestampNanos)
}

// RecordKind identifies what a parsed line carried.
type RecordKind int

const (
	KindSample RecordKind = iota
	KindOrientation
)

func (k RecordKind) String() string {
	switch k {
	case KindSample:
		return "sample"
	case KindOrientation:
		return "orientation"
	default:
		return "unknown"
	}
}

// Record is a single decoded line: either a Sample or a row-major
// device→world rotation matrix.
type Record struct {
	Kind     RecordKind
	Sample   Sample
	Rotation [9]float64
}
