package serialmux

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/banshee-data/deadreckon/internal/imu"
	"github.com/banshee-data/deadreckon/internal/orientation"
)

// MockSerialPort feeds a pipe to the mux and discards commands.
type MockSerialPort struct {
	io.Reader
	w      *io.PipeWriter
	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func (m *MockSerialPort) Write(p []byte) (int, error) { return len(p), nil }

func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	return m.w.Close()
}

// MockMotion returns a synthetic device-frame sample at t: it accelerates
// forward at 0.5 m/s² for 10 s, cruises for 20 s, then sits still for 5 s,
// repeating every 35 s.
func MockMotion(t time.Duration) imu.Sample {
	s := imu.Sample{TimestampNanos: int64(t), Accel: [3]float64{0, 0, orientation.StandardGravity}}
	phase := t % (35 * time.Second)
	switch {
	case phase < 10*time.Second:
		s.Accel[1] = 0.5
	case phase < 30*time.Second:
		// Road vibration keeps the detector out of the stationary state.
		if (phase/(50*time.Millisecond))%2 == 0 {
			s.Accel[2] += 0.4
		} else {
			s.Accel[2] -= 0.4
		}
	}
	return s
}

// NewMockSerialMux returns a mux over a simulated IMU emitting MockMotion as
// CSV lines every interval. The generator stops when the mux is closed.
func NewMockSerialMux(interval time.Duration) *SerialMux[*MockSerialPort] {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	r, w := io.Pipe()
	port := &MockSerialPort{Reader: r, w: w, done: make(chan struct{})}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		var elapsed time.Duration
		for {
			select {
			case <-port.done:
				return
			case <-ticker.C:
				line := imu.FormatCSV(MockMotion(elapsed)) + "\n"
				if _, err := w.Write([]byte(line)); err != nil {
					return
				}
				elapsed += interval
			}
		}
	}()

	return NewSerialMux(port).WithBuffer(64)
}

// TestableSerialPort is an in-memory port for tests. Reads block until data
// is added or the port is closed.
type TestableSerialPort struct {
	mu          sync.Mutex
	cond        *sync.Cond
	readBuffer  bytes.Buffer
	writeBuffer bytes.Buffer
	closed      bool
	eof         bool

	// WriteError, when set, is returned by the next Write.
	WriteError error
}

func NewTestableSerialPort() *TestableSerialPort {
	p := &TestableSerialPort{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *TestableSerialPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for !p.closed && !p.eof && p.readBuffer.Len() == 0 {
		p.cond.Wait()
	}
	if p.closed {
		return 0, errors.New("serial port closed")
	}
	if p.readBuffer.Len() == 0 {
		return 0, io.EOF
	}
	return p.readBuffer.Read(b)
}

func (p *TestableSerialPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("serial port closed")
	}
	if p.WriteError != nil {
		err := p.WriteError
		p.WriteError = nil
		return 0, err
	}
	return p.writeBuffer.Write(b)
}

func (p *TestableSerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cond.Broadcast()
	return nil
}

// AddReadData queues data for subsequent reads.
func (p *TestableSerialPort) AddReadData(data string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readBuffer.WriteString(data)
	p.cond.Broadcast()
}

// EOF makes reads return io.EOF once the queued data is drained.
func (p *TestableSerialPort) EOF() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.eof = true
	p.cond.Broadcast()
}

// Written returns everything written to the port.
func (p *TestableSerialPort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writeBuffer.String()
}
