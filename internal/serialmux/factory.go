package serialmux

import (
	"fmt"

	"go.bug.st/serial"
)

// OpenPort opens the IMU device at path and wraps it in a SerialMux.
func OpenPort(path string, opts PortOptions) (*SerialMux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return NewSerialMux[serial.Port](port), nil
}
