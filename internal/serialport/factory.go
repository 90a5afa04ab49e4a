package serialport

import (
	"time"

	"go.bug.st/serial"
)

// realPort wraps a go.bug.st serial port to satisfy TimeoutPorter.
type realPort struct {
	serial.Port
}

func (p *realPort) SetReadTimeout(timeout time.Duration) error {
	return p.Port.SetReadTimeout(timeout)
}

// Open opens a real serial port at the given path with the provided
// options.
func Open(path string, opts Options) (Porter, error) {
	mode, err := opts.Mode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return &realPort{Port: port}, nil
}
