// Package serialport abstracts the byte channel the adapter session runs
// over. The emulator is transport-agnostic: anything satisfying Porter
// (a real serial port, a pseudo-terminal, an in-memory scripted port, a
// websocket bridge) can carry the command/response stream.
package serialport

import (
	"io"
	"time"
)

// Porter is the minimal interface the adapter session needs from a
// transport. It matches a serial port but is satisfiable by any
// bidirectional byte channel.
type Porter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutPorter extends Porter with bounded-timeout reads. Sessions rely on
// this to keep the simulation ticking while no bytes arrive; transports
// that cannot bound reads should return promptly on Close instead.
type TimeoutPorter interface {
	Porter
	// SetReadTimeout sets the read timeout for the port.
	SetReadTimeout(timeout time.Duration) error
}
