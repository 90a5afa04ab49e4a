package serialport

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// ErrPortClosed is returned by operations on a closed ScriptedPort.
var ErrPortClosed = errors.New("serial port closed")

// ScriptedPort implements TimeoutPorter entirely in memory for testing.
// Reads drain a queue filled by Push and honour the configured read
// timeout; writes are captured for inspection.
type ScriptedPort struct {
	mu sync.Mutex

	readBuf  bytes.Buffer
	writeBuf bytes.Buffer

	readTimeout time.Duration
	readErr     error
	writeErr    error
	closed      bool
}

// NewScriptedPort creates an empty ScriptedPort with a short default read
// timeout.
func NewScriptedPort() *ScriptedPort {
	return &ScriptedPort{readTimeout: 10 * time.Millisecond}
}

// Push queues bytes for subsequent Read calls.
func (p *ScriptedPort) Push(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readBuf.Write(data)
}

// PushString queues a string for subsequent Read calls.
func (p *ScriptedPort) PushString(s string) {
	p.Push([]byte(s))
}

// Read returns queued bytes. With no data available it waits up to the
// read timeout and then returns (0, nil), matching serial-port timeout
// semantics.
func (p *ScriptedPort) Read(buf []byte) (int, error) {
	deadline := time.Now().Add(p.timeout())

	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if p.closed {
			return 0, ErrPortClosed
		}
		if p.readErr != nil {
			err := p.readErr
			p.readErr = nil
			return 0, err
		}
		if p.readBuf.Len() > 0 {
			return p.readBuf.Read(buf)
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, nil
		}

		// Poll in small slices until the deadline.
		p.mu.Unlock()
		wait := time.Millisecond
		if remaining < wait {
			wait = remaining
		}
		time.Sleep(wait)
		p.mu.Lock()
	}
}

// Write captures bytes for later inspection via Written.
func (p *ScriptedPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrPortClosed
	}
	if p.writeErr != nil {
		err := p.writeErr
		p.writeErr = nil
		return 0, err
	}
	return p.writeBuf.Write(data)
}

// Close marks the port closed; blocked readers observe it on their next
// poll.
func (p *ScriptedPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// SetReadTimeout implements TimeoutPorter.
func (p *ScriptedPort) SetReadTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readTimeout = timeout
	return nil
}

func (p *ScriptedPort) timeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readTimeout
}

// FailNextRead makes the next Read return err.
func (p *ScriptedPort) FailNextRead(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
}

// FailNextWrite makes the next Write return err.
func (p *ScriptedPort) FailNextWrite(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// Written returns everything written to the port so far.
func (p *ScriptedPort) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.writeBuf.Bytes()...)
}

// Closed reports whether Close has been called.
func (p *ScriptedPort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// ResetWritten clears the captured write buffer.
func (p *ScriptedPort) ResetWritten() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeBuf.Reset()
}
