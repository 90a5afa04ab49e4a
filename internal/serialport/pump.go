package serialport

import (
	"sync"
	"time"
)

// PumpPort upgrades a blocking Porter to a TimeoutPorter. A pump
// goroutine performs the blocking reads and hands chunks over a channel,
// so Read can wait with a bounded timeout and return (0, nil) when no
// data arrives, matching serial-port timeout semantics. Session loops
// need that bound to keep the simulation advancing and to notice
// cancellation while the wire is quiet.
type PumpPort struct {
	inner  Porter
	chunks chan []byte
	done   chan struct{}

	mu          sync.Mutex
	pending     []byte
	readErr     error
	readTimeout time.Duration
	closed      bool
}

// NewPumpPort wraps inner and starts its pump goroutine. If inner's Read
// never returns, the goroutine leaks until process exit; Close still
// unblocks callers of Read.
func NewPumpPort(inner Porter) *PumpPort {
	p := &PumpPort{
		inner:       inner,
		chunks:      make(chan []byte, 8),
		done:        make(chan struct{}),
		readTimeout: 100 * time.Millisecond,
	}
	go p.pump()
	return p
}

func (p *PumpPort) pump() {
	defer close(p.chunks)
	buf := make([]byte, 256)
	for {
		n, err := p.inner.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case p.chunks <- chunk:
			case <-p.done:
				return
			}
		}
		if err != nil {
			p.mu.Lock()
			p.readErr = err
			p.mu.Unlock()
			return
		}
	}
}

// Read returns buffered bytes or waits up to the read timeout for the
// next chunk. A timeout returns (0, nil).
func (p *PumpPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	if len(p.pending) > 0 {
		n := copy(buf, p.pending)
		p.pending = p.pending[n:]
		p.mu.Unlock()
		return n, nil
	}
	timeout := p.readTimeout
	p.mu.Unlock()

	select {
	case chunk, ok := <-p.chunks:
		if !ok {
			p.mu.Lock()
			err := p.readErr
			p.mu.Unlock()
			if err == nil {
				err = ErrPortClosed
			}
			return 0, err
		}
		n := copy(buf, chunk)
		if n < len(chunk) {
			p.mu.Lock()
			p.pending = append(p.pending, chunk[n:]...)
			p.mu.Unlock()
		}
		return n, nil
	case <-p.done:
		return 0, ErrPortClosed
	case <-time.After(timeout):
		return 0, nil
	}
}

// Write passes through to the wrapped port.
func (p *PumpPort) Write(data []byte) (int, error) {
	return p.inner.Write(data)
}

// Close stops the pump and closes the wrapped port.
func (p *PumpPort) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	close(p.done)
	return p.inner.Close()
}

// SetReadTimeout implements TimeoutPorter.
func (p *PumpPort) SetReadTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readTimeout = timeout
	return nil
}
