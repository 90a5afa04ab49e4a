// Package bridge exposes the adapter byte stream over transports other
// than a local serial port. The emulator only needs a bidirectional byte
// channel, so a WebSocket connection carrying binary frames works exactly
// like a wire: diagnostic clients on the other end speak the same ELM327
// dialect.
package bridge

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abdulwahed-sweden/obd-simulator/internal/elm"
	"github.com/abdulwahed-sweden/obd-simulator/internal/vehicle"
)

// WSPort adapts one websocket connection to the session transport
// contract. A pump goroutine drains incoming frames into a channel so
// Read can offer bounded-timeout semantics without touching the
// connection's read deadline, which gorilla treats as fatal once
// exceeded.
type WSPort struct {
	conn   *websocket.Conn
	frames chan []byte
	done   chan struct{}

	mu          sync.Mutex
	pending     []byte
	readErr     error
	readTimeout time.Duration
	closed      bool
}

// NewWSPort wraps an established websocket connection and starts its
// frame pump.
func NewWSPort(conn *websocket.Conn) *WSPort {
	p := &WSPort{
		conn:        conn,
		frames:      make(chan []byte, 8),
		done:        make(chan struct{}),
		readTimeout: 100 * time.Millisecond,
	}
	go p.pump()
	return p
}

func (p *WSPort) pump() {
	defer close(p.frames)
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			p.mu.Lock()
			p.readErr = err
			p.mu.Unlock()
			return
		}
		// The frame buffer can fill when nobody reads the port anymore;
		// Close must still be able to stop the pump.
		select {
		case p.frames <- data:
		case <-p.done:
			return
		}
	}
}

// Read returns buffered bytes or waits up to the read timeout for the
// next frame. A timeout returns (0, nil) like a serial port.
func (p *WSPort) Read(buf []byte) (int, error) {
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
	case data, ok := <-p.frames:
		if !ok {
			p.mu.Lock()
			err := p.readErr
			p.mu.Unlock()
			if err == nil {
				err = errors.New("websocket port closed")
			}
			return 0, err
		}
		n := copy(buf, data)
		if n < len(data) {
			p.mu.Lock()
			p.pending = append(p.pending, data[n:]...)
			p.mu.Unlock()
		}
		return n, nil
	case <-time.After(timeout):
		return 0, nil
	}
}

// Write sends bytes as one binary frame.
func (p *WSPort) Write(data []byte) (int, error) {
	if err := p.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Close closes the underlying websocket connection; the pump goroutine
// exits on the resulting read error.
func (p *WSPort) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	close(p.done)
	return p.conn.Close()
}

// SetReadTimeout bounds each Read call.
func (p *WSPort) SetReadTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readTimeout = timeout
	return nil
}

// Server runs one adapter session per websocket client against a shared
// vehicle model.
type Server struct {
	car      *vehicle.Model
	upgrader websocket.Upgrader
}

// NewServer creates a websocket bridge for the given model.
func NewServer(car *vehicle.Model) *Server {
	return &Server{
		car: car,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP handler that upgrades connections and services
// them until the request context or session ends.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("bridge: upgrade failed: %v", err)
			return
		}

		sess := elm.NewSession(NewWSPort(conn), s.car)
		if err := sess.Run(r.Context()); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("bridge: session %s ended: %v", sess.ID(), err)
		}
	})
}

// Attach registers the bridge endpoint on mux at /adapter.
func (s *Server) Attach(mux *http.ServeMux) {
	mux.Handle("/adapter", s.Handler())
}
