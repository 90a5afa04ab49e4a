// Package simulator exposes the vehicle model through a synchronous,
// non-protocol facade for in-process consumers. Queries return typed
// values with unit tags and skip the hex framing entirely; both this path
// and the adapter byte-stream path share the same vehicle model.
package simulator

import (
	"log"
	"sync"
	"time"

	"github.com/abdulwahed-sweden/obd-simulator/internal/obd"
	"github.com/abdulwahed-sweden/obd-simulator/internal/timeutil"
	"github.com/abdulwahed-sweden/obd-simulator/internal/vehicle"
)

// Simulator is a virtual OBD-II connection. Queries advance the shared
// model by the wall-clock delta since the previous call, so readings age
// realistically between polls. Safe for concurrent use.
type Simulator struct {
	mu        sync.Mutex
	car       *vehicle.Model
	clock     timeutil.Clock
	connected bool
	lastPoll  time.Time
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithClock replaces the wall clock used for poll deltas.
func WithClock(c timeutil.Clock) Option {
	return func(s *Simulator) { s.clock = c }
}

// New creates a Simulator around an existing vehicle model.
func New(car *vehicle.Model, opts ...Option) *Simulator {
	s := &Simulator{
		car:   car,
		clock: timeutil.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect marks the interface connected and starts the engine.
func (s *Simulator) Connect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("simulator: connecting to virtual OBD-II interface")
	s.connected = true
	s.lastPoll = s.clock.Now()
	s.car.StartEngine()
	return true
}

// IsConnected reports whether Connect has been called without a matching
// Close.
func (s *Simulator) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Status describes the connection for logs and interactive use.
func (s *Simulator) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return "Disconnected"
	}
	if s.car.Snapshot().EngineRunning {
		return "Virtual OBD-II Interface (Engine: Running)"
	}
	return "Virtual OBD-II Interface (Engine: Off)"
}

// Query advances the simulation by the elapsed wall-clock delta and reads
// the named value. Unknown names and queries while disconnected return a
// null response.
func (s *Simulator) Query(name string) obd.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return obd.NullResponse(name)
	}

	now := s.clock.Now()
	s.car.Advance(now.Sub(s.lastPoll))
	s.lastPoll = now

	cmd, ok := obd.LookupName(name)
	if !ok || cmd.Value == nil {
		return obd.NullResponse(name)
	}
	return obd.Response{
		Name:  name,
		Value: cmd.Value(s.car.Snapshot()),
		Unit:  cmd.Unit,
	}
}

// SetThrottle passes a throttle position through to the model.
func (s *Simulator) SetThrottle(pct float64) bool {
	return s.car.SetThrottle(pct)
}

// Close stops the engine and marks the interface disconnected.
func (s *Simulator) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return
	}
	log.Printf("simulator: disconnecting from virtual OBD-II interface")
	s.car.StopEngine()
	s.connected = false
}
