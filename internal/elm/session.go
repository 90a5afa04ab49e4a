package elm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/abdulwahed-sweden/obd-simulator/internal/serialport"
	"github.com/abdulwahed-sweden/obd-simulator/internal/timeutil"
	"github.com/abdulwahed-sweden/obd-simulator/internal/vehicle"
)

// DefaultReadTimeout bounds each transport read so the simulation keeps
// advancing while no bytes arrive and cancellation stays prompt.
const DefaultReadTimeout = 100 * time.Millisecond

// Session drives one adapter Device from a transport. It owns the reader
// loop: bounded-timeout reads feed the device, and the shared vehicle
// model is advanced by the elapsed clock delta on every iteration whether
// or not traffic arrived.
type Session struct {
	id          string
	port        serialport.Porter
	car         *vehicle.Model
	dev         *Device
	clock       timeutil.Clock
	noise       vehicle.Noise
	readTimeout time.Duration
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionClock replaces the clock used for simulation deltas and
// simulated AT delays.
func WithSessionClock(c timeutil.Clock) SessionOption {
	return func(s *Session) { s.clock = c }
}

// WithSessionNoise replaces the device noise source.
func WithSessionNoise(n vehicle.Noise) SessionOption {
	return func(s *Session) { s.noise = n }
}

// WithReadTimeout overrides the bounded read timeout.
func WithReadTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.readTimeout = d }
}

// NewSession creates a session for the given transport and vehicle model.
func NewSession(port serialport.Porter, car *vehicle.Model, opts ...SessionOption) *Session {
	s := &Session{
		id:          uuid.NewString(),
		port:        port,
		car:         car,
		clock:       timeutil.RealClock{},
		readTimeout: DefaultReadTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	devOpts := []DeviceOption{WithClock(s.clock)}
	if s.noise != nil {
		devOpts = append(devOpts, WithNoise(s.noise))
	}
	s.dev = NewDevice(car, port, devOpts...)
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Device returns the adapter state machine driven by this session.
func (s *Session) Device() *Device { return s.dev }

// Run starts the engine and services the transport until the context is
// cancelled or the transport fails. A transport error is fatal to the
// session, not to the process: the engine is stopped and the port released
// on the way out, and callers must open a fresh session to reconnect.
func (s *Session) Run(ctx context.Context) error {
	log.Printf("elm: session %s starting", s.id)

	s.car.StartEngine()
	defer func() {
		s.car.StopEngine()
		if err := s.port.Close(); err != nil {
			log.Printf("elm: session %s failed to close port: %v", s.id, err)
		}
		log.Printf("elm: session %s stopped", s.id)
	}()

	if tp, ok := s.port.(serialport.TimeoutPorter); ok {
		if err := tp.SetReadTimeout(s.readTimeout); err != nil {
			return fmt.Errorf("failed to set read timeout: %w", err)
		}
	}

	if err := s.dev.Greet(); err != nil {
		return err
	}

	buf := make([]byte, 64)
	last := s.clock.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Keep the simulation live even when the wire is quiet.
		now := s.clock.Now()
		s.car.Advance(now.Sub(last))
		last = now

		n, err := s.port.Read(buf)
		if err != nil {
			log.Printf("elm: session %s transport error: %v", s.id, err)
			return err
		}
		if n == 0 {
			continue // read timed out with no data
		}

		if err := s.dev.Feed(buf[:n]); err != nil {
			log.Printf("elm: session %s transport error: %v", s.id, err)
			return err
		}
	}
}
