// Package vehicle implements the continuous vehicle dynamics model behind
// the OBD-II simulator. A single Model instance owns all mutable vehicle
// state; the adapter byte-stream path and the in-process query path share
// it concurrently, so every mutation and snapshot goes through one mutex.
package vehicle

import (
	"log"
	"sync"
	"time"
)

const (
	ambientTempC     = 20.0
	warmupSeconds    = 180.0
	coastDecayKPH    = 2.0 // kph shed per second when coasting
	accelGapFraction = 0.2 // fraction of the speed gap closed per second
	rpmFlutter       = 50.0
	coolantJitterC   = 2.0
)

// State is a snapshot of the vehicle's physical quantities. The zero value
// is a vehicle at rest at ambient temperature with an empty tank; use
// NewModel for a properly initialised vehicle.
type State struct {
	Ignition      bool
	EngineRunning bool

	ThrottlePct      float64
	RPM              float64
	SpeedKPH         float64
	CoolantTempC     float64
	FuelLevelPct     float64
	IntakeTempC      float64
	MAFGramsPerSec   float64
	EngineLoadPct    float64
	WarmupElapsedSec float64
}

// Model owns one vehicle State and advances it over time. All methods are
// safe for concurrent use.
type Model struct {
	mu     sync.Mutex
	params Parameters
	noise  Noise
	state  State
}

// NewModel creates a vehicle at rest with the given parameters. A nil noise
// source disables sensor flutter.
func NewModel(params Parameters, noise Noise) *Model {
	if noise == nil {
		noise = NoNoise()
	}
	return &Model{
		params: params,
		noise:  noise,
		state: State{
			CoolantTempC: ambientTempC,
			IntakeTempC:  ambientTempC,
			FuelLevelPct: 75,
		},
	}
}

// Params returns the immutable parameters the model was built with.
func (m *Model) Params() Parameters {
	return m.params
}

// Snapshot returns a copy of the current vehicle state.
func (m *Model) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// StartEngine turns the ignition on and brings the engine to idle. It
// returns false if the engine is already running.
func (m *Model) StartEngine() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Ignition {
		return false
	}
	log.Printf("vehicle: engine started")
	m.state.Ignition = true
	m.state.EngineRunning = true
	m.state.RPM = m.params.IdleRPM
	m.state.WarmupElapsedSec = 0
	return true
}

// StopEngine shuts the engine down, zeroing rpm, speed, throttle, load and
// MAF. It returns false if the engine is already off.
func (m *Model) StopEngine() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.Ignition {
		return false
	}
	log.Printf("vehicle: engine stopped")
	m.state.Ignition = false
	m.state.EngineRunning = false
	m.state.RPM = 0
	m.state.SpeedKPH = 0
	m.state.ThrottlePct = 0
	m.state.EngineLoadPct = 0
	m.state.MAFGramsPerSec = 0
	return true
}

// SetThrottle stores the throttle position, clamped to [0, 100]. It returns
// false without modifying state if the engine is not running.
func (m *Model) SetThrottle(pct float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.EngineRunning {
		return false
	}
	m.state.ThrottlePct = clamp(pct, 0, 100)
	return true
}

// Advance moves the simulation forward by dt. It is a no-op while the
// engine is off.
func (m *Model) Advance(dt time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.EngineRunning || dt <= 0 {
		return
	}
	sec := dt.Seconds()
	s := &m.state
	p := m.params

	// Coolant warms linearly from ambient to operating temperature over
	// three minutes of engine time, then holds with a little drift.
	s.WarmupElapsedSec += sec
	if s.WarmupElapsedSec < warmupSeconds {
		s.CoolantTempC = ambientTempC + (p.NormalCoolantTempC-ambientTempC)*(s.WarmupElapsedSec/warmupSeconds)
	} else {
		s.CoolantTempC = p.NormalCoolantTempC + m.noise.Uniform(-coolantJitterC, coolantJitterC)
	}

	// RPM tracks the throttle with a bit of flutter. The clamp to the
	// idle/redline band must hold exactly; the flutter may not escape it.
	targetRPM := p.IdleRPM + s.ThrottlePct*p.RPMPerThrottle
	s.RPM = clamp(targetRPM+m.noise.Uniform(-rpmFlutter, rpmFlutter), p.IdleRPM, p.RedlineRPM)

	// Simplified single-gear speed model: coasting sheds speed at a fixed
	// rate, accelerating closes a fraction of the gap to the rpm-implied
	// speed. Deceleration is deliberately quicker than acceleration.
	if s.ThrottlePct < 5 {
		s.SpeedKPH = max(0, s.SpeedKPH-coastDecayKPH*sec)
	} else {
		targetSpeed := s.RPM * p.SpeedPerRPM
		s.SpeedKPH = clamp(s.SpeedKPH+(targetSpeed-s.SpeedKPH)*accelGapFraction*sec, 0, p.MaxSpeedKPH)
	}

	// Fuel burn scales up past 10% throttle.
	rate := p.FuelRatePerSec
	if s.ThrottlePct > 10 {
		rate *= 1 + s.ThrottlePct/50
	}
	s.FuelLevelPct = max(0, s.FuelLevelPct-rate*sec)

	// Derived values are pure functions of the state above.
	s.EngineLoadPct = s.RPM / p.RedlineRPM * 100
	s.MAFGramsPerSec = 5 + (s.RPM/1000)*10*(1+s.ThrottlePct/100)
	s.IntakeTempC = ambientTempC + (s.RPM/p.RedlineRPM)*15
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
