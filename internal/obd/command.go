// Package obd defines the OBD-II parameter table the simulator supports:
// mode/PID definitions, their hex encode formulas, and the typed response
// shape used by the in-process query path.
package obd

import (
	"math"

	"github.com/abdulwahed-sweden/obd-simulator/internal/units"
	"github.com/abdulwahed-sweden/obd-simulator/internal/vehicle"
)

// OBD-II modes used by the simulator.
const (
	ModeCurrentData byte = 0x01
	ModeVehicleInfo byte = 0x09
)

// Mode 01 PIDs implemented by the simulator.
const (
	PIDSupported    byte = 0x00
	PIDEngineLoad   byte = 0x04
	PIDCoolantTemp  byte = 0x05
	PIDEngineRPM    byte = 0x0C
	PIDVehicleSpeed byte = 0x0D
	PIDIntakeTemp   byte = 0x0F
	PIDMAFRate      byte = 0x10
	PIDThrottlePos  byte = 0x11
	PIDFuelLevel    byte = 0x2F
)

// supportedBitmap is the PID-support bitmask returned for PID 00,
// advertising the PIDs in the 01-20 range this table implements.
var supportedBitmap = []byte{0xBE, 0x1F, 0xA8, 0x13}

// Command describes one supported OBD-II parameter: its identity, payload
// width, physical unit, and how to encode the current vehicle state into
// response data bytes.
type Command struct {
	Name   string
	Desc   string
	Mode   byte
	PID    byte
	Bytes  int
	Unit   string
	Encode func(vehicle.State) []byte
	Value  func(vehicle.State) float64
}

// commands is the static parameter table, built once at init and read-only
// afterwards.
var commands = buildTable()

// byName indexes the table by command name for the query facade.
var byName = func() map[string]Command {
	m := make(map[string]Command, len(commands))
	for _, c := range commands {
		if c.Name != "" {
			m[c.Name] = c
		}
	}
	return m
}()

func buildTable() map[uint16]Command {
	defs := []Command{
		{
			Name: "", Desc: "PIDs supported [01-20]",
			Mode: ModeCurrentData, PID: PIDSupported, Bytes: 4, Unit: "",
			Encode: func(vehicle.State) []byte { return supportedBitmap },
		},
		{
			Name: "ENGINE_LOAD", Desc: "Calculated Engine Load",
			Mode: ModeCurrentData, PID: PIDEngineLoad, Bytes: 1, Unit: units.Percent,
			Encode: func(s vehicle.State) []byte { return []byte{scaleByte(s.EngineLoadPct)} },
			Value:  func(s vehicle.State) float64 { return s.EngineLoadPct },
		},
		{
			Name: "COOLANT_TEMP", Desc: "Engine Coolant Temperature",
			Mode: ModeCurrentData, PID: PIDCoolantTemp, Bytes: 1, Unit: units.DegC,
			Encode: func(s vehicle.State) []byte { return []byte{tempByte(s.CoolantTempC)} },
			Value:  func(s vehicle.State) float64 { return s.CoolantTempC },
		},
		{
			Name: "RPM", Desc: "Engine RPM",
			Mode: ModeCurrentData, PID: PIDEngineRPM, Bytes: 2, Unit: units.RPM,
			Encode: func(s vehicle.State) []byte { return beUint16(s.RPM * 4) },
			Value:  func(s vehicle.State) float64 { return s.RPM },
		},
		{
			Name: "SPEED", Desc: "Vehicle Speed",
			Mode: ModeCurrentData, PID: PIDVehicleSpeed, Bytes: 1, Unit: units.KPH,
			Encode: func(s vehicle.State) []byte { return []byte{u8(s.SpeedKPH)} },
			Value:  func(s vehicle.State) float64 { return s.SpeedKPH },
		},
		{
			Name: "INTAKE_TEMP", Desc: "Intake Air Temperature",
			Mode: ModeCurrentData, PID: PIDIntakeTemp, Bytes: 1, Unit: units.DegC,
			Encode: func(s vehicle.State) []byte { return []byte{tempByte(s.IntakeTempC)} },
			Value:  func(s vehicle.State) float64 { return s.IntakeTempC },
		},
		{
			Name: "MAF", Desc: "Mass Air Flow Rate",
			Mode: ModeCurrentData, PID: PIDMAFRate, Bytes: 2, Unit: units.GramsPerSec,
			Encode: func(s vehicle.State) []byte { return beUint16(s.MAFGramsPerSec * 100) },
			Value:  func(s vehicle.State) float64 { return s.MAFGramsPerSec },
		},
		{
			Name: "THROTTLE_POS", Desc: "Throttle Position",
			Mode: ModeCurrentData, PID: PIDThrottlePos, Bytes: 1, Unit: units.Percent,
			Encode: func(s vehicle.State) []byte { return []byte{scaleByte(s.ThrottlePct)} },
			Value:  func(s vehicle.State) float64 { return s.ThrottlePct },
		},
		{
			Name: "FUEL_LEVEL", Desc: "Fuel Level Input",
			Mode: ModeCurrentData, PID: PIDFuelLevel, Bytes: 1, Unit: units.Percent,
			Encode: func(s vehicle.State) []byte { return []byte{scaleByte(s.FuelLevelPct)} },
			Value:  func(s vehicle.State) float64 { return s.FuelLevelPct },
		},
	}

	table := make(map[uint16]Command, len(defs))
	for _, c := range defs {
		table[key(c.Mode, c.PID)] = c
	}
	return table
}

func key(mode, pid byte) uint16 {
	return uint16(mode)<<8 | uint16(pid)
}

// Lookup returns the command definition for (mode, pid), if supported.
func Lookup(mode, pid byte) (Command, bool) {
	c, ok := commands[key(mode, pid)]
	return c, ok
}

// LookupName returns the command definition for a query-facade name such as
// "RPM" or "COOLANT_TEMP".
func LookupName(name string) (Command, bool) {
	c, ok := byName[name]
	return c, ok
}

// EncodePID encodes the current vehicle state into the data bytes for
// (mode, pid). The second return is false for unsupported parameters,
// which callers surface as "NO DATA".
func EncodePID(mode, pid byte, s vehicle.State) ([]byte, bool) {
	c, ok := commands[key(mode, pid)]
	if !ok || c.Encode == nil {
		return nil, false
	}
	return c.Encode(s), true
}

// scaleByte maps a 0-100 percentage onto a single byte (A*255/100).
func scaleByte(pct float64) byte {
	return u8(pct * 255 / 100)
}

// tempByte applies the standard OBD temperature offset (A = temp + 40).
func tempByte(c float64) byte {
	return u8(c + 40)
}

// u8 rounds and clamps to one unsigned byte.
func u8(v float64) byte {
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return byte(r)
}

// beUint16 rounds and clamps to two bytes, big-endian.
func beUint16(v float64) []byte {
	r := math.Round(v)
	if r < 0 {
		r = 0
	}
	if r > 65535 {
		r = 65535
	}
	n := uint16(r)
	return []byte{byte(n >> 8), byte(n)}
}
