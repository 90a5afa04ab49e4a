package elm

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abdulwahed-sweden/obd-simulator/internal/obd"
	"github.com/abdulwahed-sweden/obd-simulator/internal/timeutil"
	"github.com/abdulwahed-sweden/obd-simulator/internal/vehicle"
)

const (
	resetBanner    = "ELM327 v1.5"
	identification = "ELM327 v1.5 OBD Simulator"
	deviceDesc     = "Virtual OBD-II Simulator"

	vin           = "VSIM00OBD00000001"
	calibrationID = "VIRTUAL-OBD-SIM"
	ecuName       = "VIRTUAL-ENGINE-ECU"

	resetDelay     = time.Second
	warmStartDelay = 500 * time.Millisecond

	// Real adapters tolerate arbitrarily long garbage input; we cap the
	// line buffer so a stream that never sends CR cannot grow memory
	// without bound.
	maxLineBytes = 512
)

// Mode 09 info PIDs served with fixed identification strings.
const (
	infoPIDVIN           byte = 0x02
	infoPIDCalibrationID byte = 0x04
	infoPIDECUName       byte = 0x0A
)

// Device is the adapter state machine. It consumes a raw byte stream,
// accumulates bytes until a carriage return, and dispatches the buffered
// command: AT commands mutate the adapter settings, OBD mode commands are
// encoded against the shared vehicle model and framed per the active
// settings. Responses are written to w as they are produced.
//
// Device is not safe for concurrent use; a single session goroutine feeds
// it.
type Device struct {
	car      *vehicle.Model
	w        io.Writer
	clock    timeutil.Clock
	noise    vehicle.Noise
	settings Settings
	line     []byte
}

// DeviceOption configures a Device.
type DeviceOption func(*Device)

// WithClock replaces the clock used for simulated reset delays.
func WithClock(c timeutil.Clock) DeviceOption {
	return func(d *Device) { d.clock = c }
}

// WithNoise replaces the noise source used for the battery voltage
// reading.
func WithNoise(n vehicle.Noise) DeviceOption {
	return func(d *Device) { d.noise = n }
}

// NewDevice creates an adapter with default settings writing responses to
// w.
func NewDevice(car *vehicle.Model, w io.Writer, opts ...DeviceOption) *Device {
	d := &Device{
		car:      car,
		w:        w,
		clock:    timeutil.RealClock{},
		noise:    vehicle.NewRandomNoise(time.Now().UnixNano()),
		settings: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Settings returns a copy of the current adapter settings.
func (d *Device) Settings() Settings {
	return d.settings
}

// Greet writes the initial prompt a freshly attached adapter presents.
func (d *Device) Greet() error {
	return d.write(">\r")
}

// Feed consumes raw bytes from the transport. Every carriage return
// triggers dispatch of the buffered command; all other bytes accumulate.
// Only transport write failures are returned as errors; malformed
// commands produce textual responses instead.
func (d *Device) Feed(data []byte) error {
	for _, b := range data {
		if b != '\r' {
			if len(d.line) < maxLineBytes {
				d.line = append(d.line, b)
			}
			continue
		}
		command := strings.ToUpper(strings.TrimSpace(string(d.line)))
		d.line = d.line[:0]
		if err := d.dispatch(command); err != nil {
			return err
		}
	}
	return nil
}

// dispatch processes one complete command and writes its response plus the
// trailing prompt.
func (d *Device) dispatch(command string) error {
	if command == "" {
		return nil
	}
	d.settings.LastCommand = command

	if d.settings.Echo {
		echo := command + "\r"
		if d.settings.Linefeed {
			echo += "\n"
		}
		if err := d.write(echo); err != nil {
			return err
		}
	}

	var response string
	switch {
	case strings.HasPrefix(command, "AT"):
		response = d.handleAT(command)
	case strings.HasPrefix(command, "01"):
		response = d.handleMode01(command)
	case strings.HasPrefix(command, "09"):
		response = d.handleMode09(command)
	default:
		response = "?"
	}

	if response == "" {
		return nil
	}
	if err := d.write(response); err != nil {
		return err
	}
	if !strings.HasSuffix(response, ">") {
		return d.write("\r>")
	}
	return nil
}

// atKind enumerates the AT commands the adapter implements. Anything
// unlisted acknowledges with OK, as real adapters do.
type atKind int

const (
	atOther atKind = iota
	atReset
	atWarmStart
	atEcho
	atLinefeed
	atHeaders
	atSpaces
	atSetProtocol
	atDescribeProtocol
	atReadVoltage
	atIdentify
	atDeviceDesc
)

// classifyAT splits an AT command into its kind and argument suffix.
func classifyAT(command string) (atKind, string) {
	rest := command[2:]
	switch {
	case rest == "Z":
		return atReset, ""
	case rest == "WS":
		return atWarmStart, ""
	case rest == "E0" || rest == "E1":
		return atEcho, rest[1:]
	case rest == "L0" || rest == "L1":
		return atLinefeed, rest[1:]
	case rest == "H0" || rest == "H1":
		return atHeaders, rest[1:]
	case rest == "S0" || rest == "S1":
		return atSpaces, rest[1:]
	case strings.HasPrefix(rest, "SP") && len(rest) == 3:
		return atSetProtocol, rest[2:]
	case rest == "DP":
		return atDescribeProtocol, ""
	case rest == "RV":
		return atReadVoltage, ""
	case rest == "I":
		return atIdentify, ""
	case rest == "@1":
		return atDeviceDesc, ""
	default:
		return atOther, rest
	}
}

func (d *Device) handleAT(command string) string {
	kind, arg := classifyAT(command)
	switch kind {
	case atReset:
		d.settings = DefaultSettings()
		d.clock.Sleep(resetDelay)
		return resetBanner + "\r>"
	case atWarmStart:
		d.clock.Sleep(warmStartDelay)
		return resetBanner + "\r>"
	case atEcho:
		d.settings.Echo = arg == "1"
		return "OK"
	case atLinefeed:
		d.settings.Linefeed = arg == "1"
		return "OK"
	case atHeaders:
		d.settings.Headers = arg == "1"
		return "OK"
	case atSpaces:
		d.settings.Spaces = arg == "1"
		return "OK"
	case atSetProtocol:
		if id, ok := ParseProtocolDigit(arg[0]); ok {
			d.settings.Protocol = id
		}
		return "OK"
	case atDescribeProtocol:
		return DisplayName(d.settings.Protocol)
	case atReadVoltage:
		return fmt.Sprintf("%.1fV", d.noise.Uniform(12.0, 14.5))
	case atIdentify:
		return identification
	case atDeviceDesc:
		return deviceDesc
	default:
		return "OK"
	}
}

// handleMode01 serves current-data requests: exactly four hex characters,
// encoded against a snapshot of the shared model.
func (d *Device) handleMode01(command string) string {
	mode, pid, ok := parseModePID(command)
	if !ok {
		return "?"
	}

	data, supported := obd.EncodePID(mode, pid, d.car.Snapshot())
	if !supported {
		return "NO DATA"
	}
	return d.formatResponse(mode, pid, strings.ToUpper(hex.EncodeToString(data)))
}

// handleMode09 serves the fixed vehicle-information strings.
func (d *Device) handleMode09(command string) string {
	mode, pid, ok := parseModePID(command)
	if !ok {
		return "?"
	}

	var info string
	switch pid {
	case infoPIDVIN:
		info = vin
	case infoPIDCalibrationID:
		info = calibrationID
	case infoPIDECUName:
		info = ecuName
	default:
		return "NO DATA"
	}
	return d.formatResponse(mode, pid, hexEncodeASCII(info))
}

// parseModePID validates the 4-hex-character modePid command shape.
func parseModePID(command string) (mode, pid byte, ok bool) {
	if len(command) != 4 {
		return 0, 0, false
	}
	raw, err := hex.DecodeString(command)
	if err != nil {
		return 0, 0, false
	}
	return raw[0], raw[1], true
}

// formatResponse renders data bytes per the active adapter settings and
// terminates the line.
func (d *Device) formatResponse(mode, pid byte, data string) string {
	var response string
	if d.settings.Headers {
		response = FormatFrame(LookupProfile(d.settings.Protocol), mode, pid, data)
	} else {
		response = FormatShort(mode, pid, data, d.settings.Spaces)
	}

	response += "\r"
	if d.settings.Linefeed {
		response += "\n"
	}
	return response
}

func (d *Device) write(s string) error {
	if _, err := io.WriteString(d.w, s); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}
