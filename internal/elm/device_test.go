package elm

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/abdulwahed-sweden/obd-simulator/internal/timeutil"
	"github.com/abdulwahed-sweden/obd-simulator/internal/vehicle"
)

// testDevice wires a Device to an in-memory buffer with a mock clock and
// deterministic noise.
type testDevice struct {
	dev   *Device
	car   *vehicle.Model
	clock *timeutil.MockClock
	out   *bytes.Buffer
}

func newTestDevice(t *testing.T) *testDevice {
	t.Helper()
	car := vehicle.NewModel(vehicle.DefaultParameters(), vehicle.NoNoise())
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	out := &bytes.Buffer{}
	dev := NewDevice(car, out, WithClock(clock), WithNoise(vehicle.NoNoise()))
	return &testDevice{dev: dev, car: car, clock: clock, out: out}
}

// send feeds one CR-terminated command and returns everything the adapter
// wrote in response.
func (td *testDevice) send(t *testing.T, command string) string {
	t.Helper()
	td.out.Reset()
	if err := td.dev.Feed([]byte(command + "\r")); err != nil {
		t.Fatalf("Feed(%q) error = %v", command, err)
	}
	return td.out.String()
}

func TestDeviceEcho(t *testing.T) {
	td := newTestDevice(t)

	got := td.send(t, "ATI")
	if !strings.HasPrefix(got, "ATI\r\n") {
		t.Errorf("response %q does not start with echoed command", got)
	}

	td.send(t, "ATE0")
	got = td.send(t, "ATI")
	if strings.HasPrefix(got, "ATI") {
		t.Errorf("response %q still echoes after ATE0", got)
	}
}

func TestDevicePromptTermination(t *testing.T) {
	td := newTestDevice(t)
	td.send(t, "ATE0")

	// Plain responses gain CR + prompt; reset banner already ends in one.
	if got := td.send(t, "ATH0"); got != "OK\r>" {
		t.Errorf("ATH0 response = %q, want OK\\r>", got)
	}
	if got := td.send(t, "ATZ"); !strings.HasSuffix(got, "ELM327 v1.5\r>") || strings.HasSuffix(got, ">\r>") {
		t.Errorf("ATZ response = %q, want single trailing prompt", got)
	}
}

func TestDeviceEmptyCommand(t *testing.T) {
	td := newTestDevice(t)
	if got := td.send(t, ""); got != "" {
		t.Errorf("empty command produced %q, want no response", got)
	}
	if got := td.send(t, "   "); got != "" {
		t.Errorf("blank command produced %q, want no response", got)
	}
}

func TestDeviceUnknownCommand(t *testing.T) {
	td := newTestDevice(t)
	td.send(t, "ATE0")

	for _, cmd := range []string{"HELLO", "0", "010", "01XYZW", "10FF"} {
		if got := td.send(t, cmd); got != "?\r>" {
			t.Errorf("command %q response = %q, want ?\\r>", cmd, got)
		}
	}
}

func TestDeviceATZResetsSettings(t *testing.T) {
	td := newTestDevice(t)
	td.send(t, "ATE0")
	td.send(t, "ATL0")
	td.send(t, "ATH1")
	td.send(t, "ATS0")
	td.send(t, "ATSP3")

	td.send(t, "ATZ")

	want := DefaultSettings()
	got := td.dev.Settings()
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Settings{}, "LastCommand")); diff != "" {
		t.Errorf("settings after ATZ mismatch (-want +got):\n%s", diff)
	}

	sleeps := td.clock.Sleeps()
	if len(sleeps) == 0 || sleeps[len(sleeps)-1] != time.Second {
		t.Errorf("ATZ recorded sleeps %v, want trailing 1s reset delay", sleeps)
	}
}

func TestDeviceATWSDelay(t *testing.T) {
	td := newTestDevice(t)
	got := td.send(t, "ATWS")
	if !strings.Contains(got, "ELM327 v1.5") {
		t.Errorf("ATWS response = %q, want reset banner", got)
	}

	sleeps := td.clock.Sleeps()
	if len(sleeps) == 0 || sleeps[len(sleeps)-1] != 500*time.Millisecond {
		t.Errorf("ATWS recorded sleeps %v, want trailing 500ms delay", sleeps)
	}
}

func TestDeviceATToggles(t *testing.T) {
	td := newTestDevice(t)

	td.send(t, "ATE0")
	td.send(t, "ATL0")
	td.send(t, "ATH1")
	td.send(t, "ATS0")

	got := td.dev.Settings()
	if got.Echo || got.Linefeed || !got.Headers || got.Spaces {
		t.Errorf("settings after toggles = %+v", got)
	}

	td.send(t, "ATE1")
	td.send(t, "ATL1")
	td.send(t, "ATH0")
	td.send(t, "ATS1")

	got = td.dev.Settings()
	if !got.Echo || !got.Linefeed || got.Headers || !got.Spaces {
		t.Errorf("settings after re-toggles = %+v", got)
	}
}

func TestDeviceATSPAndATDP(t *testing.T) {
	td := newTestDevice(t)
	td.send(t, "ATE0")

	if got := td.send(t, "ATDP"); got != "AUTO\r>" {
		t.Errorf("ATDP before selection = %q, want AUTO\\r>", got)
	}

	if got := td.send(t, "ATSP6"); got != "OK\r>" {
		t.Errorf("ATSP6 = %q, want OK\\r>", got)
	}
	if got := td.send(t, "ATDP"); got != "ISO 15765-4 (CAN 11/500)\r>" {
		t.Errorf("ATDP after ATSP6 = %q", got)
	}

	// Invalid digit acknowledges but leaves the protocol unchanged.
	td.send(t, "ATSPX")
	if got := td.dev.Settings().Protocol; got != ProtocolCAN11_500 {
		t.Errorf("protocol after ATSPX = %v, want CAN 11/500", got)
	}
}

func TestDeviceATRV(t *testing.T) {
	td := newTestDevice(t)
	td.send(t, "ATE0")

	got := td.send(t, "ATRV")
	got = strings.TrimSuffix(got, "\r>")
	if !strings.HasSuffix(got, "V") {
		t.Fatalf("ATRV response = %q, want a voltage string", got)
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(got, "V"), 64)
	if err != nil {
		t.Fatalf("ATRV voltage %q did not parse: %v", got, err)
	}
	if v < 12.0 || v > 14.5 {
		t.Errorf("ATRV voltage %v outside [12.0, 14.5]", v)
	}
}

func TestDeviceATIdentification(t *testing.T) {
	td := newTestDevice(t)
	td.send(t, "ATE0")

	if got := td.send(t, "ATI"); got != "ELM327 v1.5 OBD Simulator\r>" {
		t.Errorf("ATI = %q", got)
	}
	if got := td.send(t, "AT@1"); got != "Virtual OBD-II Simulator\r>" {
		t.Errorf("AT@1 = %q", got)
	}
	// Unlisted AT commands acknowledge by default.
	if got := td.send(t, "ATAT1"); got != "OK\r>" {
		t.Errorf("ATAT1 = %q, want OK\\r>", got)
	}
}

func TestDeviceMode01Speed(t *testing.T) {
	td := newTestDevice(t)
	td.send(t, "ATE0")
	td.send(t, "ATL0")

	td.car.StartEngine()
	td.car.SetThrottle(50)
	// Drive until the speed model settles, then pin state via snapshot.
	for i := 0; i < 300; i++ {
		td.car.Advance(time.Second)
	}

	snap := td.car.Snapshot()
	wantData := int(snap.SpeedKPH + 0.5)

	got := td.send(t, "010D")
	got = strings.TrimSuffix(got, "\r>")
	got = strings.TrimSuffix(got, "\r")
	fields := strings.Fields(got)
	if len(fields) != 3 || fields[0] != "41" || fields[1] != "0D" {
		t.Fatalf("010D response = %q, want 41 0D <speed>", got)
	}
	data, err := strconv.ParseUint(fields[2], 16, 8)
	if err != nil || int(data) != wantData {
		t.Errorf("010D data byte = %v (%v), want %d", fields[2], err, wantData)
	}
}

func TestDeviceMode01RPMEncoding(t *testing.T) {
	td := newTestDevice(t)
	td.send(t, "ATE0")
	td.send(t, "ATL0")
	td.send(t, "ATS0")

	// Engine off: rpm is zero.
	if got := td.send(t, "010C"); got != "410C0000\r\r>" {
		t.Errorf("010C with engine off = %q, want 410C0000\\r\\r>", got)
	}
}

func TestDeviceMode01SupportBitmap(t *testing.T) {
	td := newTestDevice(t)
	td.send(t, "ATE0")
	td.send(t, "ATL0")

	if got := td.send(t, "0100"); got != "41 00 BE 1F A8 13\r\r>" {
		t.Errorf("0100 = %q, want 41 00 BE 1F A8 13\\r\\r>", got)
	}
}

func TestDeviceMode01UnsupportedPID(t *testing.T) {
	td := newTestDevice(t)
	td.send(t, "ATE0")

	if got := td.send(t, "01FF"); got != "NO DATA\r>" {
		t.Errorf("01FF = %q, want NO DATA\\r>", got)
	}
}

func TestDeviceMode01FramedCAN11(t *testing.T) {
	td := newTestDevice(t)
	td.send(t, "ATE0")
	td.send(t, "ATL0")
	td.send(t, "ATH1")
	td.send(t, "ATSP6")

	// Engine off keeps speed at zero: data byte 00.
	got := td.send(t, "010D")
	want := "7E8 03410D00 " // checksum follows
	if !strings.HasPrefix(got, want) {
		t.Fatalf("framed 010D = %q, want prefix %q", got, want)
	}
	wantCk := Checksum("03410D00")
	gotCk, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(got, want), "\r\r>"), 16, 8)
	if err != nil || byte(gotCk) != wantCk {
		t.Errorf("framed 010D checksum = %q (%v), want %02X", got, err, wantCk)
	}
}

func TestDeviceMode09(t *testing.T) {
	td := newTestDevice(t)
	td.send(t, "ATE0")
	td.send(t, "ATL0")
	td.send(t, "ATS0")

	got := td.send(t, "0902")
	if !strings.HasPrefix(got, "4902") {
		t.Fatalf("0902 = %q, want 4902-prefixed VIN", got)
	}
	payload := strings.TrimSuffix(strings.TrimPrefix(got, "4902"), "\r\r>")
	decoded := make([]byte, 0, len(payload)/2)
	for i := 0; i+1 < len(payload); i += 2 {
		b, err := strconv.ParseUint(payload[i:i+2], 16, 8)
		if err != nil {
			t.Fatalf("VIN payload %q is not hex: %v", payload, err)
		}
		decoded = append(decoded, byte(b))
	}
	if got := string(decoded); got != "VSIM00OBD00000001" {
		t.Errorf("decoded VIN = %q, want VSIM00OBD00000001", got)
	}

	if got := td.send(t, "0999"); got != "NO DATA\r>" {
		t.Errorf("0999 = %q, want NO DATA\\r>", got)
	}
}

func TestDeviceCaseInsensitive(t *testing.T) {
	td := newTestDevice(t)
	td.send(t, "ATE0")

	if got := td.send(t, "atdp"); got != "AUTO\r>" {
		t.Errorf("lowercase atdp = %q, want AUTO\\r>", got)
	}
	if got := td.send(t, "01ff"); got != "NO DATA\r>" {
		t.Errorf("lowercase 01ff = %q, want NO DATA\\r>", got)
	}
}

func TestDevicePartialCommandsAccumulate(t *testing.T) {
	td := newTestDevice(t)
	td.send(t, "ATE0")
	td.out.Reset()

	// Bytes dribble in across several feeds; nothing happens until CR.
	for _, chunk := range []string{"AT", "D", "P"} {
		if err := td.dev.Feed([]byte(chunk)); err != nil {
			t.Fatal(err)
		}
		if td.out.Len() != 0 {
			t.Fatalf("adapter responded %q before terminator", td.out.String())
		}
	}
	if err := td.dev.Feed([]byte("\r")); err != nil {
		t.Fatal(err)
	}
	if got := td.out.String(); got != "AUTO\r>" {
		t.Errorf("dribbled ATDP = %q, want AUTO\\r>", got)
	}
}

func TestDeviceGarbageFlood(t *testing.T) {
	td := newTestDevice(t)
	td.send(t, "ATE0")

	// A CR-less flood larger than the line cap must not wedge the adapter.
	flood := bytes.Repeat([]byte{'X'}, 4*maxLineBytes)
	if err := td.dev.Feed(flood); err != nil {
		t.Fatal(err)
	}
	if got := td.send(t, ""); got != "?\r>" {
		t.Errorf("flood termination = %q, want ?\\r>", got)
	}

	// The adapter still works afterwards.
	if got := td.send(t, "ATDP"); got != "AUTO\r>" {
		t.Errorf("ATDP after flood = %q, want AUTO\\r>", got)
	}
}
