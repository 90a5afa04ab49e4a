package serialport

import (
	"errors"
	"testing"
	"time"
)

func TestOptionsNormalizeDefaults(t *testing.T) {
	opts, err := Options{}.Normalize()
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if opts.BaudRate != DefaultBaudRate {
		t.Errorf("BaudRate = %d, want %d", opts.BaudRate, DefaultBaudRate)
	}
	if opts.DataBits != 8 || opts.StopBits != 1 || opts.Parity != "N" {
		t.Errorf("Normalize() = %+v, want 8-N-1", opts)
	}
}

func TestOptionsNormalizeErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"bad data bits", Options{DataBits: 9}},
		{"bad stop bits", Options{StopBits: 3}},
		{"bad parity", Options{Parity: "M"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.opts.Normalize(); err == nil {
				t.Errorf("Normalize(%+v) succeeded, want error", tt.opts)
			}
		})
	}
}

func TestOptionsNormalizeParityAliases(t *testing.T) {
	for alias, want := range map[string]string{
		"none": "N", "even": "E", "odd": "O", "n": "N", " E ": "E",
	} {
		opts, err := Options{Parity: alias}.Normalize()
		if err != nil {
			t.Errorf("Normalize(parity=%q) error = %v", alias, err)
			continue
		}
		if opts.Parity != want {
			t.Errorf("Normalize(parity=%q) = %q, want %q", alias, opts.Parity, want)
		}
	}
}

func TestOptionsMode(t *testing.T) {
	mode, err := Options{BaudRate: 115200, Parity: "even", StopBits: 2}.Mode()
	if err != nil {
		t.Fatalf("Mode() error = %v", err)
	}
	if mode.BaudRate != 115200 || mode.DataBits != 8 {
		t.Errorf("Mode() = %+v, want 115200 baud 8 data bits", mode)
	}
}

func TestScriptedPortReadWrite(t *testing.T) {
	p := NewScriptedPort()
	p.PushString("ATZ\r")

	buf := make([]byte, 16)
	n, err := p.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got := string(buf[:n]); got != "ATZ\r" {
		t.Errorf("Read() = %q, want %q", got, "ATZ\r")
	}

	if _, err := p.Write([]byte("OK\r>")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := string(p.Written()); got != "OK\r>" {
		t.Errorf("Written() = %q, want %q", got, "OK\r>")
	}
}

func TestScriptedPortReadTimesOut(t *testing.T) {
	p := NewScriptedPort()
	p.SetReadTimeout(20 * time.Millisecond)

	start := time.Now()
	n, err := p.Read(make([]byte, 8))
	elapsed := time.Since(start)

	if n != 0 || err != nil {
		t.Errorf("Read() = (%d, %v), want (0, nil) on timeout", n, err)
	}
	if elapsed < 10*time.Millisecond {
		t.Errorf("Read() returned after %v, want a bounded wait near the timeout", elapsed)
	}
}

func TestScriptedPortClosedReads(t *testing.T) {
	p := NewScriptedPort()
	p.Close()

	if _, err := p.Read(make([]byte, 8)); !errors.Is(err, ErrPortClosed) {
		t.Errorf("Read() after close error = %v, want ErrPortClosed", err)
	}
	if _, err := p.Write([]byte("x")); !errors.Is(err, ErrPortClosed) {
		t.Errorf("Write() after close error = %v, want ErrPortClosed", err)
	}
	if !p.Closed() {
		t.Error("Closed() = false after Close")
	}
}

func TestScriptedPortInjectedErrors(t *testing.T) {
	p := NewScriptedPort()
	boom := errors.New("boom")

	p.FailNextRead(boom)
	if _, err := p.Read(make([]byte, 8)); !errors.Is(err, boom) {
		t.Errorf("Read() error = %v, want injected error", err)
	}

	p.FailNextWrite(boom)
	if _, err := p.Write([]byte("x")); !errors.Is(err, boom) {
		t.Errorf("Write() error = %v, want injected error", err)
	}

	// Errors are one-shot.
	p.PushString("A")
	if _, err := p.Read(make([]byte, 8)); err != nil {
		t.Errorf("Read() after injected error = %v, want nil", err)
	}
}
