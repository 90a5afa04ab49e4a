package elm

import (
	"fmt"
	"strconv"
	"strings"
)

// Checksum computes the OBD message checksum over a hex string: the byte
// pairs are summed as unsigned integers and the total folded with
// ((sum XOR 0xFF) + 1) mod 256.
func Checksum(message string) byte {
	var total uint32
	for i := 0; i+1 < len(message); i += 2 {
		b, err := strconv.ParseUint(message[i:i+2], 16, 8)
		if err != nil {
			continue
		}
		total += uint32(b)
	}
	return byte((total ^ 0xFF) + 1)
}

// FormatFrame renders a fully headed response line for the given profile:
// header, an optional CAN length byte, the response mode (request + 0x40),
// the PID, the data bytes, and an optional checksum. Data is an uppercase
// hex string.
func FormatFrame(p Profile, mode, pid byte, data string) string {
	header := fmt.Sprintf("%0*X", p.HeaderDigits, p.SenderID())

	message := fmt.Sprintf("%02X%02X%s", mode+0x40, pid, data)
	if p.LengthByte {
		// Length counts the mode and PID bytes plus the payload.
		message = fmt.Sprintf("%02X%s", len(data)/2+2, message)
	}

	if p.Checksum {
		return fmt.Sprintf("%s %s %02X", header, message, Checksum(message))
	}
	return fmt.Sprintf("%s %s", header, message)
}

// FormatShort renders the unheaded response form: response mode, PID and
// data with no sender id or checksum, optionally spaced between byte
// pairs.
func FormatShort(mode, pid byte, data string, spaced bool) string {
	response := fmt.Sprintf("%02X%02X%s", mode+0x40, pid, data)
	if !spaced {
		return response
	}

	var b strings.Builder
	for i := 0; i < len(response); i += 2 {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + 2
		if end > len(response) {
			end = len(response)
		}
		b.WriteString(response[i:end])
	}
	return b.String()
}

// hexEncodeASCII renders s as uppercase hex byte pairs, used for the
// Mode 09 string responses (VIN, calibration id, ECU name).
func hexEncodeASCII(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		fmt.Fprintf(&b, "%02X", s[i])
	}
	return b.String()
}
