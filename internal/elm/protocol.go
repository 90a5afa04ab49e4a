// Package elm implements the ELM327-compatible adapter: the protocol
// profile table, the response framer, and the state machine that turns a
// raw command byte stream into OBD responses against a shared vehicle
// model.
package elm

// ProtocolID selects one of the bus protocol variants an ELM327 can
// present, addressed by the ATSP hex digit.
type ProtocolID int

// Protocol identifiers in ATSP order.
const (
	ProtocolAuto ProtocolID = iota
	ProtocolJ1850PWM
	ProtocolJ1850VPW
	ProtocolISO9141
	ProtocolKWP5Baud
	ProtocolKWPFast
	ProtocolCAN11_500
	ProtocolCAN29_500
	ProtocolCAN11_250
	ProtocolCAN29_250
	ProtocolJ1939
)

// Standard ECU sender addresses for framed responses.
const (
	senderID11Bit uint32 = 0x7E8
	senderID29Bit uint32 = 0x18DAF110
)

// Profile describes the framing rules of one protocol variant: how many
// hex digits the header carries, whether a CAN length byte prefixes the
// payload, and whether a trailing checksum byte is appended.
type Profile struct {
	ID           ProtocolID
	Name         string
	HeaderDigits int
	LengthByte   bool
	Checksum     bool
}

// SenderID returns the ECU address rendered into this profile's header.
func (p Profile) SenderID() uint32 {
	if p.HeaderDigits == 8 {
		return senderID29Bit
	}
	return senderID11Bit
}

// profiles holds the ten fixed protocol variants. The legacy buses carry a
// checksum byte; the 11-bit CAN variants keep it too because the adapter's
// framed output always included one, while the 29-bit variants drop it and
// widen the header to a full 29-bit identifier.
var profiles = map[ProtocolID]Profile{
	ProtocolJ1850PWM:  {ProtocolJ1850PWM, "SAE J1850 PWM", 3, false, true},
	ProtocolJ1850VPW:  {ProtocolJ1850VPW, "SAE J1850 VPW", 3, false, true},
	ProtocolISO9141:   {ProtocolISO9141, "ISO 9141-2", 3, false, true},
	ProtocolKWP5Baud:  {ProtocolKWP5Baud, "ISO 14230-4 (KWP 5BAUD)", 3, false, true},
	ProtocolKWPFast:   {ProtocolKWPFast, "ISO 14230-4 (KWP FAST)", 3, false, true},
	ProtocolCAN11_500: {ProtocolCAN11_500, "ISO 15765-4 (CAN 11/500)", 3, true, true},
	ProtocolCAN29_500: {ProtocolCAN29_500, "ISO 15765-4 (CAN 29/500)", 8, false, false},
	ProtocolCAN11_250: {ProtocolCAN11_250, "ISO 15765-4 (CAN 11/250)", 3, true, true},
	ProtocolCAN29_250: {ProtocolCAN29_250, "ISO 15765-4 (CAN 29/250)", 8, false, false},
	ProtocolJ1939:     {ProtocolJ1939, "SAE J1939 (CAN 29/250)", 8, false, false},
}

// LookupProfile returns the framing profile for id. ProtocolAuto resolves
// to CAN 11/500, the variant the adapter frames with until a protocol is
// pinned.
func LookupProfile(id ProtocolID) Profile {
	if id == ProtocolAuto {
		return profiles[ProtocolCAN11_500]
	}
	if p, ok := profiles[id]; ok {
		return p
	}
	return profiles[ProtocolCAN11_500]
}

// DisplayName returns the string ATDP reports for id.
func DisplayName(id ProtocolID) string {
	if id == ProtocolAuto {
		return "AUTO"
	}
	if p, ok := profiles[id]; ok {
		return p.Name
	}
	return "AUTO"
}

// ParseProtocolDigit maps an ATSP argument character onto a protocol
// identifier. Valid digits are 0 (auto) through 9 and A.
func ParseProtocolDigit(c byte) (ProtocolID, bool) {
	switch {
	case c >= '0' && c <= '9':
		return ProtocolID(c - '0'), true
	case c == 'A':
		return ProtocolJ1939, true
	default:
		return ProtocolAuto, false
	}
}
