// Package units provides shared unit tags and conversions for vehicle data
package units

// Unit constants for the values reported by the simulator
const (
	RPM         = "rpm"
	KPH         = "kph"
	MPH         = "mph"
	DegC        = "degC"
	DegF        = "degF"
	Percent     = "percent"
	GramsPerSec = "g/s"
	Volt        = "V"
)

// ValidUnits contains all unit values the simulator can report
var ValidUnits = []string{RPM, KPH, MPH, DegC, DegF, Percent, GramsPerSec, Volt}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// KPHToMPH converts a speed in kilometres per hour to miles per hour
func KPHToMPH(kph float64) float64 {
	return kph / 1.609344
}

// CToF converts a temperature in degrees Celsius to degrees Fahrenheit
func CToF(c float64) float64 {
	return c*9/5 + 32
}

// Convert converts a value between two supported units. Unsupported
// conversions return the value unchanged.
func Convert(value float64, from, to string) float64 {
	switch {
	case from == to:
		return value
	case from == KPH && to == MPH:
		return KPHToMPH(value)
	case from == MPH && to == KPH:
		return value * 1.609344
	case from == DegC && to == DegF:
		return CToF(value)
	case from == DegF && to == DegC:
		return (value - 32) * 5 / 9
	default:
		return value
	}
}
