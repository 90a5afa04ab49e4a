package vehicle

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parameters describes the fixed characteristics of one vehicle profile.
// Instances are treated as immutable once constructed.
type Parameters struct {
	IdleRPM            float64 `yaml:"idle_rpm"`
	RedlineRPM         float64 `yaml:"redline_rpm"`
	MaxSpeedKPH        float64 `yaml:"max_speed"`
	RPMPerThrottle     float64 `yaml:"rpm_per_throttle"`
	SpeedPerRPM        float64 `yaml:"speed_per_rpm"`
	NormalCoolantTempC float64 `yaml:"normal_coolant_temp"`
	// FuelRatePerSec is the fuel level percentage consumed per second at idle.
	FuelRatePerSec float64 `yaml:"fuel_consumption_rate"`
}

// Validate checks that the parameters describe a drivable vehicle.
func (p Parameters) Validate() error {
	if p.IdleRPM <= 0 {
		return fmt.Errorf("invalid idle_rpm %v: must be positive", p.IdleRPM)
	}
	if p.RedlineRPM <= p.IdleRPM {
		return fmt.Errorf("invalid redline_rpm %v: must exceed idle_rpm %v", p.RedlineRPM, p.IdleRPM)
	}
	if p.MaxSpeedKPH <= 0 {
		return fmt.Errorf("invalid max_speed %v: must be positive", p.MaxSpeedKPH)
	}
	if p.RPMPerThrottle < 0 || p.SpeedPerRPM < 0 || p.FuelRatePerSec < 0 {
		return fmt.Errorf("rpm_per_throttle, speed_per_rpm and fuel_consumption_rate must not be negative")
	}
	return nil
}

// builtinProfiles are the stock vehicle profiles available without a
// profile file.
var builtinProfiles = map[string]Parameters{
	"sedan": {
		IdleRPM:            800,
		RedlineRPM:         6500,
		MaxSpeedKPH:        200,
		RPMPerThrottle:     50,
		SpeedPerRPM:        0.03,
		NormalCoolantTempC: 90,
		FuelRatePerSec:     0.02,
	},
	"sports_car": {
		IdleRPM:            900,
		RedlineRPM:         8500,
		MaxSpeedKPH:        300,
		RPMPerThrottle:     70,
		SpeedPerRPM:        0.035,
		NormalCoolantTempC: 95,
		FuelRatePerSec:     0.02,
	},
	"truck": {
		IdleRPM:            700,
		RedlineRPM:         5500,
		MaxSpeedKPH:        160,
		RPMPerThrottle:     40,
		SpeedPerRPM:        0.025,
		NormalCoolantTempC: 85,
		FuelRatePerSec:     0.02,
	},
}

// DefaultParameters returns the sedan profile, the simulator default.
func DefaultParameters() Parameters {
	return builtinProfiles["sedan"]
}

// Profile returns a built-in vehicle profile by name.
func Profile(name string) (Parameters, bool) {
	p, ok := builtinProfiles[strings.ToLower(name)]
	return p, ok
}

// ProfileNames returns the sorted names of the built-in profiles.
func ProfileNames() []string {
	names := make([]string, 0, len(builtinProfiles))
	for name := range builtinProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadProfiles reads additional vehicle profiles from a YAML file keyed by
// profile name. Loaded profiles are validated but do not modify the
// built-in set.
func LoadProfiles(path string) (map[string]Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	profiles := make(map[string]Parameters)
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to parse profile file %s: %w", path, err)
	}

	for name, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
	}
	return profiles, nil
}
