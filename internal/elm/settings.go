package elm

// Settings is the session-scoped adapter configuration mutated by AT
// commands. ATZ restores the defaults; the settings die with the session.
type Settings struct {
	Echo        bool
	Linefeed    bool
	Headers     bool
	Spaces      bool
	Protocol    ProtocolID
	LastCommand string
}

// DefaultSettings returns the power-on adapter configuration.
func DefaultSettings() Settings {
	return Settings{
		Echo:     true,
		Linefeed: true,
		Headers:  false,
		Spaces:   true,
		Protocol: ProtocolAuto,
	}
}
