package buildconfig

// ModeEnvVar is the environment variable the build mode is read from.
const ModeEnvVar = "NODE_ENV"

// Mode selects development or production oriented output.
type Mode string

const (
	ModeUnset       Mode = ""
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// ParseMode maps the raw environment value to a Mode, anything unrecognised is ModeUnset.
func ParseMode(raw string) Mode {
	switch Mode(raw) {
	case ModeDevelopment:
		return ModeDevelopment
	case ModeProduction:
		return ModeProduction
	default:
		return ModeUnset
	}
}

func (m Mode) IsDevelopment() bool {
	return m == ModeDevelopment
}

func (m Mode) String() string {
	if m == ModeUnset {
		return "unset"
	}
	return string(m)
}
