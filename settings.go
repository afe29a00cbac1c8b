package chilltimer

import "math"

const (
	MinDurationMinutes = 1
	MaxDurationMinutes = 180

	DefaultDurationMinutes = 10
	DefaultGongVolume      = 0.7
)

type Settings struct {
	DurationMinutes int
	GongVolume      float64
}

func DefaultSettings() Settings {
	return Settings{
		DurationMinutes: DefaultDurationMinutes,
		GongVolume:      DefaultGongVolume,
	}
}

// Normalize clamps every field into its valid range.
func (s Settings) Normalize() Settings {
	return Settings{
		DurationMinutes: ClampDuration(s.DurationMinutes),
		GongVolume:      ClampVolume(s.GongVolume),
	}
}

func ClampDuration(minutes int) int {
	return max(MinDurationMinutes, min(MaxDurationMinutes, minutes))
}

func ClampVolume(volume float64) float64 {
	if math.IsNaN(volume) {
		return 0
	}
	return max(0, min(1, volume))
}
