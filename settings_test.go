package chilltimer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, ClampDuration(-3))
	assert.Equal(t, 1, ClampDuration(0))
	assert.Equal(t, 25, ClampDuration(25))
	assert.Equal(t, 180, ClampDuration(180))
	assert.Equal(t, 180, ClampDuration(181))
}

func TestClampVolume(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, ClampVolume(-0.1))
	assert.Equal(t, 0.35, ClampVolume(0.35))
	assert.Equal(t, 1.0, ClampVolume(1.5))
	assert.Equal(t, 0.0, ClampVolume(math.NaN()))
}

func TestSettings_Normalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Settings{DurationMinutes: 180, GongVolume: 0}, Settings{DurationMinutes: 900, GongVolume: -2}.Normalize())
	assert.Equal(t, DefaultSettings(), DefaultSettings().Normalize())
}

func TestShouldLog(t *testing.T) {
	t.Parallel()

	assert.False(t, ShouldLog(SessionRecord{ActualDurationSeconds: 59}))
	assert.True(t, ShouldLog(SessionRecord{ActualDurationSeconds: 60}))
}

func TestSessionRecord_OvertimeSeconds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, SessionRecord{TargetSeconds: 600, ActualDurationSeconds: 30}.OvertimeSeconds())
	assert.Equal(t, 45, SessionRecord{TargetSeconds: 600, ActualDurationSeconds: 645}.OvertimeSeconds())
}
