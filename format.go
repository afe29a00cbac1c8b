package chilltimer

import (
	"fmt"
	"strings"
)

// FormatClock renders seconds as MM:SS. Minutes are not wrapped into hours.
func FormatClock(seconds int) string {
	seconds = max(0, seconds)
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// FormatMinutes renders a configured duration the way an idle timer shows it.
func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:00", max(0, minutes))
}

// FormatDuration renders a human summary like "5 minutes and 1 second".
func FormatDuration(seconds int) string {
	seconds = max(0, seconds)
	mins, secs := seconds/60, seconds%60
	switch {
	case mins == 0:
		return plural(secs, "second")
	case secs == 0:
		return plural(mins, "minute")
	default:
		return strings.Join([]string{plural(mins, "minute"), plural(secs, "second")}, " and ")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
