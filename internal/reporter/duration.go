package reporter

import (
	"fmt"
	"time"
)

// FormatDuration renders d the way original_source/src/duration.rs does:
// seconds to two decimals below a minute, otherwise integer minutes/hours.
func FormatDuration(d time.Duration) string {
	secs := d.Seconds()
	switch {
	case secs > 60*60:
		hours := int(secs) / (60 * 60)
		mins := int(secs/60) % 60
		return fmt.Sprintf("%dh %dm", hours, mins)
	case secs > 60:
		mins := int(secs) / 60
		remSecs := int(secs) % 60
		return fmt.Sprintf("%dm %ds", mins, remSecs)
	default:
		return fmt.Sprintf("%.2fs", secs)
	}
}
