package cli

import (
	"fmt"
	"time"
)

// FormatConfidence formats a [0, 1] confidence value as a percentage.
func FormatConfidence(conf float64) string {
	return fmt.Sprintf("%.0f%%", conf*100)
}

// FormatWinRate formats a [0, 1] win rate with one decimal place.
func FormatWinRate(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}

// FormatTime formats a time of day in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format("15:04:05")
}

// FormatDateTime formats a full timestamp in UTC.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("02 Jan 2006 15:04:05")
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
