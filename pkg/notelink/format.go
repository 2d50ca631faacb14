package notelink

import (
	"fmt"
	"time"

	"github.com/dtroode/privenote-server/internal/model"
)

// FormatTTL describes a note lifetime for the creator, e.g.
// "2 hours (2026-03-01 14:05)".
func FormatTTL(minutes int, expiresAt time.Time) string {
	switch {
	case minutes < 60:
		return fmt.Sprintf("%d minutes (%s)", minutes, expiresAt.Format(time.TimeOnly))
	case minutes < 24*60:
		hours := minutes / 60
		return fmt.Sprintf("%d %s (%s)", hours, plural(hours, "hour"), expiresAt.Format("2006-01-02 15:04"))
	default:
		days := minutes / (24 * 60)
		return fmt.Sprintf("%d %s (%s)", days, plural(days, "day"), expiresAt.Format(time.DateOnly))
	}
}

// FormatCountdown renders the time left before expiresAt as "Xm Ys", or
// "Expired" once it has passed.
func FormatCountdown(now, expiresAt time.Time) string {
	left := model.Remaining(now, expiresAt)
	if left <= 0 {
		return "Expired"
	}
	total := int(left / time.Second)
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
