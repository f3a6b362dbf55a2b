package engagement

import (
	"time"

	"github.com/plugpoint/plugpoint/internal/domain"
)

// AdvanceLoginStreak applies one app_login at now to the streak.
// Days are UTC calendar days.
// Same day: no-op. Next day: extend. Gap: restart at 1.
// A login dated before the last recorded day changes nothing.
func AdvanceLoginStreak(s domain.LoginStreak, now time.Time) domain.LoginStreak {
	today := utcDay(now)

	if s.LastLoginDate == nil {
		// First login ever
		s.Current = 1
	} else {
		gap := daysBetween(utcDay(*s.LastLoginDate), today)

		switch {
		case gap <= 0:
			// Same day or clock skew: already counted
			return s
		case gap == 1:
			s.Current++
		default:
			// Streak breaks silently
			s.Current = 1
		}
	}

	s.LastLoginDate = &today
	if s.Current > s.Longest {
		s.Longest = s.Current
	}
	return s
}

// utcDay truncates t to midnight UTC.
func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts calendar days from a to b. Both must be UTC midnights.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
