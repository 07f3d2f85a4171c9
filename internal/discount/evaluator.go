// Package discount computes whether a time-limited discount window is still
// open and how much of it remains, for server-side price decisions and for
// countdown display.
package discount

import "time"

// Status is the result of evaluating a discount window at one instant.
// When Expired is true all remaining components are zero; negative
// durations are never surfaced.
type Status struct {
	Expired   bool          `json:"expired"`
	Hours     int           `json:"hours"`
	Minutes   int           `json:"minutes"`
	Seconds   int           `json:"seconds"`
	Remaining time.Duration `json:"-"`
	Deadline  time.Time     `json:"deadline"`
}

// Active reports whether the discount is currently available.
func (s Status) Active() bool { return !s.Expired }

// Evaluate computes the window status for reference time t0, window length
// window, and the current time now. It is pure: the same inputs always
// produce the same output. Components are derived by truncation from the
// total remaining duration.
func Evaluate(t0 time.Time, window time.Duration, now time.Time) Status {
	deadline := t0.Add(window)
	if !now.Before(deadline) {
		return Status{Expired: true, Deadline: deadline}
	}
	remaining := deadline.Sub(now)
	total := int(remaining / time.Second)
	return Status{
		Expired:   false,
		Hours:     total / 3600,
		Minutes:   (total % 3600) / 60,
		Seconds:   total % 60,
		Remaining: remaining,
		Deadline:  deadline,
	}
}

// EvaluateRFC3339 parses t0 from an RFC3339 string and evaluates the window.
// A malformed timestamp fails closed: the window is reported expired rather
// than granting an indefinite discount.
func EvaluateRFC3339(t0 string, window time.Duration, now time.Time) Status {
	t, err := time.Parse(time.RFC3339, t0)
	if err != nil {
		return Status{Expired: true}
	}
	return Evaluate(t, window, now)
}
