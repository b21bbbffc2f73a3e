package habit

import (
	"strconv"
	"strings"
)

// replacement is one token substitution. Order matters: substitutions run
// sequentially over the whole string, so a value introduced by an earlier
// token is visible to later ones. The m, x, y, z, h, d order below is
// load-bearing; do not reorder or switch to positional substitution without
// re-checking every resolved expression downstream.
type replacement struct {
	token string
	value string
}

// Resolve turns the habit's recurrence template into a concrete 5-field
// cron-like expression (minute hour day-of-month month day-of-week).
//
// Token values are derived from the habit's time window:
//
//	m — minute of Time
//	h, x — hour of Time
//	y — hour of EndTime, 0 when unset
//	z — (x+y)/2, integer division
//	d — comma-joined weekday names in stored order; when no weekdays are
//	    configured the literal letter d is left in place unchanged
//
// Resolve is pure: calling it twice on the same habit yields the same string.
func Resolve(h Habit) string {
	m := h.Time.Minute()
	x := h.Time.Hour()
	y := 0
	if !h.EndTime.IsZero() {
		y = h.EndTime.Hour()
	}
	z := (x + y) / 2

	d := "d"
	if len(h.DaysOfWeek) > 0 {
		d = strings.Join(h.DaysOfWeek, ",")
	}

	repls := []replacement{
		{"m", strconv.Itoa(m)},
		{"x", strconv.Itoa(x)},
		{"y", strconv.Itoa(y)},
		{"z", strconv.Itoa(z)},
		{"h", strconv.Itoa(x)},
		{"d", d},
	}

	out := h.Pattern
	for _, r := range repls {
		out = strings.ReplaceAll(out, r.token, r.value)
	}
	return out
}
