package habit

import "time"

// Habit is a tracked habit record.
//
// A pleasant habit is a reward in itself: it carries no time, no recurrence
// pattern, no reward and no related habit. A useful habit needs reinforcement
// (a reward or a chained pleasant habit) plus a start time and a recurrence
// pattern.
//
// Related habits and weekdays are carried as plain values (id reference and
// ordered name list), never as live object references; resolving an id goes
// through a RelatedLookup.
type Habit struct {
	ID      int64
	OwnerID int64

	Action string
	Place  string

	Pleasant bool
	Public   bool

	// ExecutionTime is the time budget for one execution, in seconds.
	ExecutionTime int

	// Reward and RelatedID are mutually exclusive reinforcements.
	// RelatedID == 0 means no related habit.
	Reward    string
	RelatedID int64

	// Pattern is a recurrence template: a 5-field cron-like string where the
	// single-character tokens m, h, x, y, z, d stand for minute, start hour,
	// start hour (as end-window marker), end hour, midpoint hour and the
	// weekday list respectively.
	Pattern string

	// DaysOfWeek holds weekday names in their configured order. Only
	// meaningful when Pattern carries the d token.
	DaysOfWeek []string

	// Time is the daily start time; the zero value means unset.
	Time time.Time

	// EndTime is the last execution time of day, for habits repeated several
	// times per day; the zero value means unset.
	EndTime time.Time

	// Spec is the concrete cron expression resolved from Pattern. Set on
	// accepted useful habits; empty for pleasant ones. The template in
	// Pattern is kept as authored so updates re-resolve from it.
	Spec string
}

// Weekday names accepted in Habit.DaysOfWeek. Identity is the name itself.
var Weekdays = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// Reinforcement returns the text a reminder should name as the payoff:
// the reward when present, otherwise the related habit's action.
func (h Habit) Reinforcement(related *Habit) string {
	if h.Reward != "" {
		return h.Reward
	}
	if related != nil {
		return related.Action
	}
	return ""
}
