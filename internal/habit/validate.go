package habit

import (
	"context"
	"strings"
)

// RelatedLookup resolves a habit id. It returns (nil, nil) when no habit with
// that id exists; errors are reserved for transport-level failures.
type RelatedLookup func(ctx context.Context, id int64) (*Habit, error)

// MaxExecutionSeconds is the upper bound on Habit.ExecutionTime.
const MaxExecutionSeconds = 120

// Validate checks the cross-field consistency policy on a candidate habit.
//
// Rules run in a fixed order and evaluation stops at the first failing rule;
// the returned *RejectionError always carries a single reason. Only rule 2
// touches the outside world, through the lookup.
func Validate(ctx context.Context, h Habit, lookup RelatedLookup) error {
	if err := checkExecutionTime(h); err != nil {
		return err
	}
	if err := checkRelated(ctx, h, lookup); err != nil {
		return err
	}
	if err := checkReward(h); err != nil {
		return err
	}
	if err := checkPleasant(h); err != nil {
		return err
	}
	if err := checkEndTime(h); err != nil {
		return err
	}
	return checkWeekdays(h)
}

func checkExecutionTime(h Habit) error {
	if h.ExecutionTime > MaxExecutionSeconds {
		return reject(ReasonExecutionTime)
	}
	return nil
}

func checkRelated(ctx context.Context, h Habit, lookup RelatedLookup) error {
	if h.RelatedID == 0 {
		return nil
	}
	if lookup == nil {
		return reject(ReasonRelatedMissing)
	}
	related, err := lookup(ctx, h.RelatedID)
	if err != nil {
		return err
	}
	if related == nil {
		return reject(ReasonRelatedMissing)
	}
	if !related.Pleasant {
		return reject(ReasonRelatedNotNice)
	}
	return nil
}

func checkReward(h Habit) error {
	if h.RelatedID != 0 && h.Reward != "" {
		return reject(ReasonRewardConflict)
	}
	return nil
}

func checkPleasant(h Habit) error {
	if h.Pleasant {
		if h.RelatedID != 0 || h.Reward != "" || h.Pattern != "" || !h.Time.IsZero() {
			return reject(ReasonPleasantExtras)
		}
		return nil
	}
	if h.Time.IsZero() || h.Pattern == "" || (h.Reward == "" && h.RelatedID == 0) {
		return reject(ReasonUsefulIncomplete)
	}
	return nil
}

func checkEndTime(h Habit) error {
	hasEndMarker := strings.Contains(h.Pattern, "x")
	if hasEndMarker && h.EndTime.IsZero() {
		return reject(ReasonEndTimeMissing)
	}
	if !hasEndMarker && !h.EndTime.IsZero() {
		return reject(ReasonEndTimeExtra)
	}
	if !h.EndTime.IsZero() && !h.Time.IsZero() {
		sy, sm, sd := h.Time.Date()
		ey, em, ed := h.EndTime.Date()
		if sy != ey || sm != em || sd != ed {
			return reject(ReasonEndTimeSameDay)
		}
		if !h.EndTime.After(h.Time) {
			return reject(ReasonEndBeforeStart)
		}
	}
	return nil
}

func checkWeekdays(h Habit) error {
	hasDayMarker := strings.Contains(h.Pattern, "d")
	if hasDayMarker && len(h.DaysOfWeek) == 0 {
		return reject(ReasonWeekdaysMissing)
	}
	if !hasDayMarker && len(h.DaysOfWeek) > 0 {
		return reject(ReasonWeekdaysExtra)
	}
	return nil
}
