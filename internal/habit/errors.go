package habit

import "strings"

// Rejection reasons, one per rule. Validation stops at the first failing rule
// and every rejection carries exactly one of these.
const (
	ReasonExecutionTime    = "execution time must not exceed 120 seconds"
	ReasonRelatedMissing   = "related habit does not exist"
	ReasonRelatedNotNice   = "only pleasant habits can be chosen as related"
	ReasonRewardConflict   = "choose either a reward or a related habit, not both"
	ReasonPleasantExtras   = "a pleasant habit cannot have a reward, related habit, pattern or time"
	ReasonUsefulIncomplete = "a useful habit needs a time, a recurrence pattern and a reward or related habit"
	ReasonEndTimeMissing   = "a habit repeated several times a day needs an end time"
	ReasonEndTimeExtra     = "an end time is only allowed for habits repeated several times a day"
	ReasonEndTimeSameDay   = "start and end time must fall within one day"
	ReasonEndBeforeStart   = "end time cannot be earlier than or equal to the start time"
	ReasonWeekdaysMissing  = "a habit bound to specific weekdays needs at least one day selected"
	ReasonWeekdaysExtra    = "weekdays are only allowed for habits bound to specific days"
)

// RejectionError reports a violated validation rule. Reasons always has
// length one: rules short-circuit, there is no aggregation across rules.
type RejectionError struct {
	Reasons []string
}

func reject(reason string) *RejectionError {
	return &RejectionError{Reasons: []string{reason}}
}

func (e *RejectionError) Error() string {
	return "habit rejected: " + strings.Join(e.Reasons, "; ")
}
