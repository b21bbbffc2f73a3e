package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// TaskSendReminder is the task name bound to reminder jobs.
const TaskSendReminder = "reminder.send"

// Trigger is a stored recurring-trigger definition: one row per distinct
// (minute, hour, day-of-month, month, day-of-week) tuple.
type Trigger struct {
	ID         string
	Minute     string
	Hour       string
	DayOfMonth string
	Month      string
	DayOfWeek  string
}

// Job is a named binding of a trigger to a task with arguments. Names are
// deterministic per habit, which is what makes replacement possible.
type Job struct {
	Name      string
	TriggerID string
	Task      string
	Args      string // JSON array, e.g. "[42]"
}

// TriggerStore is an idempotent get-or-create keyed by the full field tuple.
type TriggerStore interface {
	EnsureTrigger(ctx context.Context, t Trigger) (Trigger, error)
}

// JobStore persists named jobs. JobByName returns (nil, nil) when absent;
// DeleteJob of an absent job is a no-op, not an error.
type JobStore interface {
	CreateJob(ctx context.Context, j Job) error
	JobByName(ctx context.Context, name string) (*Job, error)
	DeleteJob(ctx context.Context, name string) error
}

// Entry is a job joined with its trigger, as consumed by the runner.
type Entry struct {
	Job     Job
	Trigger Trigger
}

// Source lists every registered job with its trigger definition.
type Source interface {
	ListEntries(ctx context.Context) ([]Entry, error)
}

// JobName returns the deterministic reminder job name for a habit.
func JobName(habitID int64) string {
	return fmt.Sprintf("habit-reminder:%d", habitID)
}

// ParseExpression splits a resolved 5-field cron-like expression into a
// trigger tuple. It checks shape only; field contents are validated when the
// runner registers the entry.
func ParseExpression(expr string) (Trigger, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return Trigger{}, fmt.Errorf("expression %q: want 5 fields, got %d", expr, len(fields))
	}
	return Trigger{
		Minute:     fields[0],
		Hour:       fields[1],
		DayOfMonth: fields[2],
		Month:      fields[3],
		DayOfWeek:  fields[4],
	}, nil
}

// CronSpec renders the trigger back into a single spec string.
func (t Trigger) CronSpec() string {
	return strings.Join([]string{t.Minute, t.Hour, t.DayOfMonth, t.Month, t.DayOfWeek}, " ")
}

func encodeArgs(habitID int64) string {
	b, _ := json.Marshal([]int64{habitID})
	return string(b)
}

// DecodeArgs extracts the habit id from a job's argument list.
func DecodeArgs(args string) (int64, error) {
	var ids []int64
	if err := json.Unmarshal([]byte(args), &ids); err != nil {
		return 0, fmt.Errorf("job args %q: %w", args, err)
	}
	if len(ids) != 1 {
		return 0, fmt.Errorf("job args %q: want one id, got %d", args, len(ids))
	}
	return ids[0], nil
}
