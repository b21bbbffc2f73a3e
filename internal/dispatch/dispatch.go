// Package dispatch composes and delivers reminder messages at fire time.
package dispatch

import (
	"context"
	"fmt"

	"habitbot/internal/habit"
	"habitbot/pkg/logx"
)

// HabitSource resolves habit ids at fire time. Get returns (nil, nil) for a
// missing id.
type HabitSource interface {
	Get(ctx context.Context, id int64) (*habit.Habit, error)
}

// Sender delivers one message to a Telegram chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Dispatcher loads the habit and its owner and sends the reminder.
//
// A job can outlive its habit (the runner fires on its own clock), so a
// missing record is logged and skipped, never treated as a failure.
type Dispatcher struct {
	habits HabitSource
	owners habit.OwnerDirectory
	sender Sender
	log    logx.Logger
}

func New(habits HabitSource, owners habit.OwnerDirectory, sender Sender, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{habits: habits, owners: owners, sender: sender, log: log}
}

// Send implements schedule.Dispatcher.
func (d *Dispatcher) Send(ctx context.Context, habitID int64) error {
	h, err := d.habits.Get(ctx, habitID)
	if err != nil {
		return fmt.Errorf("load habit %d: %w", habitID, err)
	}
	if h == nil {
		d.log.Warn("habit gone; reminder skipped", logx.Int64("habit_id", habitID))
		return nil
	}

	chatID, err := d.owners.ChatID(ctx, h.OwnerID)
	if err != nil {
		return fmt.Errorf("owner lookup: %w", err)
	}
	if chatID == 0 {
		d.log.Warn("owner has no chat bound; reminder skipped", logx.Int64("habit_id", habitID))
		return nil
	}

	var related *habit.Habit
	if h.Reward == "" && h.RelatedID != 0 {
		related, err = d.habits.Get(ctx, h.RelatedID)
		if err != nil {
			return fmt.Errorf("load related habit %d: %w", h.RelatedID, err)
		}
	}

	text := composeReminder(*h, related)
	if err := d.sender.SendText(ctx, chatID, text); err != nil {
		return fmt.Errorf("send reminder for habit %d: %w", habitID, err)
	}
	return nil
}

func composeReminder(h habit.Habit, related *habit.Habit) string {
	return fmt.Sprintf("Time to do: %s at %s! Reward for completion: %s.",
		h.Action, h.Place, h.Reinforcement(related))
}
