package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"habitbot/internal/schedule"
)

// EnsureTrigger implements schedule.TriggerStore: get-or-create keyed by the
// full field tuple, so identical schedules share one stored trigger.
func (s *Store) EnsureTrigger(ctx context.Context, t schedule.Trigger) (schedule.Trigger, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id FROM triggers WHERE minute=? AND hour=? AND day_of_month=? AND month=? AND day_of_week=?`,
		t.Minute, t.Hour, t.DayOfMonth, t.Month, t.DayOfWeek,
	)
	err := row.Scan(&t.ID)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return schedule.Trigger{}, err
	}

	t.ID = uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO triggers(id, minute, hour, day_of_month, month, day_of_week)
		 VALUES(?,?,?,?,?,?)
		 ON CONFLICT(minute, hour, day_of_month, month, day_of_week) DO NOTHING`,
		t.ID, t.Minute, t.Hour, t.DayOfMonth, t.Month, t.DayOfWeek,
	)
	if err != nil {
		return schedule.Trigger{}, err
	}
	// A concurrent writer may have won the conflict; read the id back.
	row = s.db.QueryRowContext(ctx,
		`SELECT id FROM triggers WHERE minute=? AND hour=? AND day_of_month=? AND month=? AND day_of_week=?`,
		t.Minute, t.Hour, t.DayOfMonth, t.Month, t.DayOfWeek,
	)
	if err := row.Scan(&t.ID); err != nil {
		return schedule.Trigger{}, err
	}
	return t, nil
}

func (s *Store) CreateJob(ctx context.Context, j schedule.Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs(name, trigger_id, task, args) VALUES(?,?,?,?)`,
		j.Name, j.TriggerID, j.Task, j.Args,
	)
	return err
}

// JobByName returns (nil, nil) when no job with the name exists.
func (s *Store) JobByName(ctx context.Context, name string) (*schedule.Job, error) {
	var j schedule.Job
	err := s.db.QueryRowContext(ctx,
		`SELECT name, trigger_id, task, args FROM jobs WHERE name=?`, name,
	).Scan(&j.Name, &j.TriggerID, &j.Task, &j.Args)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// DeleteJob removes the named job; deleting an absent job is a no-op.
func (s *Store) DeleteJob(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE name=?`, name)
	return err
}

// ListEntries implements schedule.Source: every job joined with its trigger.
func (s *Store) ListEntries(ctx context.Context) ([]schedule.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT j.name, j.trigger_id, j.task, j.args,
		        t.id, t.minute, t.hour, t.day_of_month, t.month, t.day_of_week
		 FROM jobs j JOIN triggers t ON t.id = j.trigger_id
		 ORDER BY j.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.Entry
	for rows.Next() {
		var e schedule.Entry
		if err := rows.Scan(
			&e.Job.Name, &e.Job.TriggerID, &e.Job.Task, &e.Job.Args,
			&e.Trigger.ID, &e.Trigger.Minute, &e.Trigger.Hour,
			&e.Trigger.DayOfMonth, &e.Trigger.Month, &e.Trigger.DayOfWeek,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
