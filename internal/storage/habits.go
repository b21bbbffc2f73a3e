package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"habitbot/internal/habit"
)

const habitColumns = `id, owner_id, action, place, pleasant, public,
	execution_time, reward, related_id, pattern, start_time, end_time, spec`

// Create inserts the habit and its weekday list, returning the record with
// the assigned id.
func (s *Store) Create(ctx context.Context, h habit.Habit) (habit.Habit, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return habit.Habit{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO habits(owner_id, action, place, pleasant, public,
			execution_time, reward, related_id, pattern, start_time, end_time, spec)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		h.OwnerID, h.Action, h.Place, boolToCol(h.Pleasant), boolToCol(h.Public),
		h.ExecutionTime, h.Reward, h.RelatedID, h.Pattern,
		timeToCol(h.Time), timeToCol(h.EndTime), h.Spec,
	)
	if err != nil {
		return habit.Habit{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return habit.Habit{}, err
	}
	if err := replaceDays(ctx, tx, id, h.DaysOfWeek); err != nil {
		return habit.Habit{}, err
	}
	if err := tx.Commit(); err != nil {
		return habit.Habit{}, err
	}
	h.ID = id
	return h, nil
}

func (s *Store) Update(ctx context.Context, h habit.Habit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE habits SET owner_id=?, action=?, place=?, pleasant=?, public=?,
			execution_time=?, reward=?, related_id=?, pattern=?, start_time=?, end_time=?, spec=?
		 WHERE id=?`,
		h.OwnerID, h.Action, h.Place, boolToCol(h.Pleasant), boolToCol(h.Public),
		h.ExecutionTime, h.Reward, h.RelatedID, h.Pattern,
		timeToCol(h.Time), timeToCol(h.EndTime), h.Spec, h.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("habit %d not found", h.ID)
	}
	if err := replaceDays(ctx, tx, h.ID, h.DaysOfWeek); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM habit_days WHERE habit_id=?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM habits WHERE id=?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// Get returns (nil, nil) when no habit with the id exists.
func (s *Store) Get(ctx context.Context, id int64) (*habit.Habit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE id=?`, id)
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadDays(ctx, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ListUseful returns every non-pleasant habit.
func (s *Store) ListUseful(ctx context.Context) ([]habit.Habit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE pleasant=0 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []habit.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.loadDays(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) loadDays(ctx context.Context, h *habit.Habit) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day FROM habit_days WHERE habit_id=? ORDER BY position`, h.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return err
		}
		h.DaysOfWeek = append(h.DaysOfWeek, day)
	}
	return rows.Err()
}

func replaceDays(ctx context.Context, tx *sql.Tx, habitID int64, days []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM habit_days WHERE habit_id=?`, habitID); err != nil {
		return err
	}
	for i, day := range days {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO habit_days(habit_id, position, day) VALUES(?,?,?)`,
			habitID, i, day,
		); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHabit(r rowScanner) (habit.Habit, error) {
	var (
		h                habit.Habit
		pleasant, public int
		startCol, endCol string
	)
	err := r.Scan(&h.ID, &h.OwnerID, &h.Action, &h.Place, &pleasant, &public,
		&h.ExecutionTime, &h.Reward, &h.RelatedID, &h.Pattern, &startCol, &endCol, &h.Spec)
	if err != nil {
		return habit.Habit{}, err
	}
	h.Pleasant = pleasant != 0
	h.Public = public != 0
	if h.Time, err = timeFromCol(startCol); err != nil {
		return habit.Habit{}, err
	}
	if h.EndTime, err = timeFromCol(endCol); err != nil {
		return habit.Habit{}, err
	}
	return h, nil
}

func boolToCol(b bool) int {
	if b {
		return 1
	}
	return 0
}
