package habit

import (
	"context"
	"fmt"

	"habitbot/pkg/logx"
)

// Store persists habit records. Get returns (nil, nil) for a missing id.
type Store interface {
	Create(ctx context.Context, h Habit) (Habit, error)
	Update(ctx context.Context, h Habit) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*Habit, error)
	ListUseful(ctx context.Context) ([]Habit, error)
}

// OwnerDirectory gates reminder registration on a messaging identity.
// ChatID returns 0 when the owner has no Telegram chat bound.
type OwnerDirectory interface {
	ChatID(ctx context.Context, ownerID int64) (int64, error)
}

// Registrar keeps the external job state in line with a habit's schedule:
// at most one live reminder job per habit.
type Registrar interface {
	Sync(ctx context.Context, habitID int64, spec string) error
	Remove(ctx context.Context, habitID int64) error
}

// Service runs the create/update/delete pipeline: validate, persist, and for
// useful habits resolve the recurrence template and register the reminder job.
type Service struct {
	store  Store
	owners OwnerDirectory
	reg    Registrar
	log    logx.Logger
}

func NewService(store Store, owners OwnerDirectory, reg Registrar, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{store: store, owners: owners, reg: reg, log: log}
}

// Create validates and persists a new habit. For a useful habit the resolved
// expression is stored on the record and, when the owner has a chat bound, a
// reminder job is registered.
//
// Scheduling is attached after acceptance: when registration fails the habit
// is already persisted and is returned alongside the error.
func (s *Service) Create(ctx context.Context, h Habit) (Habit, error) {
	if err := Validate(ctx, h, s.relatedLookup()); err != nil {
		return Habit{}, err
	}

	h.Spec = ""
	if !h.Pleasant {
		h.Spec = Resolve(h)
	}

	created, err := s.store.Create(ctx, h)
	if err != nil {
		return Habit{}, fmt.Errorf("create habit: %w", err)
	}
	s.log.Info("habit created", logx.Int64("habit_id", created.ID), logx.Bool("pleasant", created.Pleasant))

	if created.Pleasant {
		return created, nil
	}
	if err := s.register(ctx, created); err != nil {
		return created, err
	}
	return created, nil
}

// Update re-validates the record, recomputes the resolved expression from the
// template and replaces any previously registered reminder job. A pleasant
// habit that previously was useful loses its job.
func (s *Service) Update(ctx context.Context, h Habit) (Habit, error) {
	if h.ID == 0 {
		return Habit{}, fmt.Errorf("update habit: missing id")
	}
	if err := Validate(ctx, h, s.relatedLookup()); err != nil {
		return Habit{}, err
	}

	h.Spec = ""
	if !h.Pleasant {
		h.Spec = Resolve(h)
	}

	if err := s.store.Update(ctx, h); err != nil {
		return Habit{}, fmt.Errorf("update habit: %w", err)
	}
	s.log.Info("habit updated", logx.Int64("habit_id", h.ID), logx.Bool("pleasant", h.Pleasant))

	if h.Pleasant {
		if err := s.reg.Remove(ctx, h.ID); err != nil {
			return h, err
		}
		return h, nil
	}
	if err := s.register(ctx, h); err != nil {
		return h, err
	}
	return h, nil
}

// Delete removes the habit and its reminder job. A job that is already gone
// is not an error.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	if err := s.reg.Remove(ctx, id); err != nil {
		return err
	}
	s.log.Info("habit deleted", logx.Int64("habit_id", id))
	return nil
}

// Resync re-registers jobs for every useful habit whose owner has a chat
// bound. Run at startup: it heals the window left by a crash between the
// delete and create halves of a replacement.
func (s *Service) Resync(ctx context.Context) error {
	habits, err := s.store.ListUseful(ctx)
	if err != nil {
		return fmt.Errorf("resync: %w", err)
	}
	for _, h := range habits {
		if h.Spec == "" {
			continue
		}
		chatID, err := s.owners.ChatID(ctx, h.OwnerID)
		if err != nil {
			return fmt.Errorf("resync owner %d: %w", h.OwnerID, err)
		}
		if chatID == 0 {
			continue
		}
		if err := s.reg.Sync(ctx, h.ID, h.Spec); err != nil {
			return err
		}
	}
	s.log.Info("schedule resynced", logx.Int("habits", len(habits)))
	return nil
}

// register is the owner-identity-gated registration step.
func (s *Service) register(ctx context.Context, h Habit) error {
	chatID, err := s.owners.ChatID(ctx, h.OwnerID)
	if err != nil {
		return fmt.Errorf("owner lookup: %w", err)
	}
	if chatID == 0 {
		s.log.Debug("owner has no chat bound; reminder not scheduled", logx.Int64("habit_id", h.ID))
		return nil
	}
	return s.reg.Sync(ctx, h.ID, h.Spec)
}

func (s *Service) relatedLookup() RelatedLookup {
	return func(ctx context.Context, id int64) (*Habit, error) {
		return s.store.Get(ctx, id)
	}
}
