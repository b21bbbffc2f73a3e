package habit

import (
	"context"
	"errors"
	"testing"
	"time"

	"habitbot/pkg/logx"
)

type fakeStore struct {
	nextID int64
	habits map[int64]Habit
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, habits: map[int64]Habit{}}
}

func (f *fakeStore) Create(ctx context.Context, h Habit) (Habit, error) {
	h.ID = f.nextID
	f.nextID++
	f.habits[h.ID] = h
	return h, nil
}

func (f *fakeStore) Update(ctx context.Context, h Habit) error {
	if _, ok := f.habits[h.ID]; !ok {
		return errors.New("not found")
	}
	f.habits[h.ID] = h
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id int64) error {
	delete(f.habits, id)
	return nil
}

func (f *fakeStore) Get(ctx context.Context, id int64) (*Habit, error) {
	h, ok := f.habits[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (f *fakeStore) ListUseful(ctx context.Context) ([]Habit, error) {
	var out []Habit
	for id := int64(1); id < f.nextID; id++ {
		if h, ok := f.habits[id]; ok && !h.Pleasant {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeOwners struct {
	chats map[int64]int64
}

func (f *fakeOwners) ChatID(ctx context.Context, ownerID int64) (int64, error) {
	return f.chats[ownerID], nil
}

type fakeRegistrar struct {
	synced  map[int64]string
	removed []int64
	syncErr error
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{synced: map[int64]string{}}
}

func (f *fakeRegistrar) Sync(ctx context.Context, habitID int64, spec string) error {
	if f.syncErr != nil {
		return f.syncErr
	}
	f.synced[habitID] = spec
	return nil
}

func (f *fakeRegistrar) Remove(ctx context.Context, habitID int64) error {
	f.removed = append(f.removed, habitID)
	delete(f.synced, habitID)
	return nil
}

func newTestService(owners *fakeOwners) (*Service, *fakeStore, *fakeRegistrar) {
	store := newFakeStore()
	reg := newFakeRegistrar()
	if owners == nil {
		owners = &fakeOwners{chats: map[int64]int64{1: 1001}}
	}
	return NewService(store, owners, reg, logx.Nop()), store, reg
}

func TestServiceCreateUsefulRegistersJob(t *testing.T) {
	t.Parallel()

	svc, _, reg := newTestService(nil)

	h := usefulHabit()
	h.OwnerID = 1
	created, err := svc.Create(context.Background(), h)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if created.Spec != "30 16 * * *" {
		t.Fatalf("Spec = %q, want %q", created.Spec, "30 16 * * *")
	}
	if got := reg.synced[created.ID]; got != created.Spec {
		t.Fatalf("registered spec = %q, want %q", got, created.Spec)
	}
}

func TestServiceCreatePleasantSkipsScheduling(t *testing.T) {
	t.Parallel()

	svc, _, reg := newTestService(nil)

	created, err := svc.Create(context.Background(), pleasantHabit())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Spec != "" {
		t.Fatalf("pleasant habit got spec %q", created.Spec)
	}
	if len(reg.synced) != 0 {
		t.Fatal("pleasant habit must not be scheduled")
	}
}

func TestServiceCreateRejectsInvalid(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestService(nil)

	h := usefulHabit()
	h.ExecutionTime = 200
	if _, err := svc.Create(context.Background(), h); err == nil {
		t.Fatal("expected rejection")
	}
	if len(store.habits) != 0 {
		t.Fatal("rejected habit must not be persisted")
	}
}

func TestServiceCreateWithoutChatSkipsRegistration(t *testing.T) {
	t.Parallel()

	svc, _, reg := newTestService(&fakeOwners{chats: map[int64]int64{}})

	h := usefulHabit()
	h.OwnerID = 5 // no chat bound
	created, err := svc.Create(context.Background(), h)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Spec == "" {
		t.Fatal("record still gets a resolved spec")
	}
	if len(reg.synced) != 0 {
		t.Fatal("registration must be gated on a chat identity")
	}
}

func TestServiceCreateSchedulingFailureKeepsRecord(t *testing.T) {
	t.Parallel()

	svc, store, reg := newTestService(nil)
	reg.syncErr = errors.New("job store down")

	h := usefulHabit()
	h.OwnerID = 1
	created, err := svc.Create(context.Background(), h)
	if err == nil {
		t.Fatal("expected scheduling error to propagate")
	}
	if created.ID == 0 {
		t.Fatal("persisted record must be returned alongside the error")
	}
	if _, ok := store.habits[created.ID]; !ok {
		t.Fatal("habit must stay persisted when scheduling fails")
	}
}

func TestServiceUpdateReplacesSchedule(t *testing.T) {
	t.Parallel()

	svc, _, reg := newTestService(nil)

	h := usefulHabit()
	h.OwnerID = 1
	created, err := svc.Create(context.Background(), h)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	created.Time = time.Date(2025, 3, 10, 7, 15, 0, 0, time.UTC)
	updated, err := svc.Update(context.Background(), created)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Spec != "15 7 * * *" {
		t.Fatalf("Spec = %q, want %q", updated.Spec, "15 7 * * *")
	}
	if got := reg.synced[updated.ID]; got != "15 7 * * *" {
		t.Fatalf("registered spec = %q", got)
	}
}

func TestServiceUpdateTurnedPleasantDropsJob(t *testing.T) {
	t.Parallel()

	svc, _, reg := newTestService(nil)

	h := usefulHabit()
	h.OwnerID = 1
	created, err := svc.Create(context.Background(), h)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	created.Pleasant = true
	created.Reward = ""
	created.Pattern = ""
	created.Time = time.Time{}
	if _, err := svc.Update(context.Background(), created); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(reg.synced) != 0 {
		t.Fatal("job must be removed when habit becomes pleasant")
	}
	if len(reg.removed) != 1 || reg.removed[0] != created.ID {
		t.Fatalf("removed = %v", reg.removed)
	}
}

func TestServiceDeleteRemovesJob(t *testing.T) {
	t.Parallel()

	svc, store, reg := newTestService(nil)

	h := usefulHabit()
	h.OwnerID = 1
	created, err := svc.Create(context.Background(), h)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(store.habits) != 0 {
		t.Fatal("habit not deleted")
	}
	if len(reg.removed) != 1 {
		t.Fatalf("removed = %v", reg.removed)
	}
}

func TestServiceResync(t *testing.T) {
	t.Parallel()

	svc, store, reg := newTestService(&fakeOwners{chats: map[int64]int64{1: 1001}})

	withChat := usefulHabit()
	withChat.OwnerID = 1
	if _, err := svc.Create(context.Background(), withChat); err != nil {
		t.Fatalf("Create: %v", err)
	}
	noChat := usefulHabit()
	noChat.OwnerID = 2
	if _, err := svc.Create(context.Background(), noChat); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Simulate a lost registration.
	reg.synced = map[int64]string{}
	if err := svc.Resync(context.Background()); err != nil {
		t.Fatalf("Resync: %v", err)
	}
	if len(reg.synced) != 1 {
		t.Fatalf("synced = %v, want exactly the habit with a chat-bound owner", reg.synced)
	}
	if len(store.habits) != 2 {
		t.Fatalf("habits = %d", len(store.habits))
	}
}
