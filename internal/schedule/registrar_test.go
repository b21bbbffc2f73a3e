package schedule

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"habitbot/pkg/logx"
)

type fakeTriggers struct {
	rows    map[string]Trigger // keyed by tuple
	created int
}

func newFakeTriggers() *fakeTriggers {
	return &fakeTriggers{rows: map[string]Trigger{}}
}

func tupleKey(t Trigger) string { return t.CronSpec() }

func (f *fakeTriggers) EnsureTrigger(ctx context.Context, t Trigger) (Trigger, error) {
	if got, ok := f.rows[tupleKey(t)]; ok {
		return got, nil
	}
	f.created++
	t.ID = fmt.Sprintf("trig-%d", f.created)
	f.rows[tupleKey(t)] = t
	return t, nil
}

type fakeJobs struct {
	rows      map[string]Job
	creates   int
	deletes   int
	deleteErr error
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{rows: map[string]Job{}}
}

func (f *fakeJobs) CreateJob(ctx context.Context, j Job) error {
	f.creates++
	f.rows[j.Name] = j
	return nil
}

func (f *fakeJobs) JobByName(ctx context.Context, name string) (*Job, error) {
	j, ok := f.rows[name]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

func (f *fakeJobs) DeleteJob(ctx context.Context, name string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes++
	delete(f.rows, name)
	return nil
}

func TestRegistrarSyncCreatesJob(t *testing.T) {
	t.Parallel()

	triggers := newFakeTriggers()
	jobs := newFakeJobs()
	reg := NewRegistrar(triggers, jobs, logx.Nop())

	if err := reg.Sync(context.Background(), 42, "30 16 * * *"); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	j, ok := jobs.rows[JobName(42)]
	if !ok {
		t.Fatal("job not created")
	}
	if j.Task != TaskSendReminder {
		t.Fatalf("Task = %q", j.Task)
	}
	if j.Args != "[42]" {
		t.Fatalf("Args = %q", j.Args)
	}
}

func TestRegistrarSyncRejectsBadExpression(t *testing.T) {
	t.Parallel()

	reg := NewRegistrar(newFakeTriggers(), newFakeJobs(), logx.Nop())
	if err := reg.Sync(context.Background(), 1, "30 16 * *"); err == nil {
		t.Fatal("expected error for 4-field expression")
	}
}

func TestRegistrarTriggerReuse(t *testing.T) {
	t.Parallel()

	triggers := newFakeTriggers()
	jobs := newFakeJobs()
	reg := NewRegistrar(triggers, jobs, logx.Nop())

	if err := reg.Sync(context.Background(), 1, "30 16 * * *"); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := reg.Sync(context.Background(), 2, "30 16 * * *"); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if triggers.created != 1 {
		t.Fatalf("triggers created = %d, want 1 (identical tuples share a trigger)", triggers.created)
	}
	if len(jobs.rows) != 2 {
		t.Fatalf("jobs = %d, want 2", len(jobs.rows))
	}
}

func TestRegistrarReplaceRemovesExactlyOnePriorJob(t *testing.T) {
	t.Parallel()

	triggers := newFakeTriggers()
	jobs := newFakeJobs()
	reg := NewRegistrar(triggers, jobs, logx.Nop())

	if err := reg.Sync(context.Background(), 42, "30 16 * * *"); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := reg.Sync(context.Background(), 42, "0 9 * * *"); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if jobs.deletes != 1 {
		t.Fatalf("deletes = %d, want 1", jobs.deletes)
	}
	if len(jobs.rows) != 1 {
		t.Fatalf("jobs = %d, want 1", len(jobs.rows))
	}
	j := jobs.rows[JobName(42)]
	if got := triggers.rows[tupleKey(Trigger{Minute: "0", Hour: "9", DayOfMonth: "*", Month: "*", DayOfWeek: "*"})]; j.TriggerID != got.ID {
		t.Fatalf("job points at trigger %q, want %q", j.TriggerID, got.ID)
	}
}

func TestRegistrarSyncUnchangedIsNoop(t *testing.T) {
	t.Parallel()

	triggers := newFakeTriggers()
	jobs := newFakeJobs()
	reg := NewRegistrar(triggers, jobs, logx.Nop())

	if err := reg.Sync(context.Background(), 42, "30 16 * * *"); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := reg.Sync(context.Background(), 42, "30 16 * * *"); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if jobs.creates != 1 {
		t.Fatalf("creates = %d, want 1 (unchanged state is a no-op)", jobs.creates)
	}
	if jobs.deletes != 0 {
		t.Fatalf("deletes = %d, want 0", jobs.deletes)
	}
}

func TestRegistrarSyncNoPriorJobDoesNotDelete(t *testing.T) {
	t.Parallel()

	triggers := newFakeTriggers()
	jobs := newFakeJobs()
	jobs.deleteErr = errors.New("delete must not be called")
	reg := NewRegistrar(triggers, jobs, logx.Nop())

	if err := reg.Sync(context.Background(), 7, "30 16 * * *"); err != nil {
		t.Fatalf("Sync with no prior job: %v", err)
	}
}

func TestRegistrarRemoveAbsentJob(t *testing.T) {
	t.Parallel()

	reg := NewRegistrar(newFakeTriggers(), newFakeJobs(), logx.Nop())
	if err := reg.Remove(context.Background(), 9999); err != nil {
		t.Fatalf("Remove of absent job must not fail: %v", err)
	}
}
