package schedule

import (
	"context"
	"fmt"

	"habitbot/pkg/logx"
)

// Registrar keeps the job store in line with a habit's resolved schedule,
// enforcing at most one live reminder job per habit.
//
// Replacement is two-phase: compute the desired job, diff it against the
// current one by name, and only then apply delete-then-create. The two writes
// are not transactional; a failure in between leaves the habit temporarily
// without a job, which Resync at startup repairs.
type Registrar struct {
	triggers TriggerStore
	jobs     JobStore
	log      logx.Logger
}

func NewRegistrar(triggers TriggerStore, jobs JobStore, log logx.Logger) *Registrar {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Registrar{triggers: triggers, jobs: jobs, log: log}
}

// Sync registers the reminder job for a habit, replacing any prior job with a
// different trigger. Identical desired and current state is a no-op.
func (r *Registrar) Sync(ctx context.Context, habitID int64, expr string) error {
	want, err := ParseExpression(expr)
	if err != nil {
		return err
	}

	trig, err := r.triggers.EnsureTrigger(ctx, want)
	if err != nil {
		return fmt.Errorf("ensure trigger: %w", err)
	}

	name := JobName(habitID)
	desired := Job{
		Name:      name,
		TriggerID: trig.ID,
		Task:      TaskSendReminder,
		Args:      encodeArgs(habitID),
	}

	current, err := r.jobs.JobByName(ctx, name)
	if err != nil {
		return fmt.Errorf("job lookup: %w", err)
	}
	if current != nil && *current == desired {
		r.log.Debug("reminder job unchanged", logx.String("job", name))
		return nil
	}
	if current != nil {
		if err := r.jobs.DeleteJob(ctx, name); err != nil {
			return fmt.Errorf("remove prior job: %w", err)
		}
	}
	if err := r.jobs.CreateJob(ctx, desired); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	r.log.Info("reminder job registered", logx.String("job", name), logx.String("spec", trig.CronSpec()))
	return nil
}

// Remove drops the habit's reminder job. A job that never existed or is
// already gone is not an error.
func (r *Registrar) Remove(ctx context.Context, habitID int64) error {
	name := JobName(habitID)
	if err := r.jobs.DeleteJob(ctx, name); err != nil {
		return fmt.Errorf("remove job: %w", err)
	}
	r.log.Debug("reminder job removed", logx.String("job", name))
	return nil
}
