package schedule

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"habitbot/pkg/logx"
)

// Dispatcher delivers one reminder. Failures are isolated per firing.
type Dispatcher interface {
	Send(ctx context.Context, habitID int64) error
}

type RunnerConfig struct {
	Enabled bool
	Workers int

	// DefaultTimeout bounds a single dispatch. Zero disables the bound.
	DefaultTimeout time.Duration

	// Timezone is an IANA TZ name; empty means Local.
	Timezone string

	// Refresh is the poll interval on the job store. Zero means 30s.
	Refresh time.Duration
}

type runnerEntry struct {
	spec    string
	habitID int64
	entryID cron.EntryID
}

type fireTask struct {
	name    string
	habitID int64
	timeout time.Duration
}

// Runner is the live side of the schedule: it mirrors the persisted job store
// into an in-process cron and fires reminder dispatches on a worker pool.
//
// The store is the source of truth. The runner re-reads it on an interval, so
// registrations and removals made by the habit service show up without any
// direct coupling between the two.
type Runner struct {
	mu sync.Mutex

	log logx.Logger
	cfg RunnerConfig
	loc *time.Location

	parser  cron.Parser
	c       *cron.Cron
	entries map[string]*runnerEntry

	source Source
	disp   Dispatcher

	queue  chan fireTask
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewRunner(cfg RunnerConfig, source Source, disp Dispatcher, log logx.Logger) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{
		log:     log,
		cfg:     cfg,
		parser:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		entries: map[string]*runnerEntry{},
		source:  source,
		disp:    disp,
	}
}

func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.stopCh != nil || !r.cfg.Enabled {
		r.mu.Unlock()
		return
	}
	r.stopCh = make(chan struct{})

	workers := r.cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	r.queue = make(chan fireTask, 64)

	loc := r.loadLocationLocked()
	r.loc = loc
	r.c = cron.New(cron.WithParser(r.parser), cron.WithLocation(loc))

	stopCh := r.stopCh
	queue := r.queue
	r.mu.Unlock()

	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx, stopCh, queue)
	}

	r.resync(ctx)

	r.mu.Lock()
	if r.c != nil {
		r.c.Start()
	}
	r.mu.Unlock()

	r.wg.Add(1)
	go r.refreshLoop(ctx, stopCh)

	r.log.Info("schedule runner started", logx.Int("workers", workers), logx.String("tz", loc.String()))
}

func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopCh == nil {
		r.mu.Unlock()
		return
	}
	close(r.stopCh)
	r.stopCh = nil
	c := r.c
	r.c = nil
	r.entries = map[string]*runnerEntry{}
	r.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	r.wg.Wait()
	r.log.Info("schedule runner stopped")
}

// resync mirrors the job store into the live cron: gone or changed jobs are
// unregistered, new ones added. Entries that cannot be parsed (for instance a
// leftover unresolved token in the stored expression) are logged and skipped.
func (r *Runner) resync(ctx context.Context) {
	entries, err := r.source.ListEntries(ctx)
	if err != nil {
		r.log.Warn("job store read failed", logx.Err(err))
		return
	}

	type desired struct {
		spec    string
		habitID int64
	}
	want := make(map[string]desired, len(entries))
	for _, e := range entries {
		if e.Job.Task != TaskSendReminder {
			continue
		}
		habitID, err := DecodeArgs(e.Job.Args)
		if err != nil {
			r.log.Warn("job skipped", logx.String("job", e.Job.Name), logx.Err(err))
			continue
		}
		want[e.Job.Name] = desired{spec: runnableSpec(e.Trigger), habitID: habitID}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.c == nil {
		return
	}

	for name, cur := range r.entries {
		d, ok := want[name]
		if ok && d.spec == cur.spec && d.habitID == cur.habitID {
			continue
		}
		r.c.Remove(cur.entryID)
		delete(r.entries, name)
		r.log.Debug("schedule entry removed", logx.String("job", name))
	}

	for name, d := range want {
		if _, ok := r.entries[name]; ok {
			continue
		}
		name, d := name, d
		timeout := r.cfg.DefaultTimeout
		eid, err := r.c.AddFunc(d.spec, func() {
			r.enqueue(fireTask{name: name, habitID: d.habitID, timeout: timeout})
		})
		if err != nil {
			r.log.Warn("schedule entry rejected", logx.String("job", name), logx.String("spec", d.spec), logx.Err(err))
			continue
		}
		r.entries[name] = &runnerEntry{spec: d.spec, habitID: d.habitID, entryID: eid}
		r.log.Debug("schedule entry registered", logx.String("job", name), logx.String("spec", d.spec))
	}
}

func (r *Runner) refreshLoop(ctx context.Context, stopCh <-chan struct{}) {
	defer r.wg.Done()
	every := r.cfg.Refresh
	if every <= 0 {
		every = 30 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			r.resync(ctx)
		}
	}
}

func (r *Runner) enqueue(t fireTask) {
	r.mu.Lock()
	q := r.queue
	r.mu.Unlock()
	select {
	case q <- t:
	default:
		r.log.Warn("dispatch queue full; dropping firing", logx.String("job", t.name))
	}
}

func (r *Runner) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan fireTask) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case t := <-queue:
			r.fire(ctx, t)
		}
	}
}

func (r *Runner) fire(ctx context.Context, t fireTask) {
	start := time.Now()
	runCtx := ctx
	var cancel context.CancelFunc
	if t.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	if err := r.disp.Send(runCtx, t.habitID); err != nil {
		r.log.Warn("reminder dispatch failed", logx.String("job", t.name), logx.Duration("took", time.Since(start)), logx.Err(err))
		return
	}
	r.log.Info("reminder dispatched", logx.String("job", t.name), logx.Duration("took", time.Since(start)))
}

func (r *Runner) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(r.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		r.log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

// runnableSpec renders a trigger into a spec robfig/cron accepts. Stored
// day-of-week fields carry full weekday names; cron wants three-letter
// abbreviations, so names are normalized here and only here, keeping the
// stored tuple in its exact form. Anything still unparseable (say a leftover
// literal token) is rejected later by cron.AddFunc and the entry is skipped.
func runnableSpec(t Trigger) string {
	n := t
	n.DayOfWeek = normalizeDayOfWeek(t.DayOfWeek)
	return n.CronSpec()
}

var dayAbbrev = map[string]string{
	"monday":    "MON",
	"tuesday":   "TUE",
	"wednesday": "WED",
	"thursday":  "THU",
	"friday":    "FRI",
	"saturday":  "SAT",
	"sunday":    "SUN",
}

func normalizeDayOfWeek(field string) string {
	parts := strings.Split(field, ",")
	for i, p := range parts {
		if abbr, ok := dayAbbrev[strings.ToLower(strings.TrimSpace(p))]; ok {
			parts[i] = abbr
		}
	}
	return strings.Join(parts, ",")
}
