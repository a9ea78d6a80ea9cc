// Package schedule re-runs research for every stored institution on a
// recurring UTC schedule
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/ppiankov/policyscout/internal/model"
	"github.com/ppiankov/policyscout/internal/worker"
)

const (
	// RefreshJobName names the daily refresh entry
	RefreshJobName = "updateUniversityData"
	// DefaultRefreshSpec runs the refresh at 02:00 UTC
	DefaultRefreshSpec = "0 2 * * *"
)

// InstitutionStore is the storage collaborator the refresh reads from and
// writes back to
type InstitutionStore interface {
	ListInstitutions(ctx context.Context) ([]model.Institution, error)
	UpdateSummary(ctx context.Context, id int64, summary string, updated time.Time) error
}

// ResearchSaver is implemented by stores that can keep full results
type ResearchSaver interface {
	SaveResearch(ctx context.Context, institutionID int64, result *model.ResearchResult) error
}

// RefreshReport tallies one refresh run
type RefreshReport struct {
	Updated int
	Failed  int
	Errors  map[string]error
}

// Scheduler owns the registered recurring jobs of one process
type Scheduler struct {
	researcher worker.Researcher
	spec       string
	persist    bool
	logger     *slog.Logger
	now        func() time.Time

	mu    sync.Mutex
	cron  *cron.Cron
	jobs  map[string]cron.EntryID
	store InstitutionStore
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithSpec overrides the refresh cron expression
func WithSpec(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.spec = spec
		}
	}
}

// WithPersistResults also saves policies and sources when the store
// supports it
func WithPersistResults(persist bool) Option {
	return func(s *Scheduler) { s.persist = persist }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a scheduler that refreshes through researcher
func New(researcher worker.Researcher, opts ...Option) *Scheduler {
	s := &Scheduler{
		researcher: researcher,
		spec:       DefaultRefreshSpec,
		logger:     slog.Default(),
		now:        time.Now,
		jobs:       make(map[string]cron.EntryID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleDailyRefresh binds store and registers the refresh job
func (s *Scheduler) ScheduleDailyRefresh(store InstitutionStore) error {
	s.mu.Lock()
	s.store = store
	s.mu.Unlock()
	return s.InitializeScheduledTasks()
}

// InitializeScheduledTasks registers the daily refresh against the bound
// store. Calling it again replaces the existing entry.
func (s *Scheduler) InitializeScheduledTasks() error {
	s.mu.Lock()
	store := s.store
	s.mu.Unlock()
	if store == nil {
		return errors.New("no institution store bound")
	}

	return s.Schedule(RefreshJobName, s.spec, func(ctx context.Context) {
		s.RunRefresh(ctx)
	})
}

// Schedule registers fn under name with a standard five-field cron spec
// evaluated in UTC, replacing any job already registered under name
func (s *Scheduler) Schedule(name, spec string, fn func(ctx context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		s.cron = cron.New(cron.WithLocation(time.UTC))
		s.cron.Start()
	}

	id, err := s.cron.AddFunc(spec, func() { fn(context.Background()) })
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}

	if old, ok := s.jobs[name]; ok {
		s.cron.Remove(old)
	}
	s.jobs[name] = id
	s.logger.Info("scheduled job", "job", name, "spec", spec, "next", s.cron.Entry(id).Next)
	return nil
}

// Jobs returns the registered job names, sorted
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NextRun reports when the named job fires next
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.jobs[name]
	if !ok || s.cron == nil {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// StopAll removes every job and stops the engine. A run already executing
// is not interrupted.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	for name, id := range s.jobs {
		s.cron.Remove(id)
		delete(s.jobs, name)
	}
	s.cron.Stop()
	s.cron = nil
	s.logger.Info("stopped all scheduled jobs")
}

// RunRefresh re-researches every stored institution once. A failure for
// one institution is logged and counted; the loop moves on.
func (s *Scheduler) RunRefresh(ctx context.Context) RefreshReport {
	report := RefreshReport{Errors: make(map[string]error)}
	logger := s.logger.With("refresh", uuid.NewString())

	s.mu.Lock()
	store := s.store
	s.mu.Unlock()
	if store == nil {
		report.Errors[""] = errors.New("no institution store bound")
		report.Failed++
		return report
	}

	institutions, err := store.ListInstitutions(ctx)
	if err != nil {
		logger.Error("loading institutions failed", "error", err)
		report.Errors[""] = err
		report.Failed++
		return report
	}

	for _, inst := range institutions {
		if ctx.Err() != nil {
			break
		}
		if err := s.refreshOne(ctx, store, inst); err != nil {
			logger.Error("refresh failed", "institution", inst.Name, "error", err)
			report.Errors[inst.Name] = err
			report.Failed++
			continue
		}
		report.Updated++
	}
	logger.Info("refresh complete", "institutions", len(institutions), "updated", report.Updated, "failed", report.Failed)
	return report
}

func (s *Scheduler) refreshOne(ctx context.Context, store InstitutionStore, inst model.Institution) error {
	website := inst.Website
	if website == "" {
		website = inst.Domain
	}

	result, err := s.researcher.ResearchUniversity(ctx, inst.Name, website)
	if err != nil {
		return err
	}

	if saver, ok := store.(ResearchSaver); ok && s.persist {
		return saver.SaveResearch(ctx, inst.ID, result)
	}
	return store.UpdateSummary(ctx, inst.ID, result.Summary, s.now().UTC())
}
