package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/checkoutdesk/internal/circulation"
	"github.com/mrlokans/checkoutdesk/internal/entities"
	"github.com/mrlokans/checkoutdesk/internal/tasks"
)

const (
	// DefaultSweepSchedule runs the overdue sweep every day at 08:00.
	DefaultSweepSchedule = "0 8 * * *"
	// auditCleanupSchedule prunes the audit trail nightly.
	auditCleanupSchedule = "30 3 * * *"
)

// ErrSweepInProgress is returned by Sweep when another sweep is running.
var ErrSweepInProgress = errors.New("overdue sweep already in progress")

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// NoticeQueue accepts overdue notice and cleanup tasks. *tasks.Client
// implements it.
type NoticeQueue interface {
	Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error)
}

// SweepResult is the bookkeeping of the most recent sweep.
type SweepResult struct {
	At    time.Time `json:"at"`
	Count int       `json:"count"`
}

// OverdueSweepScheduler periodically finds overdue loans and issues a
// notice for each one.
type OverdueSweepScheduler struct {
	engine   *circulation.Engine
	store    circulation.Store
	queue    NoticeQueue
	recorder tasks.OverdueNoticeRecorder

	schedule           string
	auditRetentionDays int
	now                func() time.Time

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSweeping bool
	cancelFunc context.CancelFunc
}

// Option configures an OverdueSweepScheduler.
type Option func(*OverdueSweepScheduler)

// WithQueue sends notices through the task queue instead of recording
// them inline.
func WithQueue(queue NoticeQueue) Option {
	return func(s *OverdueSweepScheduler) { s.queue = queue }
}

// WithRecorder records notices inline when no queue is configured.
func WithRecorder(recorder tasks.OverdueNoticeRecorder) Option {
	return func(s *OverdueSweepScheduler) { s.recorder = recorder }
}

// WithSchedule overrides DefaultSweepSchedule.
func WithSchedule(schedule string) Option {
	return func(s *OverdueSweepScheduler) {
		if schedule != "" {
			s.schedule = schedule
		}
	}
}

// WithAuditCleanup also enqueues a nightly audit cleanup keeping days of
// history. It needs a queue.
func WithAuditCleanup(days int) Option {
	return func(s *OverdueSweepScheduler) { s.auditRetentionDays = days }
}

// NewOverdueSweepScheduler creates a scheduler over engine. store receives
// the last-sweep bookkeeping and should be the engine's store.
func NewOverdueSweepScheduler(engine *circulation.Engine, store circulation.Store, opts ...Option) *OverdueSweepScheduler {
	s := &OverdueSweepScheduler{
		engine:   engine,
		store:    store,
		schedule: DefaultSweepSchedule,
		now:      time.Now,
		cron:     cron.New(cron.WithParser(cronParser)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start schedules the sweep. It stops when ctx is cancelled.
func (s *OverdueSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, s.runSweep)
	if err != nil {
		return fmt.Errorf("failed to schedule overdue sweep: %w", err)
	}
	s.entryID = entryID

	if s.queue != nil && s.auditRetentionDays > 0 {
		if _, err := s.cron.AddFunc(auditCleanupSchedule, s.runAuditCleanup); err != nil {
			return fmt.Errorf("failed to schedule audit cleanup: %w", err)
		}
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Overdue sweep scheduler: started with schedule '%s'. Next run: %v",
		s.schedule, s.cron.Entry(s.entryID).Next)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running sweep and halts the schedule.
func (s *OverdueSweepScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel := s.cancelFunc
	s.cancelFunc = nil
	s.mu.Unlock()

	// A running sweep takes mu when it finishes, so wait unlocked.
	<-s.cron.Stop().Done()

	if cancel != nil {
		cancel()
	}

	log.Printf("Overdue sweep scheduler: stopped")
}

// RunNow triggers a sweep in the background.
func (s *OverdueSweepScheduler) RunNow() {
	go s.runSweep()
}

// IsRunning reports whether the schedule is active.
func (s *OverdueSweepScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next sweep will occur, or nil when stopped.
func (s *OverdueSweepScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}

// Sweep issues a notice for every loan overdue today and returns how many
// it issued.
func (s *OverdueSweepScheduler) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.isSweeping {
		s.mu.Unlock()
		return 0, ErrSweepInProgress
	}
	s.isSweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSweeping = false
		s.mu.Unlock()
	}()

	overdue, err := s.engine.OverdueLoans(ctx, s.engine.Today())
	if err != nil {
		return 0, fmt.Errorf("list overdue loans: %w", err)
	}

	notices := make([]backlite.Task, 0, len(overdue))
	for _, loan := range overdue {
		notice := tasks.NewOverdueNoticeTask(loan)
		if s.queue != nil {
			notices = append(notices, notice)
			continue
		}
		if s.recorder != nil {
			s.recorder.LogOverdueNotice(notice.Requester, notice.LoanID, notice.Description())
		}
	}

	if s.queue != nil && len(notices) > 0 {
		if _, err := s.queue.Enqueue(ctx, notices...); err != nil {
			return 0, fmt.Errorf("enqueue overdue notices: %w", err)
		}
	}

	if err := s.recordSweep(ctx, len(overdue)); err != nil {
		return len(overdue), err
	}
	return len(overdue), nil
}

// LastSweep returns the bookkeeping of the most recent sweep, or nil if
// none has run.
func (s *OverdueSweepScheduler) LastSweep(ctx context.Context) (*SweepResult, error) {
	var at, count string
	err := s.store.View(ctx, func(tx circulation.Tx) error {
		var err error
		if at, err = tx.GetSetting(entities.SettingKeyOverdueSweepLastAt); err != nil {
			return err
		}
		count, err = tx.GetSetting(entities.SettingKeyOverdueSweepLastCount)
		return err
	})
	if err != nil {
		return nil, err
	}
	if at == "" {
		return nil, nil
	}

	result := &SweepResult{}
	if result.At, err = time.Parse(time.RFC3339, at); err != nil {
		return nil, fmt.Errorf("parse last sweep time: %w", err)
	}
	result.Count, _ = strconv.Atoi(count)
	return result, nil
}

func (s *OverdueSweepScheduler) recordSweep(ctx context.Context, count int) error {
	at := s.now().UTC().Format(time.RFC3339)
	return s.store.Update(ctx, func(tx circulation.Tx) error {
		if err := tx.PutSetting(entities.SettingKeyOverdueSweepLastAt, at); err != nil {
			return err
		}
		return tx.PutSetting(entities.SettingKeyOverdueSweepLastCount, strconv.Itoa(count))
	})
}

func (s *OverdueSweepScheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	startTime := time.Now()
	count, err := s.Sweep(ctx)
	switch {
	case errors.Is(err, ErrSweepInProgress):
		log.Printf("Overdue sweep: skipped (already sweeping)")
	case err != nil:
		log.Printf("Overdue sweep: failed: %v", err)
	default:
		log.Printf("Overdue sweep: %d overdue loan(s) noticed in %v", count, time.Since(startTime).Round(time.Millisecond))
	}
}

func (s *OverdueSweepScheduler) runAuditCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	task := tasks.CleanupAuditEventsTask{RetentionDays: s.auditRetentionDays}
	if _, err := s.queue.Enqueue(ctx, task); err != nil {
		log.Printf("Audit cleanup: failed to enqueue: %v", err)
	}
}
