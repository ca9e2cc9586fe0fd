package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/checkoutdesk/internal/circulation"
	"github.com/mrlokans/checkoutdesk/internal/docstore"
	"github.com/mrlokans/checkoutdesk/internal/entities"
	"github.com/mrlokans/checkoutdesk/internal/tasks"
)

var (
	librarian = circulation.Actor{Username: "admin", Role: entities.UserRoleLibrarian}
	john      = circulation.Actor{Username: "john", Role: entities.UserRoleRegular}
)

type fakeQueue struct {
	mu    sync.Mutex
	tasks []backlite.Task
	err   error
}

func (q *fakeQueue) Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, tasks...)
	ids := make([]string, len(tasks))
	for i := range ids {
		ids[i] = "task"
	}
	return ids, nil
}

type notice struct {
	requester   string
	loanID      uint
	description string
}

type fakeRecorder struct {
	notices []notice
}

func (r *fakeRecorder) LogOverdueNotice(requester string, loanID uint, description string) {
	r.notices = append(r.notices, notice{requester, loanID, description})
}

type sweepFixture struct {
	engine *circulation.Engine
	store  circulation.Store
	now    time.Time
}

// setupSweep creates an engine with one loan due 2025-01-01 and the clock
// set to today.
func setupSweep(t *testing.T, today time.Time) *sweepFixture {
	t.Helper()
	ctx := context.Background()
	f := &sweepFixture{store: docstore.NewMemory(), now: time.Date(2024, 12, 2, 9, 0, 0, 0, time.UTC)}
	t.Cleanup(func() { _ = f.store.Close() })
	f.engine = circulation.NewEngine(f.store, circulation.WithClock(func() time.Time { return f.now }))

	book, err := f.engine.AddBook(ctx, librarian, "1984", "George Orwell", "", 1)
	require.NoError(t, err)
	req, err := f.engine.SubmitCheckoutRequest(ctx, john, book.ID)
	require.NoError(t, err)
	_, err = f.engine.DecideCheckout(ctx, librarian, req.ID, true)
	require.NoError(t, err)

	f.now = today
	return f
}

func TestSweep_QueuesNoticesForOverdueLoans(t *testing.T) {
	f := setupSweep(t, time.Date(2025, 1, 4, 9, 0, 0, 0, time.UTC))
	queue := &fakeQueue{}
	s := NewOverdueSweepScheduler(f.engine, f.store, WithQueue(queue))
	s.now = func() time.Time { return time.Date(2025, 1, 4, 8, 0, 0, 0, time.UTC) }

	count, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Len(t, queue.tasks, 1)
	task, ok := queue.tasks[0].(tasks.OverdueNoticeTask)
	require.True(t, ok)
	assert.Equal(t, "john", task.Requester)
	assert.Equal(t, 3, task.DaysLate)
	assert.Equal(t, "1.50", task.Fine)

	last, err := s.LastSweep(context.Background())
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 1, last.Count)
	assert.Equal(t, time.Date(2025, 1, 4, 8, 0, 0, 0, time.UTC), last.At)
}

func TestSweep_RecordsInlineWithoutQueue(t *testing.T) {
	f := setupSweep(t, time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC))
	recorder := &fakeRecorder{}
	s := NewOverdueSweepScheduler(f.engine, f.store, WithRecorder(recorder))

	count, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, recorder.notices, 1)
	assert.Equal(t, "john", recorder.notices[0].requester)
	assert.Contains(t, recorder.notices[0].description, `"1984" was due 2025-01-01`)
}

func TestSweep_DueDateIsNotOverdue(t *testing.T) {
	f := setupSweep(t, time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC))
	queue := &fakeQueue{}
	s := NewOverdueSweepScheduler(f.engine, f.store, WithQueue(queue))

	count, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, queue.tasks)

	last, err := s.LastSweep(context.Background())
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Zero(t, last.Count)
}

func TestSweep_EnqueueFailure(t *testing.T) {
	f := setupSweep(t, time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC))
	s := NewOverdueSweepScheduler(f.engine, f.store, WithQueue(&fakeQueue{err: errors.New("queue closed")}))

	_, err := s.Sweep(context.Background())
	require.Error(t, err)

	last, err := s.LastSweep(context.Background())
	require.NoError(t, err)
	assert.Nil(t, last, "a failed sweep leaves no bookkeeping")
}

func TestSweep_RejectsConcurrentSweep(t *testing.T) {
	f := setupSweep(t, time.Date(2025, 1, 4, 9, 0, 0, 0, time.UTC))
	s := NewOverdueSweepScheduler(f.engine, f.store)
	s.isSweeping = true

	_, err := s.Sweep(context.Background())
	assert.ErrorIs(t, err, ErrSweepInProgress)
}

func TestScheduler_StartStop(t *testing.T) {
	f := setupSweep(t, time.Date(2025, 1, 4, 9, 0, 0, 0, time.UTC))
	s := NewOverdueSweepScheduler(f.engine, f.store, WithQueue(&fakeQueue{}), WithAuditCleanup(30))

	assert.Nil(t, s.NextRunTime())
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.NotNil(t, s.NextRunTime())
	assert.Len(t, s.cron.Entries(), 2)

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

// blockingStore parks View calls once armed until release is closed.
type blockingStore struct {
	circulation.Store
	armed   atomic.Bool
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) View(ctx context.Context, fn func(circulation.Tx) error) error {
	if b.armed.Load() {
		b.once.Do(func() { close(b.entered) })
		<-b.release
	}
	return b.Store.View(ctx, fn)
}

func TestScheduler_StopDuringSweep(t *testing.T) {
	f := setupSweep(t, time.Date(2025, 1, 4, 9, 0, 0, 0, time.UTC))
	store := &blockingStore{Store: f.store, entered: make(chan struct{}), release: make(chan struct{})}
	engine := circulation.NewEngine(store, circulation.WithClock(func() time.Time { return f.now }))
	s := NewOverdueSweepScheduler(engine, store, WithQueue(&fakeQueue{}), WithSchedule("@every 1s"))

	store.armed.Store(true)
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-store.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("sweep never started")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	time.Sleep(50 * time.Millisecond)
	store.armed.Store(false)
	close(store.release)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return while a sweep was finishing")
	}
	assert.False(t, s.IsRunning())

	last, err := s.LastSweep(context.Background())
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 1, last.Count)
}

func TestScheduler_StopsWhenContextCancelled(t *testing.T) {
	f := setupSweep(t, time.Date(2025, 1, 4, 9, 0, 0, 0, time.UTC))
	s := NewOverdueSweepScheduler(f.engine, f.store)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	f := setupSweep(t, time.Date(2025, 1, 4, 9, 0, 0, 0, time.UTC))
	s := NewOverdueSweepScheduler(f.engine, f.store, WithSchedule("every tuesday"))

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.False(t, s.IsRunning())
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		valid    bool
	}{
		{"0 8 * * *", true},
		{"*/15 * * * *", true},
		{"@daily", true},
		{"0 8 * *", false},
		{"61 8 * * *", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			err := ValidateSchedule(tt.schedule)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
