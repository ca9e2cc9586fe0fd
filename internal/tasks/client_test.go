package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/checkoutdesk/internal/circulation"
	"github.com/mrlokans/checkoutdesk/internal/entities"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(filepath.Join(t.TempDir(), "test-tasks.db"), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestQueuePath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "checkoutdesk-tasks.db"), QueuePath(filepath.Join("data", "checkoutdesk.db")))
	assert.Equal(t, filepath.Join("data", "checkoutdesk-tasks.db"), QueuePath(filepath.Join("data", "checkoutdesk.json")))
	assert.Equal(t, "library-tasks.db", QueuePath("library"))
}

func TestNewClient(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test-tasks.db")

	client, err := NewClient(dbPath, DefaultConfig())
	require.NoError(t, err)

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "tasks database should be created")
	assert.NoError(t, client.Close())
}

func TestClientStartStop(t *testing.T) {
	client := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	assert.True(t, client.Stop(stopCtx), "stop should succeed gracefully")
}

func TestClientStopWithoutStart(t *testing.T) {
	client := newTestClient(t)
	assert.True(t, client.Stop(context.Background()))
}

type recordedNotice struct {
	requester   string
	loanID      uint
	description string
}

type fakeRecorder struct {
	notices chan recordedNotice
}

func (r *fakeRecorder) LogOverdueNotice(requester string, loanID uint, description string) {
	r.notices <- recordedNotice{requester: requester, loanID: loanID, description: description}
}

func TestOverdueNoticeQueue_DeliversNotice(t *testing.T) {
	client := newTestClient(t)
	recorder := &fakeRecorder{notices: make(chan recordedNotice, 1)}
	client.Register(NewOverdueNoticeQueue(recorder))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	overdue := circulation.OverdueLoan{
		Loan: entities.Loan{
			ID:        7,
			BookID:    2,
			Requester: "john",
			DueDate:   time.Date(2024, 11, 30, 0, 0, 0, 0, time.UTC),
		},
		Title:    "1984",
		DaysLate: 2,
		Fine:     decimal.RequireFromString("1.00"),
	}
	ids, err := client.Enqueue(ctx, NewOverdueNoticeTask(overdue))
	require.NoError(t, err)
	require.Len(t, ids, 1)

	select {
	case got := <-recorder.notices:
		assert.Equal(t, "john", got.requester)
		assert.Equal(t, uint(7), got.loanID)
		assert.Equal(t, `"1984" was due 2024-11-30; 2 day(s) late, fine so far 1.00`, got.description)
	case <-time.After(5 * time.Second):
		t.Fatal("overdue notice was not processed within timeout")
	}
}

func TestOverdueNoticeProcessor_RejectsIncompleteTask(t *testing.T) {
	process := OverdueNoticeProcessor(&fakeRecorder{notices: make(chan recordedNotice, 1)})
	err := process(context.Background(), OverdueNoticeTask{Title: "1984"})
	assert.Error(t, err)

	process = OverdueNoticeProcessor(nil)
	err = process(context.Background(), OverdueNoticeTask{LoanID: 1, Requester: "john"})
	assert.Error(t, err)
}

type fakeCleaner struct {
	retention time.Duration
	deleted   int64
}

func (c *fakeCleaner) DeleteOldEvents(retention time.Duration) (int64, error) {
	c.retention = retention
	return c.deleted, nil
}

func TestCleanupAuditEventsProcessor(t *testing.T) {
	cleaner := &fakeCleaner{deleted: 4}

	err := CleanupAuditEventsProcessor(cleaner)(context.Background(), CleanupAuditEventsTask{RetentionDays: 7})
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, cleaner.retention)

	err = CleanupAuditEventsProcessor(cleaner)(context.Background(), CleanupAuditEventsTask{})
	require.NoError(t, err)
	assert.Equal(t, DefaultAuditRetentionDays*24*time.Hour, cleaner.retention)

	err = CleanupAuditEventsProcessor(nil)(context.Background(), CleanupAuditEventsTask{})
	assert.Error(t, err)
}

func TestTaskConfigs(t *testing.T) {
	notice := OverdueNoticeTask{}.Config()
	assert.Equal(t, "overdue_notice", notice.Name)
	assert.Equal(t, 3, notice.MaxAttempts)
	assert.NotNil(t, notice.Retention)

	cleanup := CleanupAuditEventsTask{}.Config()
	assert.Equal(t, "cleanup_audit_events", cleanup.Name)
	assert.Equal(t, 2*time.Minute, cleanup.Timeout)

	types := Types()
	require.Len(t, types, 2)
	assert.Equal(t, "overdue_notice", types[0].Queue)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
}

var _ backlite.Task = OverdueNoticeTask{}
var _ backlite.Task = CleanupAuditEventsTask{}
