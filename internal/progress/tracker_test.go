package progress

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	synchub "luminousdeep/internal/sync"
	"luminousdeep/pkg/database"
	"luminousdeep/pkg/logging"
)

type recorder struct {
	mu     sync.Mutex
	events []synchub.ProgressEvent
	owners []string
}

func (r *recorder) SendToUser(userID string, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev, ok := v.(synchub.ProgressEvent); ok {
		r.events = append(r.events, ev)
		r.owners = append(r.owners, userID)
	}
}

func newTestTracker(t *testing.T) (*Tracker, *recorder) {
	t.Helper()
	rec := &recorder{}
	tr := NewTracker(NewRepo(database.OpenTest(t)), rec, logging.Discard())
	clock := int64(1_000)
	var mu sync.Mutex
	tr.Now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock += 100
		return time.UnixMilli(clock)
	}
	return tr, rec
}

func TestTracker_AnonymousIsNoop(t *testing.T) {
	tr, rec := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.SaveProgress(ctx, "", "sig-1", 50, false))
	require.NoError(t, tr.CompleteTransmission(ctx, "", "sig-1"))

	var n int
	require.NoError(t, tr.Repo.DB.QueryRow(`SELECT COUNT(*) FROM user_progress`).Scan(&n))
	assert.Zero(t, n)
	assert.Empty(t, rec.events)
}

func TestTracker_InsertThenUpdate(t *testing.T) {
	tr, rec := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.SaveProgress(ctx, "u1", "sig-1", 30, false))
	first, err := tr.Repo.Get(ctx, "u1", "sig-1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 30.0, first.Progress)

	require.NoError(t, tr.SaveProgress(ctx, "u1", "sig-1", 60, false))
	second, err := tr.Repo.Get(ctx, "u1", "sig-1")
	require.NoError(t, err)
	assert.Equal(t, 60.0, second.Progress)
	assert.Greater(t, second.LastReadAt, first.LastReadAt)

	n, err := tr.Repo.CountRows(ctx, "u1", "sig-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, rec.events, 2)
	assert.Equal(t, []string{"u1", "u1"}, rec.owners)
}

func TestTracker_StaleIncompleteDoesNotUncomplete(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.SaveProgress(ctx, "u1", "sig-1", 100, true))
	require.NoError(t, tr.SaveProgress(ctx, "u1", "sig-1", 40, false))

	p, err := tr.Repo.Get(ctx, "u1", "sig-1")
	require.NoError(t, err)
	assert.True(t, p.IsCompleted)
	assert.Equal(t, 40.0, p.Progress)
}

func TestTracker_ClampsOnWrite(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.SaveProgress(ctx, "u1", "low", -10, false))
	require.NoError(t, tr.SaveProgress(ctx, "u1", "high", 150, false))

	low, err := tr.Repo.Get(ctx, "u1", "low")
	require.NoError(t, err)
	high, err := tr.Repo.Get(ctx, "u1", "high")
	require.NoError(t, err)
	assert.Equal(t, 0.0, low.Progress)
	assert.Equal(t, 100.0, high.Progress)
}

func TestTracker_ClampsLegacyRowsOnRead(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tr.Repo.DB.Exec(`INSERT INTO user_progress (user_id, signal_id, progress, is_completed, last_read_at) VALUES ('u1', 'bad', 250, 0, 5)`)
	require.NoError(t, err)

	byID, err := tr.Repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, byID["bad"].Progress)
}

func TestTracker_CompleteTransmissionIdempotent(t *testing.T) {
	tr, rec := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.CompleteTransmission(ctx, "u1", "sig-1"))
	once, err := tr.Repo.Get(ctx, "u1", "sig-1")
	require.NoError(t, err)

	require.NoError(t, tr.CompleteTransmission(ctx, "u1", "sig-1"))
	twice, err := tr.Repo.Get(ctx, "u1", "sig-1")
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.True(t, twice.IsCompleted)
	assert.Equal(t, 100.0, twice.Progress)

	n, err := tr.Repo.CountRows(ctx, "u1", "sig-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, rec.events, 2)
	assert.Equal(t, synchub.EventProgressComplete, rec.events[0].Type)
}

func TestTracker_CompleteKeepsExistingProgress(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.SaveProgress(ctx, "u1", "sig-1", 85, false))
	require.NoError(t, tr.CompleteTransmission(ctx, "u1", "sig-1"))

	p, err := tr.Repo.Get(ctx, "u1", "sig-1")
	require.NoError(t, err)
	assert.True(t, p.IsCompleted)
	assert.Equal(t, 85.0, p.Progress)
}

// Concurrent writers for one pair, one of which completes: whatever the
// interleaving, the pair ends completed with exactly one row.
func TestTracker_ConcurrentWritesKeepCompletion(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	for round := 0; round < 5; round++ {
		signalID := fmt.Sprintf("sig-%d", round)
		var wg sync.WaitGroup
		errs := make(chan error, 16)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if i == round*3%16 {
					errs <- tr.SaveProgress(ctx, "u1", signalID, 100, true)
					return
				}
				if i%5 == 0 {
					errs <- tr.CompleteTransmission(ctx, "u1", signalID)
					return
				}
				errs <- tr.SaveProgress(ctx, "u1", signalID, float64(i), false)
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		p, err := tr.Repo.Get(ctx, "u1", signalID)
		require.NoError(t, err)
		assert.True(t, p.IsCompleted, signalID)

		n, err := tr.Repo.CountRows(ctx, "u1", signalID)
		require.NoError(t, err)
		assert.Equal(t, 1, n, signalID)
	}
}
