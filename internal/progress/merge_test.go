package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"luminousdeep/pkg/models"
)

func TestMergeProgress_NilExisting(t *testing.T) {
	got := MergeProgress(nil, models.UserProgress{UserID: "u", SignalID: "s", Progress: 150, LastReadAt: 7})
	assert.Equal(t, 100.0, got.Progress)
	assert.Equal(t, int64(7), got.LastReadAt)
	assert.False(t, got.IsCompleted)
}

func TestMergeProgress_NeverUncompletes(t *testing.T) {
	existing := &models.UserProgress{UserID: "u", SignalID: "s", Progress: 100, IsCompleted: true, LastReadAt: 10}
	got := MergeProgress(existing, models.UserProgress{UserID: "u", SignalID: "s", Progress: 20, IsCompleted: false, LastReadAt: 20})

	assert.True(t, got.IsCompleted)
	assert.Equal(t, 20.0, got.Progress)
	assert.Equal(t, int64(20), got.LastReadAt)
}

func TestMergeProgress_ClampsIncoming(t *testing.T) {
	existing := &models.UserProgress{Progress: 50}
	assert.Equal(t, 0.0, MergeProgress(existing, models.UserProgress{Progress: -10}).Progress)
	assert.Equal(t, 100.0, MergeProgress(existing, models.UserProgress{Progress: 150}).Progress)
}

// Every sequence of completion flags up to length 5 folds to the logical
// OR of the sequence.
func TestMergeProgress_FoldEqualsOr(t *testing.T) {
	for n := 1; n <= 5; n++ {
		for mask := 0; mask < 1<<n; mask++ {
			var (
				stored *models.UserProgress
				want   bool
			)
			for i := 0; i < n; i++ {
				flag := mask&(1<<i) != 0
				want = want || flag
				merged := MergeProgress(stored, models.UserProgress{
					UserID: "u", SignalID: "s", Progress: float64(i * 10), IsCompleted: flag, LastReadAt: int64(i),
				})
				stored = &merged
			}
			assert.Equal(t, want, stored.IsCompleted, "n=%d mask=%b", n, mask)
			assert.Equal(t, int64(n-1), stored.LastReadAt)
		}
	}
}
