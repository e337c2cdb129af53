package backup

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luminousdeep/internal/progress"
	"luminousdeep/internal/signals"
	"luminousdeep/pkg/database"
	"luminousdeep/pkg/models"
)

func intPtr(n int) *int { return &n }

func TestSignalsRoundTripThroughDatabase(t *testing.T) {
	ctx := context.Background()
	src := signals.NewRepo(database.OpenTest(t))

	series := "series-1"
	require.NoError(t, src.Create(ctx, models.Signal{
		ID: "s1", Slug: "first-light", Season: 1, Episode: 1, Stratum: models.StratumSignal,
		Title: "First Light", Content: "line one,\n\"quoted\" line two", IsLocked: true,
		GlitchPoint: intPtr(7), SeriesID: &series, ReleaseDate: 1000, PublishedAt: 2000, UpdatedAt: 3000,
	}))
	require.NoError(t, src.Create(ctx, models.Signal{
		ID: "m1", Slug: "the-drowned-bell", Stratum: models.StratumMyth, Title: "The Drowned Bell", UpdatedAt: 10,
	}))

	all, err := src.ListWithContent(ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSignals(&buf, all))

	parsed, err := ReadSignals(&buf)
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	dst := signals.NewRepo(database.OpenTest(t))
	st, err := ImportSignals(ctx, dst, parsed)
	require.NoError(t, err)
	assert.Equal(t, Stats{Inserted: 2}, st)

	got, err := dst.GetBySlug(ctx, "first-light")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "line one,\n\"quoted\" line two", got.Content)
	assert.True(t, got.IsLocked)
	require.NotNil(t, got.GlitchPoint)
	assert.Equal(t, 7, *got.GlitchPoint)
	require.NotNil(t, got.SeriesID)
	assert.Equal(t, series, *got.SeriesID)
	assert.Equal(t, int64(2000), got.PublishedAt)

	// second import updates in place
	st, err = ImportSignals(ctx, dst, parsed)
	require.NoError(t, err)
	assert.Equal(t, Stats{Updated: 2}, st)
}

func TestReadSignals_ToleratesReorderedColumnsAndDropsIncompleteRows(t *testing.T) {
	in := "title,slug,id,stratum\n" +
		"Echo,echo,e1,REFLECTION\n" +
		",no-title,x1,\n" +
		"Legacy,legacy,l1,\n"
	list, err := ReadSignals(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.StratumReflection, list[0].Stratum)
	assert.Equal(t, models.StratumSignal, list[1].Stratum)
}

func TestReadSignals_BadNumber(t *testing.T) {
	_, err := ReadSignals(strings.NewReader("id,slug,title,season\na,b,c,four\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadEmptyInput(t *testing.T) {
	list, err := ReadProgress(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestImportProgress_NeverUncompletes(t *testing.T) {
	ctx := context.Background()
	repo := progress.NewRepo(database.OpenTest(t))

	_, _, err := repo.Save(ctx, models.UserProgress{UserID: "u1", SignalID: "s1", Progress: 100, IsCompleted: true, LastReadAt: 50})
	require.NoError(t, err)

	// an older export taken before the reader finished
	stale := "user_id,signal_id,progress,is_completed,last_read_at\n" +
		"u1,s1,40,false,10\n" +
		"u2,s1,250,0,20\n" +
		",s1,10,false,1\n"
	list, err := ReadProgress(strings.NewReader(stale))
	require.NoError(t, err)
	require.Len(t, list, 2)

	st, err := ImportProgress(ctx, repo, list)
	require.NoError(t, err)
	assert.Equal(t, Stats{Inserted: 1, Updated: 1}, st)

	got, err := repo.Get(ctx, "u1", "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsCompleted)

	n, err := repo.CountRows(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	other, err := repo.Get(ctx, "u2", "s1")
	require.NoError(t, err)
	require.NotNil(t, other)
	assert.Equal(t, 100.0, other.Progress)
}

func TestWriteProgress(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteProgress(&buf, []models.UserProgress{
		{UserID: "u1", SignalID: "s1", Progress: 62.5, IsCompleted: false, LastReadAt: 99},
	}))
	assert.Equal(t, "user_id,signal_id,progress,is_completed,last_read_at\nu1,s1,62.5,false,99\n", buf.String())
}
