package library

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luminousdeep/internal/progress"
	"luminousdeep/internal/signals"
	"luminousdeep/pkg/database"
	"luminousdeep/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func sig(slug string, stratum models.Stratum, season, ep int, release int64) models.EnrichedSignal {
	return models.EnrichedSignal{Signal: models.Signal{
		ID: slug, Slug: slug, Stratum: stratum, Season: season, Episode: ep, ReleaseDate: release,
	}}
}

func withProgress(s models.EnrichedSignal, lastReadAt int64, completed bool) models.EnrichedSignal {
	s.Progress = &models.UserProgress{SignalID: s.ID, Progress: 50, LastReadAt: lastReadAt, IsCompleted: completed}
	return s
}

func slugs(list []models.EnrichedSignal) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.Slug)
	}
	return out
}

func TestPartition_Exclusive(t *testing.T) {
	all := []models.EnrichedSignal{
		sig("myth-late", models.StratumMyth, 0, 0, 300),
		sig("myth-undated", models.StratumMyth, 2, 0, 0),
		sig("myth-early", models.StratumMyth, 0, 0, 100),
		sig("zero-2", models.StratumSignal, 0, 2, 0),
		sig("zero-1", models.StratumSignal, 0, 1, 0),
		sig("s3", models.StratumSignal, 3, 1, 0),
		sig("refl-b", models.StratumReflection, 0, 0, 20),
		sig("refl-a", models.StratumReflection, 4, 0, 10),
	}

	st := Partition(all)
	assert.Equal(t, []string{"myth-undated", "myth-early", "myth-late"}, slugs(st.Myths))
	assert.Equal(t, []string{"zero-1", "zero-2"}, slugs(st.SeasonZero))
	assert.Equal(t, []string{"refl-a", "refl-b"}, slugs(st.Reflections))

	seen := map[string]int{}
	for _, bucket := range [][]models.EnrichedSignal{st.Myths, st.SeasonZero, st.Reflections} {
		for _, s := range bucket {
			seen[s.Slug]++
		}
	}
	for slug, n := range seen {
		assert.Equal(t, 1, n, slug)
	}
	assert.NotContains(t, seen, "s3")
	assert.Len(t, seen, len(all)-1)
}

func TestPartition_EmptyBucketsAreNotNil(t *testing.T) {
	st := Partition(nil)
	assert.NotNil(t, st.Myths)
	assert.NotNil(t, st.SeasonZero)
	assert.NotNil(t, st.Reflections)
	assert.Nil(t, st.ContinueReading)
}

func TestContinueReading(t *testing.T) {
	older := withProgress(sig("older", models.StratumSignal, 0, 1, 0), 100, false)
	newer := withProgress(sig("newer", models.StratumSignal, 3, 1, 0), 200, false)
	done := withProgress(sig("done", models.StratumMyth, 0, 0, 0), 900, true)
	fresh := sig("fresh", models.StratumSignal, 0, 2, 0)

	got := ContinueReading([]models.EnrichedSignal{older, done, newer, fresh})
	require.NotNil(t, got)
	assert.Equal(t, "newer", got.Slug)

	assert.Nil(t, ContinueReading([]models.EnrichedSignal{fresh}))
	assert.Nil(t, ContinueReading([]models.EnrichedSignal{done}))
	assert.Nil(t, ContinueReading(nil))
}

type fixture struct {
	svc      *Service
	signals  *signals.Repo
	progress *progress.Repo
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := database.OpenTest(t)
	f := fixture{signals: signals.NewRepo(db), progress: progress.NewRepo(db)}
	f.svc = NewService(f.signals, f.progress)

	ctx := context.Background()
	for _, s := range []models.Signal{
		{ID: "m1", Slug: "m1", Stratum: models.StratumMyth, Title: "M", Content: "myth body", ReleaseDate: 50},
		{ID: "z1", Slug: "z1", Stratum: models.StratumSignal, Title: "Z", Content: "zero body"},
		{ID: "s3", Slug: "s3", Stratum: models.StratumSignal, Season: 3, Episode: 1, Title: "S"},
		{ID: "r1", Slug: "r1", Stratum: models.StratumReflection, Title: "R"},
	} {
		require.NoError(t, f.signals.Create(ctx, s))
	}
	return f
}

func TestGetLibraryState_Anonymous(t *testing.T) {
	f := newFixture(t)
	st, err := f.svc.GetLibraryState(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"m1"}, slugs(st.Myths))
	assert.Equal(t, []string{"z1"}, slugs(st.SeasonZero))
	assert.Equal(t, []string{"r1"}, slugs(st.Reflections))
	assert.Nil(t, st.ContinueReading)
	assert.Empty(t, st.SeasonZero[0].Content)
}

func TestGetLibraryState_ContinueReadingAcrossStrata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, p := range []models.UserProgress{
		{UserID: "u1", SignalID: "z1", Progress: 10, LastReadAt: 100},
		{UserID: "u1", SignalID: "s3", Progress: 30, LastReadAt: 200},
		{UserID: "u1", SignalID: "m1", Progress: 100, IsCompleted: true, LastReadAt: 300},
		{UserID: "u2", SignalID: "r1", Progress: 10, LastReadAt: 999},
	} {
		_, _, err := f.progress.Save(ctx, p)
		require.NoError(t, err)
	}

	st, err := f.svc.GetLibraryState(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, st.ContinueReading)
	assert.Equal(t, "s3", st.ContinueReading.Slug)
	require.NotNil(t, st.Myths[0].Progress)
	assert.True(t, st.Myths[0].Progress.IsCompleted)
	assert.Nil(t, st.Reflections[0].Progress)
}

func TestHandler(t *testing.T) {
	f := newFixture(t)
	r := gin.New()
	NewHandler(f.svc).RegisterRoutes(r.Group(""))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/library", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"continue_reading":null`)
	assert.Contains(t, w.Body.String(), `"season_zero":[`)
}
