package canon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luminousdeep/pkg/database"
	"luminousdeep/pkg/models"
)

func TestRepo_Lifecycle(t *testing.T) {
	repo := NewRepo(database.OpenTest(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, models.CanonEntry{ID: "c1", Title: "The Trench", Content: "v1", UpdatedAt: 1}))
	require.NoError(t, repo.Create(ctx, models.CanonEntry{ID: "c2", Title: "Draft", Content: "x", UpdatedAt: 1}))

	e, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, e.Version)
	assert.False(t, e.IsCanon())

	ok, err := repo.Update(ctx, "c1", "The Trench", "v2", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Update(ctx, "c1", "The Trench", "v3", 3)
	require.NoError(t, err)
	assert.True(t, ok)

	e, err = repo.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, e.Version)
	assert.Equal(t, "v3", e.Content)

	ok, err = repo.Lock(ctx, "c1", 10)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = repo.Lock(ctx, "c1", 20)
	require.NoError(t, err)

	e, err = repo.Get(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, e.LockedAt)
	assert.Equal(t, int64(10), *e.LockedAt)

	locked, err := repo.ListLocked(ctx)
	require.NoError(t, err)
	require.Len(t, locked, 1)
	assert.Equal(t, "c1", locked[0].ID)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	missing, err := repo.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
	ok, err = repo.Lock(ctx, "nope", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHandler_OnlyLocked(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := NewRepo(database.OpenTest(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, models.CanonEntry{ID: "c1", Title: "Locked"}))
	require.NoError(t, repo.Create(ctx, models.CanonEntry{ID: "c2", Title: "Unlocked"}))
	_, err := repo.Lock(ctx, "c1", 5)
	require.NoError(t, err)

	r := gin.New()
	NewHandler(repo).RegisterRoutes(r.Group(""))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/canon", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Locked")
	assert.NotContains(t, w.Body.String(), "Unlocked")
}
