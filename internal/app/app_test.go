package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luminousdeep/internal/auth"
	synchub "luminousdeep/internal/sync"
	"luminousdeep/pkg/database"
	"luminousdeep/pkg/logging"
	"luminousdeep/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type client struct {
	t *testing.T
	r http.Handler
}

func (c client) do(method, path, token string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)
	return w
}

func (c client) register(username, email string) string {
	c.t.Helper()
	w := c.do(http.MethodPost, "/auth/register", "", gin.H{"username": username, "email": email, "password": "lighthouse"})
	require.Equal(c.t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Token
}

func (c client) login(email string) string {
	c.t.Helper()
	w := c.do(http.MethodPost, "/auth/login", "", gin.H{"email": email, "password": "lighthouse"})
	require.Equal(c.t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Token
}

func testConfig(t *testing.T) utils.Config {
	t.Helper()
	cfg, err := utils.LoadConfig("")
	require.NoError(t, err)
	cfg.Auth.LoginRatePerMinute = 0
	cfg.Voice.APIKey = ""
	return cfg
}

func newTestApp(t *testing.T) (client, *App) {
	t.Helper()
	a := New(database.OpenTest(t), testConfig(t), nil, nil, logging.Discard())
	return client{t: t, r: a.Router()}, a
}

// promote registers an account, grants it admin the operator way and
// returns a fresh token.
func (c client) promote(a *App, username, email string) string {
	c.t.Helper()
	c.register(username, email)
	u, err := a.Users.SetRoleByEmail(context.Background(), email, auth.RoleAdmin)
	require.NoError(c.t, err)
	require.NotNil(c.t, u)
	return c.login(email)
}

func TestEndToEnd_ReadingFlow(t *testing.T) {
	c, a := newTestApp(t)
	admin := c.promote(a, "editor", "editor@example.com")
	reader := c.register("reader", "reader@example.com")

	// studio: series with three episodes, published
	w := c.do(http.MethodPost, "/studio/series", admin, gin.H{"slug": "the-deep", "title": "The Deep", "status": "Published"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var ser struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ser))

	ids := map[string]string{}
	for _, ep := range []struct {
		slug            string
		season, episode int
	}{{"e12", 1, 2}, {"e11", 1, 1}, {"e21", 2, 1}} {
		w = c.do(http.MethodPost, "/studio/signals", admin, gin.H{
			"slug": ep.slug, "title": ep.slug, "season": ep.season, "episode": ep.episode,
			"series_id": ser.ID, "content": strings.Repeat("~", 300), "is_locked": true, "glitch_point": 120,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var sig struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sig))
		ids[ep.slug] = sig.ID
	}

	// readers cannot use the studio
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodGet, "/studio/world", reader, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/studio/world", "", nil).Code)

	// ordered series
	w = c.do(http.MethodGet, "/series/the-deep", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view struct {
		Signals []struct {
			Slug string `json:"slug"`
		} `json:"signals"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Len(t, view.Signals, 3)
	assert.Equal(t, "e11", view.Signals[0].Slug)
	assert.Equal(t, "e21", view.Signals[2].Slug)

	// gated signal with next link
	w = c.do(http.MethodGet, "/signals/e11", reader, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sig struct {
		Content  string  `json:"content"`
		NextSlug *string `json:"next_slug"`
		Gate     *struct {
			Withheld int `json:"withheld"`
		} `json:"gate"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sig))
	assert.Len(t, sig.Content, 120)
	require.NotNil(t, sig.NextSlug)
	assert.Equal(t, "e12", *sig.NextSlug)
	require.NotNil(t, sig.Gate)
	assert.Equal(t, 180, sig.Gate.Withheld)

	// progress then library
	w = c.do(http.MethodPost, "/progress", reader, gin.H{"signal_id": ids["e12"], "progress": 33})
	require.Equal(t, http.StatusNoContent, w.Code)
	w = c.do(http.MethodGet, "/library", reader, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slug":"e12"`)

	// admin world map
	w = c.do(http.MethodGet, "/studio/world", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"signals":3`)

	// voice without a key configured
	w = c.do(http.MethodPost, "/studio/voice", admin, gin.H{"prompt": "hello"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_Probes(t *testing.T) {
	c, _ := newTestApp(t)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/ready", "", nil).Code)

	w := c.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/library", "not-a-token", nil).Code)
}

func TestWS_ProgressReachesOnlyItsReader(t *testing.T) {
	hub := synchub.NewHub(logging.Discard())
	a := New(database.OpenTest(t), testConfig(t), hub, nil, logging.Discard())
	r := a.Router()
	srv := httptest.NewServer(r)
	defer srv.Close()
	c := client{t: t, r: r}

	alice := c.register("alice", "alice@example.com")
	bob := c.register("bobby", "bob@example.com")

	dial := func(token string) *websocket.Conn {
		header := http.Header{}
		if token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", header)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, welcome, err := conn.ReadMessage()
		require.NoError(t, err)
		require.Contains(t, string(welcome), "welcome")
		return conn
	}
	anon := dial("")
	bobWS := dial(bob)
	aliceWS := dial(alice)
	require.Eventually(t, func() bool { return hub.Stats().WSClients == 3 }, 2*time.Second, 10*time.Millisecond)

	// a bad token is refused before the upgrade
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", http.Header{"Authorization": {"Bearer nope"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	w := c.do(http.MethodPost, "/progress", alice, gin.H{"signal_id": "secret-signal", "progress": 42})
	require.Equal(t, http.StatusNoContent, w.Code)
	hub.BroadcastJSON(synchub.ContentEvent{Type: synchub.EventSignalPublish, Slug: "the-drowned-bell"})

	_ = aliceWS.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := aliceWS.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"signal_id":"secret-signal"`)

	for _, conn := range []*websocket.Conn{anon, bobWS} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(msg), "the-drowned-bell")
		assert.NotContains(t, string(msg), "secret-signal")
	}
}
