package voice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luminousdeep/pkg/logging"
	"luminousdeep/pkg/models"
	"luminousdeep/pkg/utils"
)

type fakeCanon []models.CanonEntry

func (f fakeCanon) ListLocked(context.Context) ([]models.CanonEntry, error) { return f, nil }

type fakeGen struct {
	system, prompt string
	reply          string
	err            error
}

func (f *fakeGen) Generate(_ context.Context, system, prompt string) (string, error) {
	f.system, f.prompt = system, prompt
	return f.reply, f.err
}

func locked(title, content string) models.CanonEntry {
	at := int64(1)
	return models.CanonEntry{Title: title, Content: content, Version: 2, LockedAt: &at}
}

func TestSystemPrompt(t *testing.T) {
	got := SystemPrompt("Mara", []models.CanonEntry{
		locked("The Trench", "It is eleven kilometres deep."),
		{Title: "Rumour", Content: "unverified"},
	})
	assert.Contains(t, got, "You are Mara")
	assert.Contains(t, got, "## The Trench (v2)")
	assert.NotContains(t, got, "Rumour")
}

func TestSpeak(t *testing.T) {
	gen := &fakeGen{reply: "The lights are older than we are."}
	svc := NewService(fakeCanon{locked("Lights", "They pulse.")}, gen, logging.Discard())

	out, err := svc.Speak(context.Background(), " Mara ", "What are the lights?")
	require.NoError(t, err)
	assert.Equal(t, gen.reply, out)
	assert.Equal(t, "What are the lights?", gen.prompt)
	assert.Contains(t, gen.system, "They pulse.")
	assert.Contains(t, gen.system, "You are Mara,")
}

func TestSpeak_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewService(fakeCanon{}, nil, logging.Discard()).Speak(ctx, "", "hi")
	assert.ErrorIs(t, err, ErrNoGenerator)

	_, err = NewService(fakeCanon{}, &fakeGen{reply: "x"}, logging.Discard()).Speak(ctx, "", "  ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	_, err = NewService(fakeCanon{}, &fakeGen{reply: " "}, logging.Discard()).Speak(ctx, "", "hi")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	upstream := errors.New("boom")
	_, err = NewService(fakeCanon{}, &fakeGen{err: upstream}, logging.Discard()).Speak(ctx, "", "hi")
	assert.ErrorIs(t, err, upstream)
}

func TestOpenAIGenerator(t *testing.T) {
	assert.Nil(t, NewOpenAIGenerator(utils.VoiceConfig{}))

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"from the deep"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	gen := NewOpenAIGenerator(utils.VoiceConfig{APIKey: "test-key", Model: "test-model", BaseURL: srv.URL})
	require.NotNil(t, gen)

	out, err := gen.Generate(context.Background(), "sys", "hello")
	require.NoError(t, err)
	assert.Equal(t, "from the deep", out)
	assert.Equal(t, "test-model", got["model"])
}
