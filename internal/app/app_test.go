package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paultaki/whisperprompts/internal/config"
	"github.com/paultaki/whisperprompts/internal/llm"
	"github.com/paultaki/whisperprompts/internal/model"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DatabasePath:    filepath.Join(t.TempDir(), "app.db"),
		LLMProvider:     "openai",
		OpenAIAPIKey:    "sk-test",
		FastModel:       "fast-model",
		PremiumModel:    "premium-model",
		UseDeepInsights: true,
		LLMTimeout:      time.Second,
		LLMMaxRetries:   1,
		WorkerInterval:  time.Second,
		WorkerBatchSize: 5,
	}
}

func TestNew(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Store)
	assert.NotNil(t, a.Dispatcher)
	assert.Nil(t, a.Runner)
}

func TestInitGeneration(t *testing.T) {
	t.Run("builds runner without index", func(t *testing.T) {
		a, err := New(context.Background(), testConfig(t))
		require.NoError(t, err)
		defer a.Close()

		require.NoError(t, a.InitGeneration())
		assert.NotNil(t, a.Gateway)
		assert.NotNil(t, a.Runner)
		assert.Nil(t, a.Index)
		assert.True(t, a.Selector.DeepInsights)
		assert.NotNil(t, a.NewWorker())
	})

	t.Run("embedding model not pulled leaves index off", func(t *testing.T) {
		ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"models":[{"name":"llama3:latest"}]}`))
		}))
		defer ollama.Close()

		cfg := testConfig(t)
		cfg.VecLitePath = filepath.Join(t.TempDir(), "prompts.veclite")
		cfg.DuplicateThreshold = 0.92
		cfg.EmbedProvider = "ollama"
		cfg.OllamaHost = ollama.URL
		a, err := New(context.Background(), cfg)
		require.NoError(t, err)
		defer a.Close()

		_, err = a.OpenIndex()
		assert.ErrorContains(t, err, "not pulled")

		require.NoError(t, a.InitGeneration())
		assert.NotNil(t, a.Runner)
		assert.Nil(t, a.Index)
	})

	t.Run("missing credentials fail fast", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.OpenAIAPIKey = ""
		a, err := New(context.Background(), cfg)
		require.NoError(t, err)
		defer a.Close()

		err = a.InitGeneration()
		assert.ErrorContains(t, err, "OPENAI_API_KEY")
	})
}

func TestGatewayConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLMProvider = "anthropic"
	cfg.AnthropicAPIKey = "sk-ant"

	gc := GatewayConfig(cfg)
	assert.Equal(t, "anthropic", gc.Provider)
	assert.Equal(t, "sk-ant", gc.APIKey)
	assert.Equal(t, time.Second, gc.Timeout)
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.InitGenerationWith(llm.Text("Who taught you to whittle?")))

	_, err = a.Dispatcher.SaveStory(ctx, model.Story{
		UserID:     "u1",
		Transcript: `We got Chewy in 1962. Mom called him "housebroken by love" because he never once had an accident.`,
	})
	require.NoError(t, err)

	w := a.NewWorker()
	n, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n) // story job and first-story milestone

	prompts, err := a.Store.ListActivePrompts(ctx, "u1", time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, prompts)
}
