package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/market-v/storefront/internal/domain"
	"github.com/market-v/storefront/internal/observability"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name      string
		apiKey    string
		model     string
		wantModel string
		wantError bool
	}{
		{name: "valid api key and default model", apiKey: "sk-or-test-key", wantModel: defaultModel},
		{name: "valid api key and custom model", apiKey: "sk-or-test-key", model: "google/gemini-2.5-pro", wantModel: "google/gemini-2.5-pro"},
		{name: "empty api key", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(Config{Credential: tt.apiKey, Model: tt.model}, nil)
			if tt.wantError {
				require.Error(t, err)
				assert.True(t, domain.IsKind(err, domain.KindValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, client.Model())
			assert.Equal(t, openRouterURL, client.endpoint)
		})
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, retries int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		Endpoint:   srv.URL,
		Credential: "test-key",
		MaxRetries: retries,
		Timeout:    5 * time.Second,
	}, observability.NopLogger())
	require.NoError(t, err)
	client.retry.InitialBackoff = time.Millisecond
	client.retry.MaxBackoff = 5 * time.Millisecond
	return client
}

func TestGenerateText_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "compare these", req.Messages[0].Content)

		_ = json.NewEncoder(w).Encode(Response{
			ID:      "gen-1",
			Choices: []Choice{{Message: Message{Role: "assistant", Content: `{"generatedText":"ok"}`}}},
		})
	}, 0)

	text, err := client.GenerateText(context.Background(), "compare these")
	require.NoError(t, err)
	assert.Equal(t, `{"generatedText":"ok"}`, text)
}

func TestGenerateText_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(Response{Choices: []Choice{{Message: Message{Content: "hello"}}}})
	}, 2)

	text, err := client.GenerateText(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGenerateText_Failures(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantKind domain.ErrorKind
	}{
		{
			name: "non retryable status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
			},
			wantKind: domain.KindUpstream,
		},
		{
			name: "retries exhausted",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			wantKind: domain.KindUpstream,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			wantKind: domain.KindUpstream,
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
			},
			wantKind: domain.KindUpstream,
		},
		{
			name: "embedded api error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"error":{"message":"quota"}}`))
			},
			wantKind: domain.KindUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler, 1)
			_, err := client.GenerateText(context.Background(), "prompt")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, domain.KindOf(err))
		})
	}
}

func TestGenerateText_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := NewClient(Config{Endpoint: url, Credential: "k", MaxRetries: 0}, nil)
	require.NoError(t, err)

	_, err = client.GenerateText(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindTransport))
}

func TestGenerateText_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GenerateText(ctx, "prompt")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindTransport))
}

func TestCalculateBackoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second}

	assert.Equal(t, 100*time.Millisecond, calculateBackoff(0, cfg))
	assert.Equal(t, 200*time.Millisecond, calculateBackoff(1, cfg))
	assert.Equal(t, 400*time.Millisecond, calculateBackoff(2, cfg))
	assert.Equal(t, time.Second, calculateBackoff(5, cfg))
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, shouldRetry(http.StatusTooManyRequests))
	assert.True(t, shouldRetry(http.StatusBadGateway))
	assert.False(t, shouldRetry(http.StatusBadRequest))
	assert.False(t, shouldRetry(http.StatusUnauthorized))
}

func TestScriptedGenerator(t *testing.T) {
	gen := NewScriptedGenerator().Reply("first").Fail(errors.New("boom"))
	ctx := context.Background()

	text, err := gen.GenerateText(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "first", text)

	_, err = gen.GenerateText(ctx, "p2")
	assert.EqualError(t, err, "boom")

	_, err = gen.GenerateText(ctx, "p3")
	assert.True(t, domain.IsKind(err, domain.KindTransport))

	assert.Equal(t, 3, gen.Calls())
	assert.Equal(t, []string{"p1", "p2", "p3"}, gen.Prompts())
}

func TestNew_Providers(t *testing.T) {
	ctx := context.Background()

	gen, err := New(ctx, ProviderOffline, Config{}, nil, observability.NewMetrics())
	require.NoError(t, err)
	_, err = gen.GenerateText(ctx, "anything")
	assert.True(t, domain.IsKind(err, domain.KindTransport))

	_, err = New(ctx, ProviderOpenRouter, Config{}, nil, nil)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = New(ctx, "smoke-signals", Config{}, nil, nil)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}
