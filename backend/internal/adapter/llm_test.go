package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diarygraph/backend/internal/diary"
	apperrors "diarygraph/backend/pkg/errors"
)

// fakeLLM serves /v1/chat/completions, failing the first failures calls
func fakeLLM(t *testing.T, content string, failures int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		n := calls.Add(1)

		var req openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Len(t, req.Messages, 2)

		w.Header().Set("Content-Type", "application/json")
		if int(n) <= failures {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream unavailable","type":"server_error"}}`))
			return
		}

		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestAnalyzer(url string) *Analyzer {
	a := NewAnalyzer(url, "", "test-model")
	a.backoff = time.Millisecond
	return a
}

func TestAnalyzer_Analyze(t *testing.T) {
	srv, calls := fakeLLM(t, `{"mood":"HAPPY","sentiment_score":0.8,"entities":[{"name":"Ana","type":"person"}],"country":"Portugal","city":"Porto"}`, 0)
	a := newTestAnalyzer(srv.URL)

	analysis, err := a.Analyze(context.Background(), diary.Entry{ID: "e1", Content: "Dinner with Ana in Porto"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "Happy", analysis.Mood)
	assert.Equal(t, 0.8, analysis.SentimentScore)
	assert.Equal(t, []diary.Entity{{Name: "Ana", Type: "person"}}, analysis.Entities)
	assert.Equal(t, "Porto", analysis.City)
}

func TestAnalyzer_RetriesServerErrors(t *testing.T) {
	srv, calls := fakeLLM(t, `{"mood":"calm"}`, 2)
	a := newTestAnalyzer(srv.URL)

	analysis, err := a.Analyze(context.Background(), diary.Entry{ID: "e1"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "Calm", analysis.Mood)
}

func TestAnalyzer_GivesUp(t *testing.T) {
	srv, calls := fakeLLM(t, `{}`, 10)
	a := newTestAnalyzer(srv.URL)

	_, err := a.Analyze(context.Background(), diary.Entry{ID: "e1"})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())

	var failed *apperrors.ErrAnalysisFailed
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 3, failed.Attempts)
	assert.Equal(t, "test-model", failed.Model)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestAnalyzer_EmptyAndMalformed(t *testing.T) {
	srv, _ := fakeLLM(t, "  ", 0)
	_, err := newTestAnalyzer(srv.URL).Analyze(context.Background(), diary.Entry{ID: "e1"})
	assert.ErrorIs(t, err, apperrors.ErrAnalysisEmpty)

	srv, _ = fakeLLM(t, "not json", 0)
	_, err = newTestAnalyzer(srv.URL).Analyze(context.Background(), diary.Entry{ID: "e1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeAnalysis))
	assert.False(t, apperrors.IsRetryable(err), "Expected malformed replies not to be retried")
}

func TestParseAnalysis(t *testing.T) {
	analysis, err := parseAnalysis("```json\n{\"mood\":\" tired \",\"sentiment_score\":-3}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Tired", analysis.Mood)
	assert.Equal(t, -1.0, analysis.SentimentScore)
}

func TestAnalysisApply(t *testing.T) {
	an := Analysis{
		Mood:           "Sad",
		SentimentScore: -0.4,
		Entities:       []diary.Entity{{Name: "Bo", Type: "person"}},
		Country:        "Norway",
		City:           "Oslo",
	}

	filled := an.Apply(diary.Entry{ID: "e1", City: "Bergen"})
	assert.Equal(t, "Sad", filled.Mood)
	assert.Equal(t, -0.4, filled.SentimentScore)
	assert.Equal(t, "Norway", filled.Country)
	assert.Equal(t, "Bergen", filled.City, "Expected author values to win")
	assert.Len(t, filled.Entities, 1)

	kept := an.Apply(diary.Entry{Mood: "Happy", SentimentScore: 0.9})
	assert.Equal(t, "Happy", kept.Mood)
	assert.Equal(t, 0.9, kept.SentimentScore)
}

type stubAnalyzer struct {
	mu    sync.Mutex
	seen  []string
	fails map[string]bool
}

func (s *stubAnalyzer) Analyze(_ context.Context, entry diary.Entry) (Analysis, error) {
	s.mu.Lock()
	s.seen = append(s.seen, entry.ID)
	s.mu.Unlock()
	if s.fails[entry.ID] {
		return Analysis{}, errors.New("model unavailable")
	}
	return Analysis{Mood: "Calm", Country: "Chile"}, nil
}

func TestEnrichEntries(t *testing.T) {
	entries := []diary.Entry{
		{ID: "done", Mood: "Happy"},
		{ID: "fails"},
	}
	for i := 0; i < 10; i++ {
		entries = append(entries, diary.Entry{ID: fmt.Sprintf("e%d", i)})
	}
	stub := &stubAnalyzer{fails: map[string]bool{"fails": true}}

	out, n := EnrichEntries(context.Background(), stub, entries, 3)

	assert.Equal(t, 10, n)
	assert.Len(t, stub.seen, 11, "Expected analysed entries to be skipped")
	assert.Equal(t, "Happy", out[0].Mood)
	assert.Equal(t, diary.Entry{ID: "fails"}, out[1], "Expected failures to pass through")
	for _, e := range out[2:] {
		assert.Equal(t, "Calm", e.Mood)
		assert.Equal(t, "Chile", e.Country)
	}
	assert.Equal(t, "", entries[2].Mood, "Expected the input slice to be untouched")
}

type staticSource []diary.Entry

func (s staticSource) Entries(context.Context, string) ([]diary.Entry, error) {
	return s, nil
}

func TestEnrichingSource(t *testing.T) {
	src := NewEnrichingSource(staticSource{{ID: "a"}}, &stubAnalyzer{}, 0)
	entries, err := src.Entries(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Calm", entries[0].Mood)
}

// TestAnalyzer_Live requires a running LiteLLM instance at LLM_URL
func TestAnalyzer_Live(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	url := os.Getenv("LLM_URL")
	if url == "" {
		t.Skip("LLM_URL not set")
	}

	a := NewAnalyzer(url, os.Getenv("LLM_API_KEY"), os.Getenv("MODEL_ID"))
	analysis, err := a.Analyze(context.Background(), diary.Entry{
		ID:      "live",
		Content: "Walked along the Seine in Paris with Marie. Felt really grateful for the sunshine.",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, analysis.Mood)
}
