package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"diarygraph/backend/internal/diary"
	apperrors "diarygraph/backend/pkg/errors"
	"diarygraph/backend/pkg/logger"
)

const analysisPrompt = `You analyse personal diary entries.
Reply with a single JSON object and nothing else, using these keys:
  "mood": one word from happy, excited, grateful, calm, neutral, tired, anxious, sad, angry
  "sentiment_score": number from -1 (very negative) to 1 (very positive)
  "entities": list of {"name": string, "type": "person" | "location" | "organization" | "event" | "other"}
  "country": country the entry takes place in, or ""
  "city": city the entry takes place in, or ""
Only list entities that are explicitly mentioned.`

// Analysis is what the model extracted from one entry
type Analysis struct {
	Mood           string         `json:"mood"`
	SentimentScore float64        `json:"sentiment_score"`
	Entities       []diary.Entity `json:"entities"`
	Country        string         `json:"country"`
	City           string         `json:"city"`
}

// Analyzer extracts mood and entities from entries via an OpenAI-compatible
// endpoint such as LiteLLM
type Analyzer struct {
	client     *openai.Client
	model      string
	mu         sync.RWMutex // Protects model field for concurrent access
	logger     *zap.Logger
	maxRetries int
	backoff    time.Duration
}

// NewAnalyzer creates a new analyzer
func NewAnalyzer(baseURL, apiKey, modelID string) *Analyzer {
	// For LiteLLM, we can use a dummy API key if not provided
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = strings.TrimRight(baseURL, "/") + "/v1"

	return &Analyzer{
		client:     openai.NewClientWithConfig(config),
		model:      modelID,
		logger:     logger.Named("analyzer"),
		maxRetries: 3,
		backoff:    time.Second,
	}
}

// SetModel updates the model used by this analyzer
func (a *Analyzer) SetModel(model string) {
	if model != "" {
		a.mu.Lock()
		a.model = model
		a.mu.Unlock()
		a.logger.Debug("Analyzer model updated", zap.String("model", model))
	}
}

// GetModel returns the current model
func (a *Analyzer) GetModel() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model
}

// Analyze asks the model for the mood, sentiment, entities and place of entry
func (a *Analyzer) Analyze(ctx context.Context, entry diary.Entry) (Analysis, error) {
	currentModel := a.GetModel()

	var user strings.Builder
	if entry.Title != "" {
		fmt.Fprintf(&user, "Title: %s\n", entry.Title)
	}
	fmt.Fprintf(&user, "Date: %s\n\n%s", entry.Timestamp.Format("2006-01-02"), entry.Content)

	req := openai.ChatCompletionRequest{
		Model: currentModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user.String()},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.2,
	}

	// Retry logic with linear backoff
	var resp openai.ChatCompletionResponse
	var err error
	attempts := 0
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * a.backoff
			a.logger.Warn("Retrying analysis request",
				zap.String("entry_id", entry.ID),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return Analysis{}, apperrors.NewAnalysisFailed(currentModel, attempts, false, ctx.Err())
			case <-time.After(backoff):
			}
		}

		attempts++
		resp, err = a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}

		a.logger.Error("Analysis request failed",
			zap.Error(err),
			zap.String("entry_id", entry.ID),
			zap.Int("attempt", attempt+1),
			zap.String("model", currentModel),
		)
		if ctx.Err() != nil {
			break
		}
	}

	if err != nil {
		return Analysis{}, apperrors.NewAnalysisFailed(currentModel, attempts, ctx.Err() == nil, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return Analysis{}, apperrors.ErrAnalysisEmpty
	}

	analysis, err := parseAnalysis(resp.Choices[0].Message.Content)
	if err != nil {
		return Analysis{}, apperrors.NewAnalysisFailed(currentModel, attempts, false, err)
	}

	a.logger.Debug("Entry analysed",
		zap.String("entry_id", entry.ID),
		zap.String("model", currentModel),
		zap.String("mood", analysis.Mood),
		zap.Int("entities", len(analysis.Entities)),
	)
	return analysis, nil
}

// parseAnalysis decodes the model's JSON reply, tolerating a markdown fence
func parseAnalysis(content string) (Analysis, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var analysis Analysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &analysis); err != nil {
		return Analysis{}, fmt.Errorf("failed to parse analysis: %w", err)
	}

	if analysis.Mood != "" {
		analysis.Mood = capitalize(strings.ToLower(strings.TrimSpace(analysis.Mood)))
	}
	if analysis.SentimentScore > 1 {
		analysis.SentimentScore = 1
	} else if analysis.SentimentScore < -1 {
		analysis.SentimentScore = -1
	}
	return analysis, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Apply fills the fields of entry the author left empty. Values already on
// the entry always win.
func (an Analysis) Apply(entry diary.Entry) diary.Entry {
	if entry.Mood == "" {
		entry.Mood = an.Mood
		entry.SentimentScore = an.SentimentScore
	}
	if len(entry.Entities) == 0 && len(an.Entities) > 0 {
		entry.Entities = append([]diary.Entity(nil), an.Entities...)
	}
	if entry.Country == "" {
		entry.Country = an.Country
	}
	if entry.City == "" {
		entry.City = an.City
	}
	return entry
}
