package adapter

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"diarygraph/backend/internal/diary"
	"diarygraph/backend/pkg/logger"
)

// DefaultConcurrency bounds parallel analysis requests
const DefaultConcurrency = 4

// EntryAnalyzer extracts missing fields from an entry
type EntryAnalyzer interface {
	Analyze(ctx context.Context, entry diary.Entry) (Analysis, error)
}

// EnrichEntries analyses every entry that has no mood yet. Failures are
// logged and the entry is returned unchanged. It returns the new slice and
// how many entries were enriched.
func EnrichEntries(ctx context.Context, analyzer EntryAnalyzer, entries []diary.Entry, concurrency int) ([]diary.Entry, int) {
	log := logger.Named("enrich")
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	out := make([]diary.Entry, len(entries))
	copy(out, entries)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var enriched atomic.Int64
	for i := range out {
		if out[i].Analyzed() {
			continue
		}
		idx := i
		g.Go(func() error {
			// Check if context was cancelled
			select {
			case <-gctx.Done():
				return nil
			default:
			}

			analysis, err := analyzer.Analyze(gctx, out[idx])
			if err != nil {
				log.Warn("Entry analysis failed, keeping entry as is",
					zap.String("entry_id", out[idx].ID),
					zap.Error(err),
				)
				return nil
			}
			out[idx] = analysis.Apply(out[idx])
			enriched.Add(1)
			return nil
		})
	}

	// Workers never return errors
	_ = g.Wait()

	if n := enriched.Load(); n > 0 {
		log.Info("Entries enriched", zap.Int64("count", n), zap.Int("total", len(entries)))
	}
	return out, int(enriched.Load())
}

// EnrichingSource analyses entries from the wrapped source before returning them
type EnrichingSource struct {
	next        diary.Source
	analyzer    EntryAnalyzer
	concurrency int
}

// NewEnrichingSource wraps next
func NewEnrichingSource(next diary.Source, analyzer EntryAnalyzer, concurrency int) *EnrichingSource {
	return &EnrichingSource{next: next, analyzer: analyzer, concurrency: concurrency}
}

// Entries implements diary.Source
func (s *EnrichingSource) Entries(ctx context.Context, userID string) ([]diary.Entry, error) {
	entries, err := s.next.Entries(ctx, userID)
	if err != nil {
		return nil, err
	}
	out, _ := EnrichEntries(ctx, s.analyzer, entries, s.concurrency)
	return out, nil
}
