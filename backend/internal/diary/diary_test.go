package diary

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.Add(12 * time.Hour)
}

func sampleEntries() []Entry {
	return []Entry{
		{ID: "1", Timestamp: day("2024-01-05"), Mood: "Happy", ManualTags: []string{"Work"}, Country: "France", City: "Paris",
			Entities: []Entity{{Name: "Alice", Type: "person"}}},
		{ID: "2", Timestamp: day("2024-01-20"), Mood: "Sad", ManualTags: []string{"family", "home"}, Country: "Spain",
			Entities: []Entity{{Name: "Madrid", Type: "location"}}},
		{ID: "3", Timestamp: day("2024-02-02"), Mood: "Happy", Title: "Ski trip", Content: "Snow everywhere"},
	}
}

func ids(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestFilterEntries(t *testing.T) {
	entries := sampleEntries()

	tests := []struct {
		name  string
		state FilterState
		want  []string
	}{
		{"empty filter keeps everything", FilterState{}, []string{"1", "2", "3"}},
		{"month range", FilterState{DateRange: DateRange{Start: "2024-01-01", End: "2024-01-31"}}, []string{"1", "2"}},
		{"single day", FilterState{DateRange: DateRange{Start: "2024-01-20", End: "2024-01-20"}}, []string{"2"}},
		{"mood is case insensitive", FilterState{Moods: []string{"happy"}}, []string{"1", "3"}},
		{"any tag matches", FilterState{Tags: []string{"WORK", "home"}}, []string{"1", "2"}},
		{"entity name", FilterState{Entities: []string{"alice"}}, []string{"1"}},
		{"entity type", FilterState{EntityTypes: []string{"location"}}, []string{"2"}},
		{"country and city combine", FilterState{Countries: []string{"France"}, Cities: []string{"Paris"}}, []string{"1"}},
		{"free text hits title", FilterState{Text: "ski"}, []string{"3"}},
		{"criteria are conjunctive", FilterState{Moods: []string{"Happy"}, Tags: []string{"family"}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(FilterEntries(entries, tt.state)))
		})
	}
}

func TestFilterStateClone(t *testing.T) {
	original := FilterState{Tags: []string{"a"}}
	clone := original.Clone()
	clone.Tags[0] = "b"
	clone.Tags = append(clone.Tags, "c")

	assert.Equal(t, []string{"a"}, original.Tags, "Expected the clone to own its slices")
	assert.True(t, FilterState{}.IsEmpty())
	assert.False(t, original.IsEmpty())
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.json")
	entries := sampleEntries()
	entries[0].UserID = "u1"
	entries[1].UserID = "u2"
	require.NoError(t, WriteEntriesFile(path, []Entry{entries[2], entries[1], entries[0]}))

	src := NewFileSource(path)

	got, err := src.Entries(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, ids(got), "Expected own and shared entries in timestamp order")

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.json")).Entries(context.Background(), "u1")
	assert.Error(t, err)
}

type countingSource struct {
	calls   atomic.Int32
	release chan struct{}
}

func (c *countingSource) Entries(ctx context.Context, userID string) ([]Entry, error) {
	c.calls.Add(1)
	if c.release != nil {
		<-c.release
	}
	return sampleEntries(), nil
}

func TestCachedSource(t *testing.T) {
	t.Run("serves from cache within ttl", func(t *testing.T) {
		upstream := &countingSource{}
		src := NewCachedSource(upstream, time.Minute)
		now := time.Now()
		src.now = func() time.Time { return now }

		_, err := src.Entries(context.Background(), "u1")
		require.NoError(t, err)
		_, err = src.Entries(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, int32(1), upstream.calls.Load())

		now = now.Add(2 * time.Minute)
		_, err = src.Entries(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, int32(2), upstream.calls.Load(), "Expected an expired entry to refetch")

		src.Invalidate("u1")
		_, err = src.Entries(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, int32(3), upstream.calls.Load())
	})

	t.Run("coalesces concurrent fetches", func(t *testing.T) {
		upstream := &countingSource{release: make(chan struct{})}
		src := NewCachedSource(upstream, 0)

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := src.Entries(context.Background(), "u1")
				assert.NoError(t, err)
				assert.Len(t, got, 3)
			}()
		}

		// Let the goroutines pile up on the in-flight call before releasing it
		require.Eventually(t, func() bool { return upstream.calls.Load() == 1 }, time.Second, time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		close(upstream.release)
		wg.Wait()

		assert.LessOrEqual(t, upstream.calls.Load(), int32(5))
		assert.GreaterOrEqual(t, upstream.calls.Load(), int32(1))
	})
}
