package graph

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"diarygraph/backend/internal/diary"
)

// ============================================================================
// Record decoding
// ============================================================================

func entryFromRecord(record *neo4j.Record) diary.Entry {
	entry := diary.Entry{
		ID:             getStringFromRecord(record, "id"),
		Timestamp:      getTimeFromRecord(record, "timestamp"),
		Title:          getStringFromRecord(record, "title"),
		Content:        getStringFromRecord(record, "content"),
		Mood:           getStringFromRecord(record, "mood"),
		SentimentScore: getFloat64FromRecord(record, "sentiment_score"),
		ManualTags:     getStringSliceFromRecord(record, "tags"),
		Country:        getStringFromRecord(record, "country"),
		City:           getStringFromRecord(record, "city"),
	}

	// OPTIONAL MATCH yields a single {name: null} map for entries without mentions
	raw, _ := record.Get("entities")
	if list, ok := raw.([]interface{}); ok {
		for _, item := range list {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			name := getStringFromMap(m, "name", "")
			if name == "" {
				continue
			}
			entry.Entities = append(entry.Entities, diary.Entity{
				Name: name,
				Type: getStringFromMap(m, "type", ""),
			})
		}
	}
	return entry
}

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getIntFromRecord(record *neo4j.Record, key string) int {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return int(i)
	}
	if i, ok := val.(int); ok {
		return i
	}
	return 0
}

func getFloat64FromRecord(record *neo4j.Record, key string) float64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0.0
	}
	if f, ok := val.(float64); ok {
		return f
	}
	if i, ok := val.(int64); ok {
		return float64(i)
	}
	return 0.0
}

// getTimeFromRecord accepts native datetimes as well as RFC 3339 strings
// written by older imports
func getTimeFromRecord(record *neo4j.Record, key string) time.Time {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return time.Time{}
	}
	switch v := val.(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func getStringSliceFromRecord(record *neo4j.Record, key string) []string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return nil
	}
	if slice, ok := val.([]interface{}); ok {
		result := make([]string, 0, len(slice))
		for _, v := range slice {
			if str, ok := v.(string); ok {
				result = append(result, str)
			}
		}
		return result
	}
	return nil
}

func getStringFromMap(m map[string]interface{}, key, defaultValue string) string {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}
	if str, ok := val.(string); ok {
		return str
	}
	return defaultValue
}
