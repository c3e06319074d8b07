package layout

import (
	"strings"
	"time"

	"diarygraph/backend/internal/constants"
	"diarygraph/backend/internal/diary"
)

// Item is an entry reduced to the fields the graph cares about
type Item struct {
	ID        string
	Time      time.Time
	Label     string
	Mood      string
	Sentiment float64
	Tags      []string
	Entities  []diary.Entity
	Country   string
	City      string
	Entry     diary.Entry
}

// Normalize maps raw entries into graph inputs. Missing values never fail:
// an absent mood becomes "Unknown", an absent entity type "other", and blank
// tags or entity names are dropped. Duplicates within one entry are removed.
func Normalize(entries []diary.Entry) []Item {
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		mood := strings.TrimSpace(e.Mood)
		if mood == "" {
			mood = constants.GroupUnknown
		}

		label := strings.TrimSpace(e.Title)
		if label == "" {
			label = e.Timestamp.Format("Jan 2, 2006")
		}

		items = append(items, Item{
			ID:        e.ID,
			Time:      e.Timestamp,
			Label:     label,
			Mood:      mood,
			Sentiment: e.SentimentScore,
			Tags:      uniqueTrimmed(e.ManualTags),
			Entities:  normalizeEntities(e.Entities),
			Country:   strings.TrimSpace(e.Country),
			City:      strings.TrimSpace(e.City),
			Entry:     e,
		})
	}
	return items
}

// NormalizeKey is the dedup key for tag and entity labels
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func uniqueTrimmed(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func normalizeEntities(entities []diary.Entity) []diary.Entity {
	out := make([]diary.Entity, 0, len(entities))
	seen := make(map[string]bool, len(entities))
	for _, ent := range entities {
		name := strings.TrimSpace(ent.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		typ := strings.TrimSpace(ent.Type)
		if typ == "" {
			typ = "other"
		}
		out = append(out, diary.Entity{Name: name, Type: typ})
	}
	return out
}

// allowsType reports whether an entity type passes the selected type filter
func allowsType(selected []string, typ string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, s := range selected {
		if strings.EqualFold(strings.TrimSpace(s), typ) {
			return true
		}
	}
	return false
}

// visibleEntities returns the entities of item that pass the type filter
func visibleEntities(item Item, selectedTypes []string) []diary.Entity {
	if len(selectedTypes) == 0 {
		return item.Entities
	}
	out := make([]diary.Entity, 0, len(item.Entities))
	for _, ent := range item.Entities {
		if allowsType(selectedTypes, ent.Type) {
			out = append(out, ent)
		}
	}
	return out
}
