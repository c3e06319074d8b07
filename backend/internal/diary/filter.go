package diary

import (
	"strings"
)

// Filterer applies a FilterState to a set of entries.
type Filterer interface {
	Filter(entries []Entry, state FilterState) []Entry
}

// FilterFunc adapts a plain function to Filterer
type FilterFunc func(entries []Entry, state FilterState) []Entry

// Filter calls f
func (f FilterFunc) Filter(entries []Entry, state FilterState) []Entry {
	return f(entries, state)
}

// DefaultFilter is the predicate used by the diary pages. Every non-empty
// criterion must match; within one criterion any listed value matches.
// String comparisons are case-insensitive.
var DefaultFilter Filterer = FilterFunc(FilterEntries)

// FilterEntries returns the entries matching state, preserving order.
func FilterEntries(entries []Entry, state FilterState) []Entry {
	out := make([]Entry, 0, len(entries))
	text := strings.ToLower(strings.TrimSpace(state.Text))

	for _, e := range entries {
		if !inDateRange(e, state.DateRange) {
			continue
		}
		if len(state.Moods) > 0 && !containsFold(state.Moods, e.Mood) {
			continue
		}
		if len(state.Tags) > 0 && !anyFold(state.Tags, e.ManualTags) {
			continue
		}
		if len(state.Entities) > 0 && !anyFold(state.Entities, entityNames(e.Entities)) {
			continue
		}
		if len(state.EntityTypes) > 0 && !anyFold(state.EntityTypes, entityTypes(e.Entities)) {
			continue
		}
		if len(state.Countries) > 0 && !containsFold(state.Countries, e.Country) {
			continue
		}
		if len(state.Cities) > 0 && !containsFold(state.Cities, e.City) {
			continue
		}
		if text != "" && !matchesText(e, text) {
			continue
		}
		out = append(out, e)
	}

	return out
}

func inDateRange(e Entry, r DateRange) bool {
	if r.IsZero() {
		return true
	}
	day := e.Timestamp.Format("2006-01-02")
	if r.Start != "" && day < r.Start {
		return false
	}
	if r.End != "" && day > r.End {
		return false
	}
	return true
}

func matchesText(e Entry, needle string) bool {
	if strings.Contains(strings.ToLower(e.Title), needle) ||
		strings.Contains(strings.ToLower(e.Content), needle) {
		return true
	}
	for _, tag := range e.ManualTags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

func containsFold(list []string, value string) bool {
	value = strings.TrimSpace(value)
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), value) {
			return true
		}
	}
	return false
}

func anyFold(wanted, have []string) bool {
	for _, h := range have {
		if containsFold(wanted, h) {
			return true
		}
	}
	return false
}

func entityNames(entities []Entity) []string {
	names := make([]string, 0, len(entities))
	for _, ent := range entities {
		names = append(names, ent.Name)
	}
	return names
}

func entityTypes(entities []Entity) []string {
	types := make([]string, 0, len(entities))
	for _, ent := range entities {
		types = append(types, ent.Type)
	}
	return types
}
