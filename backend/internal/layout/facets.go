package layout

import (
	"sort"
	"strings"
)

// Facets lists the distinct values available for filtering. Entities are
// restricted to the selected entity types so the entity picker matches what
// clustering would show.
type Facets struct {
	Moods       []string `json:"moods"`
	Tags        []string `json:"tags"`
	Entities    []string `json:"entities"`
	EntityTypes []string `json:"entity_types"`
	Countries   []string `json:"countries"`
	Cities      []string `json:"cities"`
}

// CollectFacets derives Facets from items
func CollectFacets(items []Item, entityTypes []string) Facets {
	moods := newValueSet()
	tags := newValueSet()
	entities := newValueSet()
	types := newValueSet()
	countries := newValueSet()
	cities := newValueSet()

	for _, item := range items {
		moods.add(item.Mood)
		for _, t := range item.Tags {
			tags.add(t)
		}
		for _, ent := range item.Entities {
			types.add(ent.Type)
		}
		for _, ent := range visibleEntities(item, entityTypes) {
			entities.add(ent.Name)
		}
		countries.add(item.Country)
		cities.add(item.City)
	}

	return Facets{
		Moods:       moods.sorted(),
		Tags:        tags.sorted(),
		Entities:    entities.sorted(),
		EntityTypes: types.sorted(),
		Countries:   countries.sorted(),
		Cities:      cities.sorted(),
	}
}

// AvailableEntities is the entity picker list for the given type filter
func AvailableEntities(items []Item, entityTypes []string) []string {
	return CollectFacets(items, entityTypes).Entities
}

// valueSet dedupes case-insensitively, keeping the first spelling
type valueSet map[string]string

func newValueSet() valueSet { return make(valueSet) }

func (s valueSet) add(v string) {
	if v == "" {
		return
	}
	key := strings.ToLower(v)
	if _, ok := s[key]; !ok {
		s[key] = v
	}
}

func (s valueSet) sorted() []string {
	out := make([]string, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}
