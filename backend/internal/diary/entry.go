package diary

import "time"

// Entity is a named thing the analysis service found in an entry
type Entity struct {
	Name string `json:"name"`
	Type string `json:"type"` // person, location, event, ...
}

// Entry is a single diary entry as stored by the persistence layer.
// The graph view only ever reads entries.
type Entry struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Title          string    `json:"title,omitempty"`
	Content        string    `json:"content,omitempty"`
	Mood           string    `json:"mood,omitempty"`
	SentimentScore float64   `json:"sentiment_score"`
	ManualTags     []string  `json:"manual_tags,omitempty"`
	Entities       []Entity  `json:"entities,omitempty"`
	Country        string    `json:"country,omitempty"`
	City           string    `json:"city,omitempty"`
}

// Analyzed reports whether the analysis service has already processed the entry.
func (e Entry) Analyzed() bool {
	return e.Mood != ""
}

// DateRange is an inclusive day range in YYYY-MM-DD form. Empty bounds are open.
type DateRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.Start == "" && r.End == ""
}

// FilterState describes which entries are visible. It is owned by the
// surrounding page; the graph view reads and mutates it while drilling.
type FilterState struct {
	DateRange   DateRange `json:"date_range"`
	Moods       []string  `json:"moods,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Entities    []string  `json:"entities,omitempty"`
	EntityTypes []string  `json:"entity_types,omitempty"`
	Countries   []string  `json:"countries,omitempty"`
	Cities      []string  `json:"cities,omitempty"`
	Text        string    `json:"text,omitempty"`
}

// Clone returns a deep copy so callers can mutate slices independently.
func (f FilterState) Clone() FilterState {
	out := f
	out.Moods = cloneStrings(f.Moods)
	out.Tags = cloneStrings(f.Tags)
	out.Entities = cloneStrings(f.Entities)
	out.EntityTypes = cloneStrings(f.EntityTypes)
	out.Countries = cloneStrings(f.Countries)
	out.Cities = cloneStrings(f.Cities)
	return out
}

// IsEmpty reports whether the filter lets every entry through.
func (f FilterState) IsEmpty() bool {
	return f.DateRange.IsZero() &&
		len(f.Moods) == 0 &&
		len(f.Tags) == 0 &&
		len(f.Entities) == 0 &&
		len(f.EntityTypes) == 0 &&
		len(f.Countries) == 0 &&
		len(f.Cities) == 0 &&
		f.Text == ""
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
