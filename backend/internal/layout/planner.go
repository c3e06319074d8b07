package layout

import (
	"math"
	"sort"
	"time"

	"diarygraph/backend/internal/constants"
)

// Cluster is one aggregate group produced by the planner
type Cluster struct {
	Key      string
	Label    string
	Color    string
	Count    int
	Radius   float64
	Mode     Dimension
	Members  []string // entry ids, in input order
	Sentinel bool     // Unknown / Untagged / No Entities bucket
}

// Plan is the planner's decision for one node-set generation
type Plan struct {
	Clustered     bool
	EffectiveMode Dimension
	Clusters      []Cluster
	Links         []Edge
}

// PlanRequest carries the view state the planner decides on
type PlanRequest struct {
	Requested     Dimension
	Path          []Dimension // dimensions already drilled through, oldest first
	ForceDetailed bool
	EntityTypes   []string // active entity type filter
}

// Planner decides between a detailed and a clustered graph
type Planner struct {
	threshold int
}

// NewPlanner creates a planner clustering above threshold entries
func NewPlanner(threshold int) *Planner {
	if threshold < 1 {
		threshold = constants.ClusterThreshold
	}
	return &Planner{threshold: threshold}
}

// Threshold returns the entry count above which clustering starts
func (p *Planner) Threshold() int {
	return p.threshold
}

// Plan groups items when there are too many to draw individually. The
// effective mode is the requested one at the drill root; deeper in the path
// it escalates to a dimension not used yet.
func (p *Planner) Plan(items []Item, req PlanRequest) Plan {
	mode := req.Requested
	if mode == "" {
		mode = DimDate
	}
	if n := len(req.Path); n > 0 && len(items) > p.threshold {
		mode = NextDimension(req.Path[n-1], req.Path)
	}

	plan := Plan{EffectiveMode: mode}
	if len(items) <= p.threshold || req.ForceDetailed {
		return plan
	}

	plan.Clustered = true
	plan.Clusters = groupItems(items, mode, req.EntityTypes)

	switch mode {
	case DimDate, DimDay:
		plan.Links = chainLinks(plan.Clusters)
	case DimMood, DimCountry, DimCity:
		plan.Links = transitionLinks(items, mode)
	default:
		plan.Links = cooccurrenceLinks(items, mode, req.EntityTypes)
	}
	return plan
}

// ClusterRadius grows logarithmically with count and never exceeds 85
func ClusterRadius(count int) float64 {
	growth := math.Log(float64(count)+1) * constants.ClusterLogScale
	return constants.ClusterBaseRadius + math.Min(constants.ClusterMaxGrowth, growth)
}

// groupKeys returns the groups item belongs to under mode. Partitioning
// dimensions return exactly one key; tag and entity dimensions return one
// per value, or the sentinel when the entry has none.
func groupKeys(item Item, mode Dimension, entityTypes []string) []string {
	switch mode {
	case DimDate:
		return []string{item.Time.Format("2006-01")}
	case DimDay:
		return []string{item.Time.Format("2006-01-02")}
	case DimMood:
		return []string{item.Mood}
	case DimCountry:
		return []string{orUnknown(item.Country)}
	case DimCity:
		return []string{orUnknown(item.City)}
	case DimTag:
		if len(item.Tags) == 0 {
			return []string{constants.GroupUntagged}
		}
		return item.Tags
	case DimEntity, DimEntityType:
		var keys []string
		seen := make(map[string]bool)
		for _, ent := range visibleEntities(item, entityTypes) {
			key := ent.Name
			if mode == DimEntityType {
				key = ent.Type
			}
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
		if len(keys) == 0 {
			return []string{constants.GroupNoEntities}
		}
		return keys
	}
	return []string{constants.GroupUnknown}
}

func orUnknown(s string) string {
	if s == "" {
		return constants.GroupUnknown
	}
	return s
}

func isSentinel(mode Dimension, key string) bool {
	switch mode {
	case DimTag:
		return key == constants.GroupUntagged
	case DimEntity, DimEntityType:
		return key == constants.GroupNoEntities
	case DimCountry, DimCity, DimMood:
		return key == constants.GroupUnknown
	}
	return false
}

type group struct {
	key     string
	members []Item
}

func groupItems(items []Item, mode Dimension, entityTypes []string) []Cluster {
	index := make(map[string]int)
	var groups []*group

	for _, item := range items {
		for _, key := range groupKeys(item, mode, entityTypes) {
			i, ok := index[key]
			if !ok {
				i = len(groups)
				index[key] = i
				groups = append(groups, &group{key: key})
			}
			groups[i].members = append(groups[i].members, item)
		}
	}

	if mode == DimDate || mode == DimDay {
		sort.Slice(groups, func(i, j int) bool { return groups[i].key < groups[j].key })
	} else {
		sort.SliceStable(groups, func(i, j int) bool {
			if len(groups[i].members) != len(groups[j].members) {
				return len(groups[i].members) > len(groups[j].members)
			}
			return groups[i].key < groups[j].key
		})
	}

	clusters := make([]Cluster, 0, len(groups))
	for _, g := range groups {
		members := make([]string, 0, len(g.members))
		for _, m := range g.members {
			members = append(members, m.ID)
		}
		clusters = append(clusters, Cluster{
			Key:      g.key,
			Label:    clusterLabel(mode, g),
			Color:    clusterColor(mode, g),
			Count:    len(g.members),
			Radius:   ClusterRadius(len(g.members)),
			Mode:     mode,
			Members:  members,
			Sentinel: isSentinel(mode, g.key),
		})
	}
	return clusters
}

func clusterLabel(mode Dimension, g *group) string {
	switch mode {
	case DimDate:
		if t, err := time.Parse("2006-01", g.key); err == nil {
			return t.Format("Jan 2006")
		}
	case DimDay:
		if t, err := time.Parse("2006-01-02", g.key); err == nil {
			return t.Format("Jan 2")
		}
	}
	return g.key
}

func clusterColor(mode Dimension, g *group) string {
	switch mode {
	case DimDate, DimDay:
		return MoodColor(DominantMood(g.members))
	case DimMood:
		return MoodColor(g.key)
	}
	return HashColor(g.key)
}

// DominantMood returns the most frequent mood, ties going to the mood seen first
func DominantMood(items []Item) string {
	counts := make(map[string]int)
	var order []string
	for _, item := range items {
		if counts[item.Mood] == 0 {
			order = append(order, item.Mood)
		}
		counts[item.Mood]++
	}

	best := constants.GroupUnknown
	bestCount := 0
	for _, mood := range order {
		if counts[mood] > bestCount {
			best, bestCount = mood, counts[mood]
		}
	}
	return best
}

func chainLinks(clusters []Cluster) []Edge {
	if len(clusters) < 2 {
		return nil
	}
	links := make([]Edge, 0, len(clusters)-1)
	for i := 0; i+1 < len(clusters); i++ {
		links = append(links, Edge{SourceID: ClusterID(clusters[i].Key), TargetID: ClusterID(clusters[i+1].Key)})
	}
	return links
}

// pairSet collects unordered key pairs in first-seen order
type pairSet struct {
	counts map[[2]string]int
	order  [][2]string
}

func newPairSet() *pairSet {
	return &pairSet{counts: make(map[[2]string]int)}
}

func (s *pairSet) add(a, b string) {
	if a == b {
		return
	}
	if b < a {
		a, b = b, a
	}
	key := [2]string{a, b}
	if s.counts[key] == 0 {
		s.order = append(s.order, key)
	}
	s.counts[key]++
}

// edges emits one edge per pair seen at least once; counts are not surfaced
func (s *pairSet) edges() []Edge {
	if len(s.order) == 0 {
		return nil
	}
	out := make([]Edge, 0, len(s.order))
	for _, p := range s.order {
		out = append(out, Edge{SourceID: ClusterID(p[0]), TargetID: ClusterID(p[1])})
	}
	return out
}

func transitionLinks(items []Item, mode Dimension) []Edge {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	pairs := newPairSet()
	for i := 0; i+1 < len(sorted); i++ {
		a := groupKeys(sorted[i], mode, nil)[0]
		b := groupKeys(sorted[i+1], mode, nil)[0]
		pairs.add(a, b)
	}
	return pairs.edges()
}

func cooccurrenceLinks(items []Item, mode Dimension, entityTypes []string) []Edge {
	pairs := newPairSet()
	for _, item := range items {
		keys := append([]string(nil), groupKeys(item, mode, entityTypes)...)
		sort.Strings(keys)
		for i := 0; i < len(keys); i++ {
			for j := i + 1; j < len(keys); j++ {
				pairs.add(keys[i], keys[j])
			}
		}
	}
	return pairs.edges()
}
