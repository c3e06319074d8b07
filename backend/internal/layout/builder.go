package layout

import (
	"math/rand/v2"
	"strings"

	"diarygraph/backend/internal/constants"
)

// Builder turns a plan into nodes and edges. It scatters nodes randomly and
// leaves spreading them out to the simulation.
type Builder struct {
	rng    *rand.Rand
	spread float64
}

// NewBuilder creates a builder drawing initial positions from rng
func NewBuilder(rng *rand.Rand) *Builder {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Builder{rng: rng, spread: constants.InitialSpread}
}

// NewSeededBuilder creates a builder whose layouts are reproducible
func NewSeededBuilder(seed uint64) *Builder {
	return NewBuilder(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// Build produces the node set for plan. Detailed plans use items directly;
// clustered plans emit one node per cluster.
func (b *Builder) Build(plan Plan, items []Item, entityTypes []string) ([]Node, []Edge) {
	if plan.Clustered {
		return b.buildClusters(plan)
	}
	return b.buildDetailed(items, entityTypes)
}

func (b *Builder) scatter() Vec {
	return Vec{
		X: (b.rng.Float64()*2 - 1) * b.spread,
		Y: (b.rng.Float64()*2 - 1) * b.spread,
	}
}

func (b *Builder) buildClusters(plan Plan) ([]Node, []Edge) {
	nodes := make([]Node, 0, len(plan.Clusters))
	for _, c := range plan.Clusters {
		nodes = append(nodes, Node{
			ID:       ClusterID(c.Key),
			Kind:     KindCluster,
			Position: b.scatter(),
			Radius:   c.Radius,
			Color:    c.Color,
			Label:    c.Label,
			Count:    c.Count,
			GroupKey: c.Key,
			Mode:     c.Mode,
			Sentinel: c.Sentinel,
			Payload:  c.Members,
		})
	}

	edges := make([]Edge, len(plan.Links))
	copy(edges, plan.Links)
	return nodes, edges
}

func (b *Builder) buildDetailed(items []Item, entityTypes []string) ([]Node, []Edge) {
	nodes := make([]Node, 0, len(items)*2)
	var edges []Edge
	satellites := make(map[string]bool)

	for _, item := range items {
		nodes = append(nodes, Node{
			ID:       item.ID,
			Kind:     KindEntry,
			Position: b.scatter(),
			Radius:   constants.EntryRadius,
			Color:    MoodColor(item.Mood),
			Label:    item.Label,
			Payload:  item.Entry,
		})

		linked := make(map[string]bool)
		link := func(id string) {
			if !linked[id] {
				linked[id] = true
				edges = append(edges, Edge{SourceID: item.ID, TargetID: id})
			}
		}

		for _, tag := range item.Tags {
			id := TagIDPrefix + NormalizeKey(tag)
			if !satellites[id] {
				satellites[id] = true
				nodes = append(nodes, Node{
					ID:       id,
					Kind:     KindTag,
					Position: b.scatter(),
					Radius:   constants.TagRadius,
					Color:    constants.TagColor,
					Label:    tag,
				})
			}
			link(id)
		}

		for _, ent := range visibleEntities(item, entityTypes) {
			id := EntityIDPrefix + NormalizeKey(ent.Name)
			if !satellites[id] {
				satellites[id] = true
				nodes = append(nodes, Node{
					ID:         id,
					Kind:       KindEntity,
					EntityType: ent.Type,
					Position:   b.scatter(),
					Radius:     constants.EntityRadius,
					Color:      constants.EntityColor,
					Label:      ent.Name,
					Glyph:      EntityGlyph(ent.Type),
				})
			}
			link(id)
		}
	}

	return nodes, edges
}

// EntityGlyph is the one-letter marker drawn inside entity nodes
func EntityGlyph(entityType string) string {
	switch strings.ToLower(entityType) {
	case "person", "people":
		return "P"
	case "location", "place":
		return "L"
	}
	return "E"
}
