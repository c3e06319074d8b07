package graphview

import (
	"diarygraph/backend/internal/diary"
	"diarygraph/backend/internal/drill"
	"diarygraph/backend/internal/layout"
)

// Snapshot is everything a renderer needs for one frame
type Snapshot struct {
	Nodes          []layout.Node     `json:"nodes"`
	Edges          []layout.Edge     `json:"edges"`
	Selected       *layout.Node      `json:"selected,omitempty"`
	Path           []drill.Step      `json:"path"`
	ClusterMode    layout.Dimension  `json:"cluster_mode"`
	EffectiveMode  layout.Dimension  `json:"effective_mode"`
	Clustered      bool              `json:"clustered"`
	ForceDetailed  bool              `json:"force_detailed"`
	VisibleEntries int               `json:"visible_entries"`
	Filters        diary.FilterState `json:"filters"`
	Zoom           float64           `json:"zoom"`
	Offset         layout.Vec        `json:"offset"`
	Width          float64           `json:"width"`
	Height         float64           `json:"height"`
	Ticks          int               `json:"ticks"`
}

// Snapshot copies the current view state
func (c *Controller) Snapshot() Snapshot {
	edges := make([]layout.Edge, len(c.sim.Edges()))
	copy(edges, c.sim.Edges())

	return Snapshot{
		Nodes:          c.Nodes(),
		Edges:          edges,
		Selected:       c.Selected(),
		Path:           c.nav.Path(),
		ClusterMode:    c.mode,
		EffectiveMode:  c.plan.EffectiveMode,
		Clustered:      c.plan.Clustered,
		ForceDetailed:  c.forceDetailed,
		VisibleEntries: c.visible,
		Filters:        c.filters.Clone(),
		Zoom:           c.view.Zoom,
		Offset:         c.view.Offset,
		Width:          c.view.Width,
		Height:         c.view.Height,
		Ticks:          c.sim.Ticks(),
	}
}
