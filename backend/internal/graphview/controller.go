package graphview

import (
	"go.uber.org/zap"

	"diarygraph/backend/internal/constants"
	"diarygraph/backend/internal/diary"
	"diarygraph/backend/internal/drill"
	"diarygraph/backend/internal/layout"
	"diarygraph/backend/internal/physics"
	"diarygraph/backend/internal/viewport"
	apperrors "diarygraph/backend/pkg/errors"
	"diarygraph/backend/pkg/logger"
)

// HistoryFunc is called with the filter state to open outside the graph
type HistoryFunc func(filters diary.FilterState)

// Controller owns one graph view: the entries, the filters narrowed by
// drilling, the simulation and the camera. It is not safe for concurrent
// use; callers hold one lock around input handlers and Tick.
type Controller struct {
	opts     Options
	logger   *zap.Logger
	filterer diary.Filterer
	history  HistoryFunc

	planner *layout.Planner
	builder *layout.Builder
	sim     *physics.Simulation
	view    *viewport.Viewport
	nav     *drill.Navigator

	entries       []diary.Entry
	filters       diary.FilterState
	mode          layout.Dimension
	forceDetailed bool
	plan          layout.Plan
	visible       int
	selected      string

	fitPending bool
	fitIn      int
}

// NewController builds the initial graph from entries
func NewController(entries []diary.Entry, filterer diary.Filterer, history HistoryFunc, opts Options) *Controller {
	if filterer == nil {
		filterer = diary.DefaultFilter
	}
	if opts.Logger == nil {
		opts.Logger = logger.Get()
	}
	if opts.DefaultMode == "" {
		opts.DefaultMode = layout.DimDate
	}

	builder := layout.NewBuilder(nil)
	if opts.Seed != 0 {
		builder = layout.NewSeededBuilder(opts.Seed)
	}

	view := viewport.New(opts.Width, opts.Height)
	if opts.FitPadding > 0 {
		view.FitPadding = opts.FitPadding
	}

	c := &Controller{
		opts:     opts,
		logger:   opts.Logger.Named("graphview"),
		filterer: filterer,
		history:  history,
		planner:  layout.NewPlanner(opts.Threshold),
		builder:  builder,
		sim:      physics.NewSimulation(opts.Physics),
		view:     view,
		nav:      drill.NewNavigator(),
		entries:  entries,
		mode:     opts.DefaultMode,
	}
	c.regenerate()
	return c
}

// regenerate rebuilds the node set from entries, filters, drill path and
// mode, then schedules an automatic fit once the layout had time to spread.
func (c *Controller) regenerate() {
	filtered := c.filterer.Filter(c.entries, c.filters)
	items := layout.Normalize(filtered)

	c.plan = c.planner.Plan(items, layout.PlanRequest{
		Requested:     c.mode,
		Path:          c.nav.Modes(),
		ForceDetailed: c.forceDetailed,
		EntityTypes:   c.filters.EntityTypes,
	})
	nodes, edges := c.builder.Build(c.plan, items, c.filters.EntityTypes)

	c.view.PointerUp()
	c.sim.SetGraph(nodes, edges)
	c.visible = len(items)
	if c.selected != "" && c.sim.IndexOf(c.selected) < 0 {
		c.selected = ""
	}

	c.fitPending = len(nodes) > 0
	c.fitIn = c.opts.FitDelayTicks

	c.logger.Debug("Graph regenerated",
		zap.Int("entries", len(items)),
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
		zap.Bool("clustered", c.plan.Clustered),
		zap.String("effective_mode", string(c.plan.EffectiveMode)),
		zap.Int("depth", c.nav.Depth()))
}

// Tick advances the simulation one frame and runs a pending auto-fit
func (c *Controller) Tick() {
	if !c.sim.Running() {
		return
	}
	c.sim.Tick()

	if c.fitPending {
		c.fitIn--
		if c.fitIn <= 0 {
			c.fitPending = false
			c.view.Fit(c.sim.Nodes())
		}
	}
}

// Running reports whether there is anything to simulate
func (c *Controller) Running() bool {
	return c.sim.Running()
}

// Nodes returns a copy of the current nodes
func (c *Controller) Nodes() []layout.Node {
	out := make([]layout.Node, c.sim.Len())
	copy(out, c.sim.Nodes())
	return out
}

// Edges returns the current edges
func (c *Controller) Edges() []layout.Edge {
	return c.sim.Edges()
}

// Selected returns a copy of the selected node, or nil
func (c *Controller) Selected() *layout.Node {
	if c.selected == "" {
		return nil
	}
	i := c.sim.IndexOf(c.selected)
	if i < 0 {
		return nil
	}
	n := c.sim.Nodes()[i]
	return &n
}

// ClearSelection deselects the current node
func (c *Controller) ClearSelection() {
	c.selected = ""
}

// Path returns the drill steps for breadcrumbs
func (c *Controller) Path() []drill.Step {
	return c.nav.Path()
}

// EffectiveMode is the dimension that produced the displayed clusters
func (c *Controller) EffectiveMode() layout.Dimension {
	return c.plan.EffectiveMode
}

// ClusterMode is the user-requested root dimension
func (c *Controller) ClusterMode() layout.Dimension {
	return c.mode
}

// Clustered reports whether the graph currently shows clusters
func (c *Controller) Clustered() bool {
	return c.plan.Clustered
}

// Filters returns a copy of the active filters
func (c *Controller) Filters() diary.FilterState {
	return c.filters.Clone()
}

// Viewport exposes the camera for rendering
func (c *Controller) Viewport() *viewport.Viewport {
	return c.view
}

// Facets lists the values available for filtering across all entries
func (c *Controller) Facets() layout.Facets {
	return layout.CollectFacets(layout.Normalize(c.entries), c.filters.EntityTypes)
}

// SetEntries replaces the entry set
func (c *Controller) SetEntries(entries []diary.Entry) {
	c.entries = entries
	c.regenerate()
}

// SetFilters replaces the filter state. The drill path is kept.
func (c *Controller) SetFilters(filters diary.FilterState) {
	c.filters = filters.Clone()
	c.regenerate()
}

// SetClusterMode changes the root grouping. Only allowed at the drill root.
func (c *Controller) SetClusterMode(mode layout.Dimension) error {
	if !c.nav.AtRoot() {
		return apperrors.ErrModeLocked
	}
	if mode == c.mode {
		return nil
	}
	c.mode = mode
	c.regenerate()
	return nil
}

// SetForceDetailed toggles showing every entry regardless of count
func (c *Controller) SetForceDetailed(on bool) {
	if on == c.forceDetailed {
		return
	}
	c.forceDetailed = on
	c.regenerate()
}

// PointerDown selects and starts dragging the node under screen, or starts
// a pan on empty canvas. It returns the hit node id.
func (c *Controller) PointerDown(screen layout.Vec) string {
	nodes := c.sim.Nodes()
	i := viewport.HitTest(nodes, c.view.ScreenToWorld(screen))
	if i < 0 {
		c.selected = ""
		c.view.PointerDown(screen, false, layout.Vec{})
		return ""
	}

	c.selected = nodes[i].ID
	c.sim.SetDragged(i)
	c.view.PointerDown(screen, true, nodes[i].Position)
	return nodes[i].ID
}

// PointerMove drags the held node or pans the view
func (c *Controller) PointerMove(screen layout.Vec) {
	if target, ok := c.view.PointerMove(screen); ok {
		c.sim.MoveNode(c.sim.Dragged(), target)
	}
}

// PointerUp ends the drag or pan
func (c *Controller) PointerUp() {
	c.view.PointerUp()
	c.sim.ReleaseDragged()
}

// Wheel zooms around the pointer. Negative deltaY zooms in.
func (c *Controller) Wheel(screen layout.Vec, deltaY float64) {
	switch {
	case deltaY < 0:
		c.view.ZoomAt(screen, constants.WheelStep)
	case deltaY > 0:
		c.view.ZoomAt(screen, 1/constants.WheelStep)
	}
}

// DoubleClick drills into the cluster under screen. It reports false when
// nothing drillable was hit.
func (c *Controller) DoubleClick(screen layout.Vec) (bool, error) {
	nodes := c.sim.Nodes()
	i := viewport.HitTest(nodes, c.view.ScreenToWorld(screen))
	if i < 0 || !nodes[i].IsCluster() {
		return false, nil
	}
	if err := c.DrillInto(nodes[i].ID); err != nil {
		return false, err
	}
	return true, nil
}

// DrillInto enters the cluster with the given node id
func (c *Controller) DrillInto(nodeID string) error {
	i := c.sim.IndexOf(nodeID)
	if i < 0 {
		return apperrors.NewNotDrillable(nodeID, "node not in graph")
	}
	n := c.sim.Nodes()[i]
	if !n.IsCluster() {
		return apperrors.NewNotDrillable(nodeID, "not a cluster")
	}
	if n.Sentinel {
		return apperrors.NewNotDrillable(nodeID, "group has no value to filter on")
	}

	mode := n.Mode
	if mode == "" {
		mode = c.plan.EffectiveMode
	}
	c.nav.Enter(drill.Step{Mode: mode, Value: n.GroupKey, Label: n.Label}, &c.filters)
	c.logger.Info("Drilled into cluster",
		zap.String("mode", string(mode)),
		zap.String("value", n.GroupKey),
		zap.Int("depth", c.nav.Depth()))

	c.selected = ""
	c.view.Reset()
	c.regenerate()
	return nil
}

// Back leaves the innermost cluster. It reports false at the root.
func (c *Controller) Back() bool {
	step, ok := c.nav.Back(&c.filters)
	if !ok {
		return false
	}
	c.logger.Info("Drilled out of cluster",
		zap.String("mode", string(step.Mode)),
		zap.String("value", step.Value),
		zap.Int("depth", c.nav.Depth()))

	c.selected = ""
	c.view.Reset()
	c.regenerate()
	return true
}

// Reset clears the drill path, every filter, the camera and the cluster mode
func (c *Controller) Reset() {
	c.nav.Reset()
	c.filters = diary.FilterState{}
	c.mode = c.opts.DefaultMode
	c.selected = ""
	c.view.Reset()
	c.regenerate()
}

// ZoomIn steps the zoom in around the centre
func (c *Controller) ZoomIn() { c.view.ZoomIn() }

// ZoomOut steps the zoom out around the centre
func (c *Controller) ZoomOut() { c.view.ZoomOut() }

// FitToScreen fits every node now and cancels any pending auto-fit
func (c *Controller) FitToScreen() {
	c.fitPending = false
	c.view.Fit(c.sim.Nodes())
}

// ResetView restores the centred default camera
func (c *Controller) ResetView() {
	c.view.Reset()
}

// Resize changes the canvas size
func (c *Controller) Resize(width, height float64) {
	c.view.Resize(width, height)
}

// OpenHistory hands the filters for the current selection to the history
// callback. With nothing selected the active filters are used.
func (c *Controller) OpenHistory() diary.FilterState {
	filters := c.filters.Clone()
	if n := c.Selected(); n != nil {
		if step, ok := stepFor(*n); ok {
			filters = drill.FilterFor(step, c.filters)
		}
	}
	if c.history != nil {
		c.history(filters)
	}
	return filters
}

// stepFor is the filter narrowing a node stands for
func stepFor(n layout.Node) (drill.Step, bool) {
	switch n.Kind {
	case layout.KindCluster:
		if n.Sentinel {
			return drill.Step{}, false
		}
		return drill.Step{Mode: n.Mode, Value: n.GroupKey, Label: n.Label}, true
	case layout.KindTag:
		return drill.Step{Mode: layout.DimTag, Value: n.Label, Label: n.Label}, true
	case layout.KindEntity:
		return drill.Step{Mode: layout.DimEntity, Value: n.Label, Label: n.Label}, true
	case layout.KindEntry:
		if e, ok := n.Payload.(diary.Entry); ok && !e.Timestamp.IsZero() {
			day := e.Timestamp.Format("2006-01-02")
			return drill.Step{Mode: layout.DimDay, Value: day, Label: day}, true
		}
	}
	return drill.Step{}, false
}
