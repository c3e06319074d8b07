package physics

import (
	"diarygraph/backend/internal/constants"
	"diarygraph/backend/internal/layout"
)

// Params are the force constants for one simulation
type Params struct {
	RepulsionStrength   float64
	RepulsionCutoff     float64
	ClusterRepulsion    float64 // repulsion multiplier when either node is a cluster
	CollisionPadding    float64
	CollisionStrength   float64
	SpringLength        float64
	SpringStrength      float64
	ClusterSpringFactor float64 // rest length multiplier when either endpoint is a cluster
	CenterPull          float64
	ClusterCenterPull   float64 // center pull multiplier for clusters
	Damping             float64
	MaxVelocity         float64
	MinDistance         float64
}

// DefaultParams returns the built-in force constants
func DefaultParams() Params {
	return Params{
		RepulsionStrength:   constants.RepulsionStrength,
		RepulsionCutoff:     constants.RepulsionCutoff,
		ClusterRepulsion:    constants.ClusterRepulsion,
		CollisionPadding:    constants.CollisionPadding,
		CollisionStrength:   constants.CollisionStrength,
		SpringLength:        constants.SpringLength,
		SpringStrength:      constants.SpringStrength,
		ClusterSpringFactor: constants.ClusterSpringFactor,
		CenterPull:          constants.CenterPull,
		ClusterCenterPull:   constants.ClusterCenterPull,
		Damping:             constants.Damping,
		MaxVelocity:         constants.MaxVelocity,
		MinDistance:         constants.MinDistance,
	}
}

// noDrag marks that no node is being dragged
const noDrag = -1

// Simulation owns the node arena and advances it one tick at a time. It is
// not safe for concurrent use; callers serialize Tick with input handling.
type Simulation struct {
	params  Params
	nodes   []layout.Node
	edges   []layout.Edge
	dragged int
	ticks   int
}

// NewSimulation creates an empty simulation
func NewSimulation(params Params) *Simulation {
	if params.MinDistance <= 0 {
		params.MinDistance = constants.MinDistance
	}
	return &Simulation{params: params, dragged: noDrag}
}

// Params returns the force constants in use
func (s *Simulation) Params() Params {
	return s.params
}

// SetGraph replaces the node and edge sets. Any drag in progress ends.
func (s *Simulation) SetGraph(nodes []layout.Node, edges []layout.Edge) {
	s.nodes = nodes
	s.edges = edges
	s.dragged = noDrag
	s.ticks = 0
}

// Nodes returns the live arena. Callers must not retain it across SetGraph.
func (s *Simulation) Nodes() []layout.Node {
	return s.nodes
}

// Edges returns the current edges
func (s *Simulation) Edges() []layout.Edge {
	return s.edges
}

// Len returns the node count
func (s *Simulation) Len() int {
	return len(s.nodes)
}

// Running reports whether Tick has anything to do
func (s *Simulation) Running() bool {
	return len(s.nodes) > 0
}

// Ticks returns how many ticks ran since the last SetGraph
func (s *Simulation) Ticks() int {
	return s.ticks
}

// IndexOf returns the arena index of the node with id, or -1
func (s *Simulation) IndexOf(id string) int {
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// SetDragged pins node i. Its velocity is zeroed immediately.
func (s *Simulation) SetDragged(i int) {
	if i < 0 || i >= len(s.nodes) {
		s.dragged = noDrag
		return
	}
	s.dragged = i
	s.nodes[i].Velocity = layout.Vec{}
}

// Dragged returns the pinned node index, or -1
func (s *Simulation) Dragged() int {
	return s.dragged
}

// MoveNode places node i at pos. Drag always wins over physics.
func (s *Simulation) MoveNode(i int, pos layout.Vec) {
	if i < 0 || i >= len(s.nodes) {
		return
	}
	s.nodes[i].Position = pos
	s.nodes[i].Velocity = layout.Vec{}
}

// ReleaseDragged unpins the dragged node, leaving it at rest
func (s *Simulation) ReleaseDragged() {
	if s.dragged != noDrag && s.dragged < len(s.nodes) {
		s.nodes[s.dragged].Velocity = layout.Vec{}
	}
	s.dragged = noDrag
}

// Energy returns the total kinetic energy, treating every node as unit mass
func (s *Simulation) Energy() float64 {
	var e float64
	for i := range s.nodes {
		v := s.nodes[i].Velocity
		e += 0.5 * (v.X*v.X + v.Y*v.Y)
	}
	return e
}

// Tick advances the layout by one step. It is a no-op on an empty graph.
func (s *Simulation) Tick() {
	if len(s.nodes) == 0 {
		return
	}
	s.applyRepulsion()
	s.resolveCollisions()
	s.applySprings()
	s.integrate()
	s.ticks++
}

// Run advances n ticks
func (s *Simulation) Run(n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}
