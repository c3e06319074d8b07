package physics

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diarygraph/backend/internal/layout"
)

func node(id string, x, y, r float64) layout.Node {
	return layout.Node{ID: id, Kind: layout.KindEntry, Position: layout.Vec{X: x, Y: y}, Radius: r}
}

func TestEmptySimulation(t *testing.T) {
	sim := NewSimulation(DefaultParams())
	assert.False(t, sim.Running())

	sim.Tick()
	assert.Equal(t, 0, sim.Ticks(), "Expected no work on an empty graph")

	sim.SetGraph([]layout.Node{node("a", 0, 0, 12)}, nil)
	assert.True(t, sim.Running())

	sim.SetGraph(nil, nil)
	assert.False(t, sim.Running())
}

func TestCoincidentNodesSeparate(t *testing.T) {
	sim := NewSimulation(DefaultParams())
	sim.SetGraph([]layout.Node{node("a", 0, 0, 12), node("b", 0, 0, 12)}, nil)

	require.NotPanics(t, sim.Tick)

	a, b := sim.Nodes()[0], sim.Nodes()[1]
	assert.True(t, a.Position.IsFinite())
	assert.True(t, b.Position.IsFinite())
	assert.True(t, a.Velocity.IsFinite())
	assert.NotEqual(t, a.Position, b.Position, "Expected coincident nodes to be pushed apart")
}

func TestCoincidentNodesDeterministic(t *testing.T) {
	run := func() []layout.Node {
		sim := NewSimulation(DefaultParams())
		sim.SetGraph([]layout.Node{node("a", 5, 5, 8), node("b", 5, 5, 8), node("c", 5, 5, 8)}, nil)
		sim.Run(3)
		return sim.Nodes()
	}
	assert.Equal(t, run(), run())
}

func TestDragIsolation(t *testing.T) {
	sim := NewSimulation(DefaultParams())
	nodes := []layout.Node{
		node("a", 0, 0, 12),
		node("b", 3, 0, 12),
		node("c", -40, 10, 12),
	}
	edges := []layout.Edge{{SourceID: "a", TargetID: "b"}, {SourceID: "a", TargetID: "c"}}
	sim.SetGraph(nodes, edges)

	sim.SetDragged(0)
	assert.Equal(t, 0, sim.Dragged())

	for step := 0; step < 50; step++ {
		target := layout.Vec{X: float64(step) * 2, Y: -float64(step)}
		sim.MoveNode(0, target)
		sim.Tick()

		got := sim.Nodes()[0]
		require.Equal(t, target, got.Position, "Expected drag to win at step %d", step)
		require.Equal(t, layout.Vec{}, got.Velocity)
	}

	sim.ReleaseDragged()
	assert.Equal(t, -1, sim.Dragged())
	assert.Equal(t, layout.Vec{}, sim.Nodes()[0].Velocity, "Expected no fling after release")

	sim.Tick()
	assert.NotEqual(t, layout.Vec{}, sim.Nodes()[0].Velocity, "Expected physics to resume after release")
}

func TestSetGraphClearsDrag(t *testing.T) {
	sim := NewSimulation(DefaultParams())
	sim.SetGraph([]layout.Node{node("a", 0, 0, 12)}, nil)
	sim.SetDragged(0)

	sim.SetGraph([]layout.Node{node("b", 0, 0, 12)}, nil)
	assert.Equal(t, -1, sim.Dragged())

	sim.SetDragged(7)
	assert.Equal(t, -1, sim.Dragged(), "Expected out-of-range drag to be ignored")
}

func TestNoOverlapConvergence(t *testing.T) {
	tests := []struct {
		name  string
		nodes func() ([]layout.Node, []layout.Edge)
	}{
		{
			name: "entries packed in a small box",
			nodes: func() ([]layout.Node, []layout.Edge) {
				var nodes []layout.Node
				for i := 0; i < 30; i++ {
					nodes = append(nodes, node(fmt.Sprintf("n%d", i), float64(i%6)*4, float64(i/6)*4, 12))
				}
				return nodes, nil
			},
		},
		{
			name: "linked clusters",
			nodes: func() ([]layout.Node, []layout.Edge) {
				var nodes []layout.Node
				var edges []layout.Edge
				for i := 0; i < 8; i++ {
					n := node(fmt.Sprintf("cluster-%d", i), float64(i)*10, float64(i%2)*10, 30+float64(i)*6)
					n.Kind = layout.KindCluster
					nodes = append(nodes, n)
					if i > 0 {
						edges = append(edges, layout.Edge{SourceID: nodes[i-1].ID, TargetID: n.ID})
					}
				}
				return nodes, edges
			},
		},
		{
			name: "entries with satellites",
			nodes: func() ([]layout.Node, []layout.Edge) {
				var nodes []layout.Node
				var edges []layout.Edge
				for i := 0; i < 10; i++ {
					id := fmt.Sprintf("e%d", i)
					nodes = append(nodes, node(id, float64(i), 0, 12))
					edges = append(edges, layout.Edge{SourceID: id, TargetID: "tag-x"})
				}
				nodes = append(nodes, node("tag-x", 0, 0, 6))
				return nodes, edges
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := NewSimulation(DefaultParams())
			sim.SetGraph(tt.nodes())
			sim.Run(1500)

			nodes := sim.Nodes()
			for i := 0; i < len(nodes); i++ {
				require.True(t, nodes[i].Position.IsFinite())
				for j := i + 1; j < len(nodes); j++ {
					d := nodes[i].Position.Sub(nodes[j].Position).Len()
					assert.GreaterOrEqual(t, d, nodes[i].Radius+nodes[j].Radius,
						"Expected %s and %s not to overlap", nodes[i].ID, nodes[j].ID)
				}
			}
		})
	}
}

func TestRepulsionCutoff(t *testing.T) {
	params := DefaultParams()
	params.CenterPull = 0
	sim := NewSimulation(params)
	sim.SetGraph([]layout.Node{node("a", 0, 0, 12), node("b", 501, 0, 12)}, nil)

	sim.Tick()
	assert.Equal(t, layout.Vec{}, sim.Nodes()[0].Position, "Expected no repulsion past the cutoff")
	assert.Equal(t, layout.Vec{X: 501}, sim.Nodes()[1].Position)
}

func TestClusterRepulsionIsStronger(t *testing.T) {
	params := DefaultParams()
	params.CenterPull = 0

	plain := NewSimulation(params)
	plain.SetGraph([]layout.Node{node("a", 0, 0, 1), node("b", 100, 0, 1)}, nil)
	plain.Tick()

	c := node("b", 100, 0, 1)
	c.Kind = layout.KindCluster
	clustered := NewSimulation(params)
	clustered.SetGraph([]layout.Node{node("a", 0, 0, 1), c}, nil)
	clustered.Tick()

	assert.InDelta(t, 2*plain.Nodes()[0].Velocity.X, clustered.Nodes()[0].Velocity.X, 1e-9)
}

func TestSpringsPullLinkedNodes(t *testing.T) {
	params := DefaultParams()
	params.RepulsionStrength = 0
	params.CenterPull = 0
	sim := NewSimulation(params)
	sim.SetGraph(
		[]layout.Node{node("a", 0, 0, 12), node("b", 400, 0, 12)},
		[]layout.Edge{{SourceID: "a", TargetID: "b"}, {SourceID: "a", TargetID: "gone"}},
	)

	require.NotPanics(t, sim.Tick, "Expected dangling edges to be skipped")
	a, b := sim.Nodes()[0], sim.Nodes()[1]
	assert.Greater(t, a.Position.X, 0.0)
	assert.Less(t, b.Position.X, 400.0)

	// (400-150)*0.05 = 12.5, damped by 0.8
	assert.InDelta(t, 10.0, a.Velocity.X, 1e-9)
}

func TestEnergyDecaysWithoutForces(t *testing.T) {
	params := DefaultParams()
	params.CenterPull = 0
	sim := NewSimulation(params)
	n := node("a", 0, 0, 12)
	n.Velocity = layout.Vec{X: 10}
	sim.SetGraph([]layout.Node{n}, nil)

	before := sim.Energy()
	sim.Run(10)
	assert.Less(t, sim.Energy(), before)
	assert.InDelta(t, 0.5*math.Pow(10*math.Pow(0.8, 10), 2), sim.Energy(), 1e-9)
}

func TestVelocityClamp(t *testing.T) {
	sim := NewSimulation(DefaultParams())
	sim.SetGraph([]layout.Node{node("a", 0, 0, 12), node("b", 0.5, 0, 12)}, nil)
	sim.Tick()
	for _, n := range sim.Nodes() {
		assert.LessOrEqual(t, n.Velocity.Len(), DefaultParams().MaxVelocity+1e-9)
	}
}
