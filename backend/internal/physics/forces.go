package physics

import (
	"math"

	"diarygraph/backend/internal/layout"
)

// goldenAngle spreads coincident pairs in distinct directions
const goldenAngle = 2.399963229728653

// separation returns the unit vector from b to a and their distance. Coincident
// nodes get a fixed direction derived from their indices so the result never
// depends on map order or randomness.
func (s *Simulation) separation(i, j int, dx, dy float64) (layout.Vec, float64) {
	d := math.Sqrt(dx*dx + dy*dy)
	if d == 0 {
		angle := float64(i+j+1) * goldenAngle
		return layout.Vec{X: math.Cos(angle), Y: math.Sin(angle)}, s.params.MinDistance
	}
	dir := layout.Vec{X: dx / d, Y: dy / d}
	if d < s.params.MinDistance {
		d = s.params.MinDistance
	}
	return dir, d
}

func (s *Simulation) applyRepulsion() {
	p := s.params
	cutoff2 := p.RepulsionCutoff * p.RepulsionCutoff
	nodes := s.nodes

	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			dx := nodes[i].Position.X - nodes[j].Position.X
			dy := nodes[i].Position.Y - nodes[j].Position.Y
			if math.Abs(dx) > p.RepulsionCutoff || math.Abs(dy) > p.RepulsionCutoff {
				continue
			}
			if dx*dx+dy*dy > cutoff2 {
				continue
			}

			dir, d := s.separation(i, j, dx, dy)
			strength := p.RepulsionStrength
			if nodes[i].IsCluster() || nodes[j].IsCluster() {
				strength *= p.ClusterRepulsion
			}
			force := dir.Scale(strength / (d * d))

			if i != s.dragged {
				nodes[i].Velocity = nodes[i].Velocity.Add(force)
			}
			if j != s.dragged {
				nodes[j].Velocity = nodes[j].Velocity.Sub(force)
			}
		}
	}
}

func (s *Simulation) resolveCollisions() {
	p := s.params
	nodes := s.nodes

	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			minSep := nodes[i].Radius + nodes[j].Radius + p.CollisionPadding
			dx := nodes[i].Position.X - nodes[j].Position.X
			dy := nodes[i].Position.Y - nodes[j].Position.Y
			if math.Abs(dx) >= minSep || math.Abs(dy) >= minSep {
				continue
			}
			if dx*dx+dy*dy >= minSep*minSep {
				continue
			}

			dir, d := s.separation(i, j, dx, dy)
			push := (minSep - d) * p.CollisionStrength

			switch s.dragged {
			case i:
				nodes[j].Position = nodes[j].Position.Sub(dir.Scale(push))
			case j:
				nodes[i].Position = nodes[i].Position.Add(dir.Scale(push))
			default:
				half := dir.Scale(push / 2)
				nodes[i].Position = nodes[i].Position.Add(half)
				nodes[j].Position = nodes[j].Position.Sub(half)
			}
		}
	}
}

// applySprings pulls linked nodes toward the rest length. Edges whose
// endpoints are not in the current node set are skipped.
func (s *Simulation) applySprings() {
	if len(s.edges) == 0 {
		return
	}
	p := s.params
	nodes := s.nodes

	index := make(map[string]int, len(nodes))
	for i := range nodes {
		index[nodes[i].ID] = i
	}

	for _, e := range s.edges {
		a, ok := index[e.SourceID]
		if !ok {
			continue
		}
		b, ok := index[e.TargetID]
		if !ok || a == b {
			continue
		}

		dx := nodes[b].Position.X - nodes[a].Position.X
		dy := nodes[b].Position.Y - nodes[a].Position.Y
		dir, d := s.separation(a, b, dx, dy)

		rest := p.SpringLength
		if nodes[a].IsCluster() || nodes[b].IsCluster() {
			rest *= p.ClusterSpringFactor
		}
		force := dir.Scale((d - rest) * p.SpringStrength)

		if a != s.dragged {
			nodes[a].Velocity = nodes[a].Velocity.Add(force)
		}
		if b != s.dragged {
			nodes[b].Velocity = nodes[b].Velocity.Sub(force)
		}
	}
}

func (s *Simulation) integrate() {
	p := s.params
	for i := range s.nodes {
		n := &s.nodes[i]
		if i == s.dragged {
			n.Velocity = layout.Vec{}
			continue
		}

		pull := p.CenterPull
		if n.IsCluster() {
			pull *= p.ClusterCenterPull
		}
		v := n.Velocity.Sub(n.Position.Scale(pull)).Scale(p.Damping)

		if speed := v.Len(); p.MaxVelocity > 0 && speed > p.MaxVelocity {
			v = v.Scale(p.MaxVelocity / speed)
		}
		if !v.IsFinite() {
			v = layout.Vec{}
		}

		n.Velocity = v
		n.Position = n.Position.Add(v)
	}
}
