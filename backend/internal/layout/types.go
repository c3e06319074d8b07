package layout

import (
	"fmt"
	"math"
)

// Vec is a 2D point or displacement in world units
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v+o
func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y} }

// Sub returns v-o
func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y} }

// Scale returns v*s
func (v Vec) Scale(s float64) Vec { return Vec{v.X * s, v.Y * s} }

// Len returns the euclidean length of v
func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }

// IsFinite reports whether both components are finite numbers
func (v Vec) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// NodeKind is what a node stands for
type NodeKind string

const (
	KindEntry   NodeKind = "entry"
	KindTag     NodeKind = "tag"
	KindEntity  NodeKind = "entity"
	KindCluster NodeKind = "cluster"
)

// Node is one circle in the graph. Position and Velocity are owned by the
// simulation once the node set is installed.
type Node struct {
	ID         string    `json:"id"`
	Kind       NodeKind  `json:"kind"`
	EntityType string    `json:"entity_type,omitempty"`
	Position   Vec       `json:"position"`
	Velocity   Vec       `json:"velocity"`
	Radius     float64   `json:"radius"`
	Color      string    `json:"color"`
	Label      string    `json:"label"`
	Glyph      string    `json:"glyph,omitempty"`
	Count      int       `json:"count,omitempty"`
	GroupKey   string    `json:"group_key,omitempty"`
	Mode       Dimension `json:"mode,omitempty"`
	Sentinel   bool      `json:"sentinel,omitempty"`
	Payload    any       `json:"payload,omitempty"`
}

// IsCluster reports whether the node aggregates entries
func (n *Node) IsCluster() bool {
	return n.Kind == KindCluster
}

// Edge links two nodes by id. Edges carry no direction for layout.
type Edge struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

// Dimension is what entries are grouped by when clustering
type Dimension string

const (
	DimDate       Dimension = "date"
	DimDay        Dimension = "day"
	DimMood       Dimension = "mood"
	DimCountry    Dimension = "country"
	DimCity       Dimension = "city"
	DimTag        Dimension = "tag"
	DimEntity     Dimension = "entity"
	DimEntityType Dimension = "entityType"
)

// Dimensions lists every grouping dimension
var Dimensions = []Dimension{DimDate, DimDay, DimMood, DimCountry, DimCity, DimTag, DimEntity, DimEntityType}

// ParseDimension validates a dimension name
func ParseDimension(s string) (Dimension, error) {
	for _, d := range Dimensions {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown cluster dimension %q", s)
}

// Node id prefixes
const (
	TagIDPrefix     = "tag-"
	EntityIDPrefix  = "ent-"
	ClusterIDPrefix = "cluster-"
)

// ClusterID returns the node id of the cluster for groupKey
func ClusterID(groupKey string) string {
	return ClusterIDPrefix + groupKey
}
