package constants

// Clustering constants
const (
	// ClusterThreshold is the entry count above which the graph is clustered
	ClusterThreshold = 12

	// ClusterBaseRadius and ClusterMaxGrowth bound cluster radii to [25, 85]
	ClusterBaseRadius = 25.0
	ClusterMaxGrowth  = 60.0
	ClusterLogScale   = 12.0
)

// Detailed mode node radii
const (
	EntryRadius  = 12.0
	TagRadius    = 6.0
	EntityRadius = 8.0
)

// Satellite colors
const (
	TagColor    = "#94a3b8"
	EntityColor = "#f59e0b"
)

// Sentinel group keys
const (
	GroupUnknown    = "Unknown"
	GroupUntagged   = "Untagged"
	GroupNoEntities = "No Entities"
)

// InitialSpread is the half-width of the box new nodes are scattered in
const InitialSpread = 400.0

// Physics defaults. Forces are in world units per tick.
const (
	RepulsionStrength = 50000.0
	RepulsionCutoff   = 500.0
	ClusterRepulsion  = 2.0

	CollisionPadding  = 10.0
	CollisionStrength = 0.2

	SpringLength        = 150.0
	SpringStrength      = 0.05
	ClusterSpringFactor = 1.5

	CenterPull        = 0.002
	ClusterCenterPull = 1.5
	Damping           = 0.80
	MaxVelocity       = 60.0
	MinDistance       = 1.0
)

// Viewport defaults
const (
	MinZoom       = 0.1
	MaxZoom       = 3.0
	MinButtonZoom = 0.2
	ZoomStep      = 1.2
	WheelStep     = 1.1
	FitPadding    = 50.0
	HitSlop       = 5.0

	DefaultWidth  = 1200.0
	DefaultHeight = 800.0

	// FitDelayTicks is ~600ms at 60 frames per second
	FitDelayTicks = 36
)

// DefaultTickIntervalMS paces the server-side frame loop
const DefaultTickIntervalMS = 16
