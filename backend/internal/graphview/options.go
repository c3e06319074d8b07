package graphview

import (
	"go.uber.org/zap"

	"diarygraph/backend/internal/constants"
	"diarygraph/backend/internal/layout"
	"diarygraph/backend/internal/physics"
	"diarygraph/backend/pkg/config"
)

// Options configures a Controller
type Options struct {
	Threshold     int
	DefaultMode   layout.Dimension
	Physics       physics.Params
	Width         float64
	Height        float64
	FitPadding    float64
	FitDelayTicks int

	// Seed makes initial node positions reproducible. Zero picks a random seed.
	Seed uint64

	Logger *zap.Logger
}

// DefaultOptions returns options built from the package constants
func DefaultOptions() Options {
	return Options{
		Threshold:     constants.ClusterThreshold,
		DefaultMode:   layout.DimDate,
		Physics:       physics.DefaultParams(),
		Width:         constants.DefaultWidth,
		Height:        constants.DefaultHeight,
		FitPadding:    constants.FitPadding,
		FitDelayTicks: constants.FitDelayTicks,
	}
}

// OptionsFromTuning applies a loaded tuning file over the defaults
func OptionsFromTuning(t config.Tuning) Options {
	opts := DefaultOptions()
	opts.Threshold = t.Cluster.Threshold
	if mode, err := layout.ParseDimension(t.Cluster.DefaultMode); err == nil {
		opts.DefaultMode = mode
	}

	p := t.Physics
	opts.Physics.RepulsionStrength = p.RepulsionStrength
	opts.Physics.RepulsionCutoff = p.RepulsionCutoff
	opts.Physics.ClusterRepulsion = p.ClusterRepulsion
	opts.Physics.CollisionPadding = p.CollisionPadding
	opts.Physics.CollisionStrength = p.CollisionStrength
	opts.Physics.SpringLength = p.SpringLength
	opts.Physics.SpringStrength = p.SpringStrength
	opts.Physics.ClusterSpringFactor = p.ClusterSpringFactor
	opts.Physics.CenterPull = p.CenterPull
	opts.Physics.ClusterCenterPull = p.ClusterCenterPull
	opts.Physics.Damping = p.Damping
	opts.Physics.MaxVelocity = p.MaxVelocity

	opts.Width = t.Viewport.Width
	opts.Height = t.Viewport.Height
	opts.FitPadding = t.Viewport.FitPadding
	opts.FitDelayTicks = t.Viewport.FitDelayTicks
	return opts
}
