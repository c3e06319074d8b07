package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"diarygraph/backend/internal/constants"
	apperrors "diarygraph/backend/pkg/errors"
)

// Tuning holds the layout knobs that can be overridden from a TOML file.
type Tuning struct {
	Cluster  ClusterTuning  `toml:"cluster"`
	Physics  PhysicsTuning  `toml:"physics"`
	Viewport ViewportTuning `toml:"viewport"`
}

// ClusterTuning controls when the planner aggregates entries.
type ClusterTuning struct {
	Threshold   int    `toml:"threshold"`
	DefaultMode string `toml:"default_mode"`
}

// PhysicsTuning mirrors the force simulation parameters.
type PhysicsTuning struct {
	RepulsionStrength   float64 `toml:"repulsion_strength"`
	RepulsionCutoff     float64 `toml:"repulsion_cutoff"`
	ClusterRepulsion    float64 `toml:"cluster_repulsion"`
	CollisionPadding    float64 `toml:"collision_padding"`
	CollisionStrength   float64 `toml:"collision_strength"`
	SpringLength        float64 `toml:"spring_length"`
	SpringStrength      float64 `toml:"spring_strength"`
	ClusterSpringFactor float64 `toml:"cluster_spring_factor"`
	CenterPull          float64 `toml:"center_pull"`
	ClusterCenterPull   float64 `toml:"cluster_center_pull"`
	Damping             float64 `toml:"damping"`
	MaxVelocity         float64 `toml:"max_velocity"`
}

// ViewportTuning controls the default canvas and fit behaviour.
type ViewportTuning struct {
	Width         float64 `toml:"width"`
	Height        float64 `toml:"height"`
	FitPadding    float64 `toml:"fit_padding"`
	FitDelayTicks int     `toml:"fit_delay_ticks"`
}

// DefaultTuning returns the built-in layout parameters.
func DefaultTuning() Tuning {
	return Tuning{
		Cluster: ClusterTuning{
			Threshold:   constants.ClusterThreshold,
			DefaultMode: "date",
		},
		Physics: PhysicsTuning{
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
		},
		Viewport: ViewportTuning{
			Width:         constants.DefaultWidth,
			Height:        constants.DefaultHeight,
			FitPadding:    constants.FitPadding,
			FitDelayTicks: constants.FitDelayTicks,
		},
	}
}

// LoadTuning decodes path over the defaults. An empty path returns the defaults.
// Keys missing from the file keep their default values.
func LoadTuning(path string) (Tuning, error) {
	tuning := DefaultTuning()
	if path == "" {
		return tuning, nil
	}

	if _, err := toml.DecodeFile(path, &tuning); err != nil {
		return DefaultTuning(), fmt.Errorf("decode tuning file %s: %w", path, err)
	}

	if err := tuning.Validate(); err != nil {
		return DefaultTuning(), err
	}
	return tuning, nil
}

// Validate rejects values that would stall or destabilise the layout.
func (t Tuning) Validate() error {
	if t.Cluster.Threshold < 1 {
		return apperrors.NewConfigValidationFailed("cluster.threshold", "must be at least 1")
	}
	if t.Physics.Damping <= 0 || t.Physics.Damping >= 1 {
		return apperrors.NewConfigValidationFailed("physics.damping", "must be in (0, 1)")
	}
	if t.Physics.RepulsionCutoff <= 0 {
		return apperrors.NewConfigValidationFailed("physics.repulsion_cutoff", "must be positive")
	}
	if t.Physics.SpringLength <= 0 {
		return apperrors.NewConfigValidationFailed("physics.spring_length", "must be positive")
	}
	if t.Viewport.Width <= 0 || t.Viewport.Height <= 0 {
		return apperrors.NewConfigValidationFailed("viewport", "width and height must be positive")
	}
	if t.Viewport.FitDelayTicks < 0 {
		return apperrors.NewConfigValidationFailed("viewport.fit_delay_ticks", "must not be negative")
	}
	return nil
}
