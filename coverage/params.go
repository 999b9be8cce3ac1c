package coverage

import "fmt"

// Parameters holds the numeric configuration of a partition run.
// Use DefaultParameters and override individual fields; a zero value
// does not validate.
type Parameters struct {
	LineIntStep          float64 `yaml:"lineIntStep" json:"lineIntStep"`                   // Normalized trapezoid spacing for line integrals, in (0,1]
	WeightsStep          float64 `yaml:"weightsStep" json:"weightsStep"`                   // Gradient step applied to the site weights
	CentersStep          float64 `yaml:"centersStep" json:"centersStep"`                   // Fraction of the way each center moves toward its centroid, in (0,1]
	InitialCentersStep   float64 `yaml:"initialCentersStep" json:"initialCentersStep"`     // Step used for the very first center move, in (0,1]
	VolumeTolerance      float64 `yaml:"volumeTolerance" json:"volumeTolerance"`           // Inner loop exits once the volumetric error drops below this
	ConvergenceCriterion float64 `yaml:"convergenceCriterion" json:"convergenceCriterion"` // Outer loop exits once total center movement drops below this
	MaxIterationsVolume  int     `yaml:"maxIterationsVolume" json:"maxIterationsVolume"`
	MaxIterationsCenters int     `yaml:"maxIterationsCenters" json:"maxIterationsCenters"`
	VolumeLowerBound     float64 `yaml:"volumeLowerBound" json:"volumeLowerBound"`       // Floor on any region's weighted area, in (0,1)
	RobustnessTolerance  float64 `yaml:"robustnessTolerance" json:"robustnessTolerance"` // Shared by every geometric predicate
}

// DefaultParameters returns values that produce reasonable partitions
// with reasonable effort for most regions.
func DefaultParameters() Parameters {
	return Parameters{
		LineIntStep:          0.1,
		WeightsStep:          0.1,
		CentersStep:          1,
		InitialCentersStep:   1,
		VolumeTolerance:      0.002,
		ConvergenceCriterion: 0.02,
		MaxIterationsVolume:  200,
		MaxIterationsCenters: 500,
		VolumeLowerBound:     1e-5,
		RobustnessTolerance:  1e-7,
	}
}

// Validate checks every field against its allowed range.
func (p Parameters) Validate() error {
	switch {
	case p.LineIntStep <= 0 || p.LineIntStep > 1:
		return fmt.Errorf("%w: lineIntStep must be in (0,1], got %g", ErrConfiguration, p.LineIntStep)
	case p.WeightsStep <= 0:
		return fmt.Errorf("%w: weightsStep must be greater than 0, got %g", ErrConfiguration, p.WeightsStep)
	case p.CentersStep <= 0 || p.CentersStep > 1:
		return fmt.Errorf("%w: centersStep must be in (0,1], got %g", ErrConfiguration, p.CentersStep)
	case p.InitialCentersStep <= 0 || p.InitialCentersStep > 1:
		return fmt.Errorf("%w: initialCentersStep must be in (0,1], got %g", ErrConfiguration, p.InitialCentersStep)
	case p.VolumeTolerance <= 0:
		return fmt.Errorf("%w: volumeTolerance must be greater than 0, got %g", ErrConfiguration, p.VolumeTolerance)
	case p.ConvergenceCriterion <= 0:
		return fmt.Errorf("%w: convergenceCriterion must be greater than 0, got %g", ErrConfiguration, p.ConvergenceCriterion)
	case p.MaxIterationsVolume < 1:
		return fmt.Errorf("%w: maxIterationsVolume must be at least 1, got %d", ErrConfiguration, p.MaxIterationsVolume)
	case p.MaxIterationsCenters < 1:
		return fmt.Errorf("%w: maxIterationsCenters must be at least 1, got %d", ErrConfiguration, p.MaxIterationsCenters)
	case p.VolumeLowerBound <= 0 || p.VolumeLowerBound >= 1:
		return fmt.Errorf("%w: volumeLowerBound must be in (0,1), got %g", ErrConfiguration, p.VolumeLowerBound)
	case p.RobustnessTolerance <= 0:
		return fmt.Errorf("%w: robustnessTolerance must be greater than 0, got %g", ErrConfiguration, p.RobustnessTolerance)
	}
	return nil
}
