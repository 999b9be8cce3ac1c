package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParameters_Validate(t *testing.T) {
	assert.NoError(t, DefaultParameters().Validate())

	tests := []struct {
		name   string
		modify func(*Parameters)
	}{
		{"line step zero", func(p *Parameters) { p.LineIntStep = 0 }},
		{"line step above one", func(p *Parameters) { p.LineIntStep = 1.5 }},
		{"weights step", func(p *Parameters) { p.WeightsStep = 0 }},
		{"centers step", func(p *Parameters) { p.CentersStep = 1.1 }},
		{"initial centers step", func(p *Parameters) { p.InitialCentersStep = 0 }},
		{"volume tolerance", func(p *Parameters) { p.VolumeTolerance = -1 }},
		{"convergence", func(p *Parameters) { p.ConvergenceCriterion = 0 }},
		{"volume iterations", func(p *Parameters) { p.MaxIterationsVolume = 0 }},
		{"center iterations", func(p *Parameters) { p.MaxIterationsCenters = 0 }},
		{"lower bound one", func(p *Parameters) { p.VolumeLowerBound = 1 }},
		{"lower bound zero", func(p *Parameters) { p.VolumeLowerBound = 0 }},
		{"robustness", func(p *Parameters) { p.RobustnessTolerance = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParameters()
			tt.modify(&p)
			assert.ErrorIs(t, p.Validate(), ErrConfiguration)
		})
	}
}
