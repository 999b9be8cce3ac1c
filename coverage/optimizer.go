package coverage

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/floats"
)

// Stage names the point of the run at which a snapshot was taken.
type Stage string

const (
	StageInitial        Stage = "initial"
	StageInitialCenters Stage = "initial-centers"
	StageWeights        Stage = "weights"
	StageCenters        Stage = "centers"
)

// Snapshot is the state of a partition right after a diagram rebuild.
type Snapshot struct {
	Stage    Stage         `json:"stage"`
	Outer    int           `json:"outer"`
	Inner    int           `json:"inner"`
	Centers  []orb.Point   `json:"centers"`
	Weights  []float64     `json:"weights"`
	Covering [][]orb.Point `json:"covering"`
}

// IterationHandler receives a snapshot after every diagram rebuild. It is
// called synchronously from Run.
type IterationHandler func(Snapshot)

// Result summarizes a finished run.
//
// Converged only says the centers stopped moving. A run can converge with
// cells far from their desired areas; VolumesConverged reports that
// criterion separately.
type Result struct {
	OuterIterations  int       `json:"outerIterations"`
	InnerIterations  int       `json:"innerIterations"` // Total over all outer iterations
	VolumeError      float64   `json:"volumeError"`     // Sum of squared deviations from the desired areas
	CenterError      float64   `json:"centerError"`     // Total center movement in the last outer iteration
	Converged        bool      `json:"converged"`
	VolumesConverged bool      `json:"volumesConverged"` // Final volume error within the volume tolerance
	Volumes          []float64 `json:"volumes"`
}

// Run optimizes the partition until the centers stop moving or the
// iteration caps are reached. Reaching a cap is not an error; Result
// reports how far the run got. Sites not yet initialized get defaults.
func (p *Partition) Run(ctx context.Context) (Result, error) {
	var res Result
	if !p.initialized {
		if err := p.Initialize(nil, nil); err != nil {
			return res, err
		}
	}
	if p.n == 0 {
		res.Converged = true
		res.VolumesConverged = true
		return res, nil
	}

	if err := p.rebuild(ctx, StageInitial, 0, 0); err != nil {
		return res, err
	}
	vols, err := p.volumes()
	if err != nil {
		return res, err
	}
	res.CenterError, err = p.stepCenters(vols, p.params.InitialCentersStep)
	if err != nil {
		return res, err
	}
	if err := p.rebuild(ctx, StageInitialCenters, 0, 0); err != nil {
		return res, err
	}

	centerErr := math.Inf(1)
	for centerErr > p.params.ConvergenceCriterion && res.OuterIterations < p.params.MaxIterationsCenters {
		outer := res.OuterIterations + 1
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("outer iteration %d: %w", outer, err)
		}

		if vols, err = p.volumes(); err != nil {
			return res, err
		}
		volErr := p.volumeError(vols)
		for inner := 1; volErr > p.params.VolumeTolerance && inner <= p.params.MaxIterationsVolume; inner++ {
			if err := ctx.Err(); err != nil {
				return res, fmt.Errorf("outer iteration %d, inner iteration %d: %w", outer, inner, err)
			}
			if err := p.graph.Build(p.geo, p.covering); err != nil {
				return res, err
			}
			if err := p.stepWeights(vols); err != nil {
				return res, err
			}
			if err := p.rebuild(ctx, StageWeights, outer, inner); err != nil {
				return res, err
			}
			if vols, err = p.volumes(); err != nil {
				return res, err
			}
			volErr = p.volumeError(vols)
			res.InnerIterations++
		}

		if centerErr, err = p.stepCenters(vols, p.params.CentersStep); err != nil {
			return res, err
		}
		if err := p.rebuild(ctx, StageCenters, outer, 0); err != nil {
			return res, err
		}
		res.OuterIterations = outer
		res.CenterError = centerErr
		log.Printf("Outer iteration %d: volume error %.4g, center movement %.4g", outer, volErr, centerErr)
	}

	if vols, err = p.volumes(); err != nil {
		return res, err
	}
	if err := p.graph.Build(p.geo, p.covering); err != nil {
		return res, err
	}
	res.Volumes = vols
	res.VolumeError = p.volumeError(vols)
	res.Converged = res.CenterError <= p.params.ConvergenceCriterion
	res.VolumesConverged = res.VolumeError <= p.params.VolumeTolerance
	return res, nil
}

// rebuild recomputes the covering from the current sites and notifies the
// handler.
func (p *Partition) rebuild(ctx context.Context, stage Stage, outer, inner int) error {
	covering, err := p.builder.Build(ctx, p.centers, p.weights)
	if err != nil {
		return fmt.Errorf("building diagram (%s): %w", stage, err)
	}
	p.covering = covering

	if p.handler != nil {
		p.handler(p.snapshot(stage, outer, inner))
	}
	return nil
}

func (p *Partition) snapshot(stage Stage, outer, inner int) Snapshot {
	cells := make([][]orb.Point, len(p.covering))
	for i, c := range p.covering {
		cells[i] = c.Vertices()
	}
	return Snapshot{
		Stage:    stage,
		Outer:    outer,
		Inner:    inner,
		Centers:  p.Centers(),
		Weights:  p.Weights(),
		Covering: cells,
	}
}

// volumes returns the weighted area of every cell.
func (p *Partition) volumes() ([]float64, error) {
	vols := make([]float64, p.n)
	for i, c := range p.covering {
		v, err := p.density.WeightedArea(c)
		if err != nil {
			return nil, err
		}
		vols[i] = v
	}
	return vols, nil
}

// volumeError is the sum of squared differences between current and
// desired areas.
func (p *Partition) volumeError(vols []float64) float64 {
	d := floats.Distance(vols, p.desired, 2)
	return d * d
}

// stepWeights moves every weight against the gradient of the area
// mismatch. The gradient couples neighbors through the density integrated
// along their shared edge. Empty cells get a fixed bump instead so they can
// reappear.
func (p *Partition) stepWeights(vols []float64) error {
	next := make([]float64, p.n)
	for i := range p.weights {
		if p.covering[i].IsEmpty() {
			next[i] = p.weights[i] + 2*p.params.WeightsStep
			continue
		}

		var grad float64
		for j := 0; j < p.n; j++ {
			if j == i {
				continue
			}
			edge := p.graph.Edge(i, j)
			if !edge.HasSegment() {
				continue
			}
			flux, err := p.density.LineIntegral(p.params.LineIntStep, edge.A, edge.B)
			if err != nil {
				return err
			}
			ratio := p.desired[j]/vols[j] - p.desired[i]/vols[i]
			grad += ratio / planar.Distance(p.centers[i], p.centers[j]) * flux
		}
		next[i] = p.weights[i] - p.params.WeightsStep*grad
	}
	p.weights = next
	return nil
}

// stepCenters moves each center the given fraction of the way toward its
// cell's centroid and returns the total distance moved. Centers of empty
// cells stay put.
func (p *Partition) stepCenters(vols []float64, step float64) (float64, error) {
	var moved float64
	for i, cell := range p.covering {
		if cell.IsEmpty() {
			continue
		}
		centroid, err := p.density.Centroid(cell, vols[i])
		if err != nil {
			return 0, err
		}
		next := pointAlongLine(p.centers[i], centroid, step)
		moved += planar.Distance(p.centers[i], next)
		p.centers[i] = next
	}
	return moved, nil
}
