// Package forecast projects a child's measurements forward by assuming the
// average percentile rank observed so far is held until the target age.
package forecast

import (
	"errors"
	"fmt"

	"growth-mcp/internal/reference"
	"growth-mcp/internal/session"
	"growth-mcp/internal/stats"
)

// HorizonMonths is how far past the last recorded age the projection reaches.
const HorizonMonths = 12

var ErrInsufficientHistory = errors.New("insufficient history for forecast")

// Projection is the forecast for one measure.
type Projection struct {
	Measure           reference.Measure `json:"measure"`
	TargetAge         int               `json:"target_age"`
	ReferenceAge      int               `json:"reference_age"` // tabulated age actually used
	ProjectedValue    float64           `json:"projected_value"`
	AveragePercentile float64           `json:"average_percentile"`
	MedianPercentile  float64           `json:"median_percentile"`
	Samples           int               `json:"samples"`
}

// Result bundles both projections with the age-sorted history they came from.
type Result struct {
	TargetAge int                   `json:"target_age"`
	Height    *Projection           `json:"height,omitempty"`
	Weight    *Projection           `json:"weight,omitempty"`
	History   []session.Measurement `json:"history"`
}

// Project computes the height and weight forecasts for state. A measure with no
// scored percentiles, or no reference data for the state's sex, is skipped.
func Project(table *reference.Table, state session.State) (Result, error) {
	if !state.CanReport() {
		return Result{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientHistory, len(state.History), session.MinReportHistory)
	}

	history := state.SortedHistory()
	target := history[len(history)-1].AgeMonths + HorizonMonths

	return Result{
		TargetAge: target,
		Height:    project(table, state.Sex, reference.Height, history, target),
		Weight:    project(table, state.Sex, reference.Weight, history, target),
		History:   history,
	}, nil
}

func project(table *reference.Table, sex reference.Sex, measure reference.Measure, history []session.Measurement, target int) *Projection {
	ps := percentiles(history, measure)
	avg, ok := stats.Mean(ps)
	if !ok {
		return nil
	}

	ref, refAge, ok := table.Resolve(sex, measure, target)
	if !ok {
		return nil
	}
	value, ok := stats.ValueAtPercentile(avg, &ref)
	if !ok {
		return nil
	}

	return &Projection{
		Measure:           measure,
		TargetAge:         target,
		ReferenceAge:      refAge,
		ProjectedValue:    value,
		AveragePercentile: avg,
		MedianPercentile:  stats.CalculateMedianContinuous(ps),
		Samples:           len(ps),
	}
}

func percentiles(history []session.Measurement, measure reference.Measure) []float64 {
	var ps []float64
	for _, m := range history {
		if p, ok := m.Percentile(measure); ok {
			ps = append(ps, p)
		}
	}
	return ps
}
