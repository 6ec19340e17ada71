// Package session models the per-user conversation record: the subject's sex
// and the ordered list of measurements supplied so far.
//
// State values are copy-on-write. Every mutating method returns a new State
// and never modifies the receiver's history in place, so a State read from a
// store can be handed to the dispatcher without aliasing.
package session

import (
	"slices"

	"growth-mcp/internal/reference"
	"growth-mcp/internal/stats"
)

// Phase is the coarse position of a conversation in the collection flow.
type Phase string

const (
	// PhaseEmpty has neither sex nor history.
	PhaseEmpty Phase = "empty"
	// PhaseCollecting has a known sex or a single measurement.
	PhaseCollecting Phase = "collecting"
	// PhaseReady has at least two measurements and can be reported.
	PhaseReady Phase = "ready"
)

// MinReportHistory is the number of measurements required for a report.
const MinReportHistory = 2

// Measurement is one data point supplied by the user. Percentiles are set only
// when the sex was known and the reference had an entry at exactly AgeMonths
// when the measurement was created.
type Measurement struct {
	AgeMonths        int      `json:"age_month"`
	HeightCm         *float64 `json:"height_cm,omitempty"`
	WeightKg         *float64 `json:"weight_kg,omitempty"`
	HeightPercentile *float64 `json:"h_percentile,omitempty"`
	WeightPercentile *float64 `json:"w_percentile,omitempty"`
}

// Value returns the raw measurement for a measure, if present.
func (m Measurement) Value(measure reference.Measure) (float64, bool) {
	p := m.HeightCm
	if measure == reference.Weight {
		p = m.WeightKg
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Percentile returns the stored percentile for a measure, if scored.
func (m Measurement) Percentile(measure reference.Measure) (float64, bool) {
	p := m.HeightPercentile
	if measure == reference.Weight {
		p = m.WeightPercentile
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// NewMeasurement builds a measurement and scores each supplied value against
// the reference table. An empty sex leaves the percentiles unset.
func NewMeasurement(table *reference.Table, sex reference.Sex, ageMonths int, heightCm, weightKg *float64) Measurement {
	m := Measurement{
		AgeMonths: ageMonths,
		HeightCm:  copyFloat(heightCm),
		WeightKg:  copyFloat(weightKg),
	}
	if !sex.Valid() {
		return m
	}
	if heightCm != nil {
		if p, ok := stats.PercentileAt(table, sex, reference.Height, ageMonths, *heightCm); ok {
			m.HeightPercentile = &p
		}
	}
	if weightKg != nil {
		if p, ok := stats.PercentileAt(table, sex, reference.Weight, ageMonths, *weightKg); ok {
			m.WeightPercentile = &p
		}
	}
	return m
}

// State is the accumulated record of one open conversation.
type State struct {
	Sex     reference.Sex `json:"sex,omitempty"`
	History []Measurement `json:"history"`
}

// Empty returns a fresh conversation state.
func Empty() State {
	return State{History: []Measurement{}}
}

// Phase classifies the state.
func (s State) Phase() Phase {
	switch {
	case len(s.History) >= MinReportHistory:
		return PhaseReady
	case s.Sex == "" && len(s.History) == 0:
		return PhaseEmpty
	default:
		return PhaseCollecting
	}
}

// CanReport reports whether enough history exists for a forecast.
func (s State) CanReport() bool {
	return len(s.History) >= MinReportHistory
}

// AdoptSex sets the sex when none is known yet. The first valid value wins.
func (s State) AdoptSex(sex reference.Sex) State {
	if s.Sex != "" || !sex.Valid() {
		return s
	}
	next := s.Clone()
	next.Sex = sex
	return next
}

// Append returns a state with m added to the end of the history.
func (s State) Append(m Measurement) State {
	next := s.Clone()
	next.History = append(next.History, m)
	return next
}

// Clone deep-copies the state.
func (s State) Clone() State {
	history := make([]Measurement, len(s.History), len(s.History)+1)
	for i, m := range s.History {
		history[i] = m.clone()
	}
	return State{Sex: s.Sex, History: history}
}

// SortedHistory returns the history ordered by age. Equal ages keep their
// entry order.
func (s State) SortedHistory() []Measurement {
	sorted := s.Clone().History
	slices.SortStableFunc(sorted, func(a, b Measurement) int {
		return a.AgeMonths - b.AgeMonths
	})
	return sorted
}

func (m Measurement) clone() Measurement {
	return Measurement{
		AgeMonths:        m.AgeMonths,
		HeightCm:         copyFloat(m.HeightCm),
		WeightKg:         copyFloat(m.WeightKg),
		HeightPercentile: copyFloat(m.HeightPercentile),
		WeightPercentile: copyFloat(m.WeightPercentile),
	}
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
