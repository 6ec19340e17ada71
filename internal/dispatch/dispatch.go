// Package dispatch applies a classified user intent to a conversation state.
//
// Apply is a pure function of its inputs: it never performs I/O and never
// returns an error. Every problem it meets (missing reference data, a report
// requested too early, a malformed intent) degrades to a prompt for more
// information.
package dispatch

import (
	"growth-mcp/internal/forecast"
	"growth-mcp/internal/intent"
	"growth-mcp/internal/reference"
	"growth-mcp/internal/session"
)

// Kind distinguishes the response descriptors.
type Kind string

const (
	KindText  Kind = "text"
	KindChart Kind = "chart"
)

// Chart is the rendering request handed to the presentation layer.
type Chart struct {
	Title          string                `json:"title"`
	Summary        string                `json:"summary"`
	RestartLabel   string                `json:"restart_label"`
	Sex            reference.Sex         `json:"sex,omitempty"`
	TargetAge      int                   `json:"target_age"`
	HeightForecast *forecast.Projection  `json:"height_forecast,omitempty"`
	WeightForecast *forecast.Projection  `json:"weight_forecast,omitempty"`
	History        []session.Measurement `json:"history"`
}

// Response is what the caller shows the user.
type Response struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message,omitempty"`
	Chart   *Chart `json:"chart,omitempty"`
}

// Outcome is the result of one transition. When Delete is set the caller must
// drop the stored session; otherwise it must persist State.
type Outcome struct {
	Applied  intent.Action `json:"applied"`
	State    session.State `json:"state"`
	Delete   bool          `json:"delete"`
	Response Response      `json:"response"`
}

// Dispatcher holds the reference data transitions score against.
type Dispatcher struct {
	table *reference.Table
}

// New creates a Dispatcher. A nil table is allowed; nothing gets scored.
func New(table *reference.Table) *Dispatcher {
	return &Dispatcher{table: table}
}

// Apply runs one transition.
func (d *Dispatcher) Apply(prior session.State, in intent.Intent) Outcome {
	if prior.History == nil {
		prior.History = []session.Measurement{}
	}

	switch v := in.(type) {
	case intent.AddData:
		if v.AgeMonths >= 0 && (v.HeightCm != nil || v.WeightKg != nil) {
			return d.addData(prior, v)
		}
	case intent.GenerateReport:
		if out, ok := d.report(prior); ok {
			return out
		}
	case intent.Reset:
		return Outcome{
			Applied:  intent.ActionReset,
			State:    session.Empty(),
			Delete:   true,
			Response: text(msgReset),
		}
	}
	return askForInfo(prior)
}

func (d *Dispatcher) addData(prior session.State, in intent.AddData) Outcome {
	next := prior.AdoptSex(in.Sex)
	m := session.NewMeasurement(d.table, next.Sex, in.AgeMonths, in.HeightCm, in.WeightKg)
	next = next.Append(m)

	msg := msgReady
	if len(next.History) < session.MinReportHistory {
		msg = msgNeedMoreData
	}
	return Outcome{
		Applied:  intent.ActionAddData,
		State:    next,
		Response: text(msg),
	}
}

func (d *Dispatcher) report(prior session.State) (Outcome, bool) {
	res, err := forecast.Project(d.table, prior)
	if err != nil {
		return Outcome{}, false
	}

	chart := &Chart{
		Title:          chartTitle,
		Summary:        reportSummary(len(res.History)),
		RestartLabel:   chartRestart,
		Sex:            prior.Sex,
		TargetAge:      res.TargetAge,
		HeightForecast: res.Height,
		WeightForecast: res.Weight,
		History:        res.History,
	}
	return Outcome{
		Applied:  intent.ActionGenerateReport,
		State:    session.Empty(),
		Delete:   true,
		Response: Response{Kind: KindChart, Message: chart.Summary, Chart: chart},
	}, true
}

func askForInfo(prior session.State) Outcome {
	msg := msgGreeting
	if prior.Sex != "" {
		msg = msgNextData
	}
	return Outcome{
		Applied:  intent.ActionAskForInfo,
		State:    prior,
		Response: text(msg),
	}
}

func text(msg string) Response {
	return Response{Kind: KindText, Message: msg}
}
