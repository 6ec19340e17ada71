package dispatch

import (
	"testing"

	"growth-mcp/internal/intent"
	"growth-mcp/internal/reference"
	"growth-mcp/internal/session"
)

func ptr(v float64) *float64 { return &v }

func newDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	table, err := reference.Default()
	if err != nil {
		t.Fatalf("reference.Default() error: %v", err)
	}
	return New(table)
}

func addData(sex reference.Sex, age int, h, w *float64) intent.AddData {
	return intent.AddData{Sex: sex, AgeMonths: age, HeightCm: h, WeightKg: w}
}

func TestAddDataTransitions(t *testing.T) {
	d := newDispatcher(t)

	out := d.Apply(session.Empty(), addData(reference.Female, 12, ptr(74), ptr(9)))
	if out.Delete {
		t.Fatal("add_data must not delete the session")
	}
	if out.Response.Kind != KindText || out.Response.Message != msgNeedMoreData {
		t.Errorf("first add response = %+v", out.Response)
	}
	if out.State.Sex != reference.Female {
		t.Errorf("Sex = %q, want female", out.State.Sex)
	}
	if got := out.State.Phase(); got != session.PhaseCollecting {
		t.Errorf("Phase() = %s, want collecting", got)
	}
	if out.State.History[0].HeightPercentile == nil || out.State.History[0].WeightPercentile == nil {
		t.Error("expected the first measurement to be scored")
	}

	out = d.Apply(out.State, addData(reference.Male, 15, ptr(77), nil))
	if out.Response.Message != msgReady {
		t.Errorf("second add message = %q, want ready", out.Response.Message)
	}
	if out.State.Sex != reference.Female {
		t.Errorf("sex overwritten to %q", out.State.Sex)
	}
	if got := out.State.Phase(); got != session.PhaseReady {
		t.Errorf("Phase() = %s, want ready", got)
	}
}

func TestAddDataWithoutSexIsNotBackfilled(t *testing.T) {
	d := newDispatcher(t)

	out := d.Apply(session.Empty(), addData("", 12, ptr(74), nil))
	if out.State.History[0].HeightPercentile != nil {
		t.Fatal("measurement without sex must not be scored")
	}

	out = d.Apply(out.State, addData(reference.Male, 15, ptr(77), nil))
	if out.State.History[0].HeightPercentile != nil {
		t.Error("earlier measurement was backfilled")
	}
	if out.State.History[1].HeightPercentile == nil {
		t.Error("measurement after sex was adopted should be scored")
	}
}

func TestAddDataMissingReferenceDegradesToNull(t *testing.T) {
	d := newDispatcher(t)

	out := d.Apply(session.Empty(), addData(reference.Male, 120, ptr(140), ptr(30)))
	if len(out.State.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(out.State.History))
	}
	m := out.State.History[0]
	if m.HeightPercentile != nil || m.WeightPercentile != nil {
		t.Error("untabulated age must leave percentiles unset")
	}
}

func TestAddDataIsNotDeduplicated(t *testing.T) {
	d := newDispatcher(t)
	in := addData(reference.Female, 12, ptr(74), nil)

	state := session.Empty()
	for i := 0; i < 2; i++ {
		state = d.Apply(state, in).State
	}
	if len(state.History) != 2 {
		t.Errorf("history length = %d, want 2", len(state.History))
	}
}

func TestGenerateReport(t *testing.T) {
	d := newDispatcher(t)

	state := session.Empty()
	state = d.Apply(state, addData(reference.Female, 12, ptr(74), ptr(9))).State
	state = d.Apply(state, addData("", 18, ptr(81), ptr(10.2))).State

	out := d.Apply(state, intent.GenerateReport{})
	if !out.Delete {
		t.Error("report must delete the session")
	}
	if out.State.Phase() != session.PhaseEmpty {
		t.Errorf("state after report = %+v, want empty", out.State)
	}
	if out.Response.Kind != KindChart || out.Response.Chart == nil {
		t.Fatalf("response = %+v, want chart", out.Response)
	}

	chart := out.Response.Chart
	if chart.TargetAge != 30 {
		t.Errorf("TargetAge = %d, want 30", chart.TargetAge)
	}
	if chart.HeightForecast == nil || chart.WeightForecast == nil {
		t.Fatal("expected both forecasts")
	}
	if len(chart.History) != 2 {
		t.Errorf("history snapshot length = %d, want 2", len(chart.History))
	}
	if chart.Sex != reference.Female {
		t.Errorf("chart sex = %q", chart.Sex)
	}
	if chart.Summary != reportSummary(2) {
		t.Errorf("Summary = %q", chart.Summary)
	}
}

func TestGenerateReportTooEarly(t *testing.T) {
	d := newDispatcher(t)

	states := []session.State{
		session.Empty(),
		session.Empty().AdoptSex(reference.Male),
		d.Apply(session.Empty(), addData(reference.Male, 12, ptr(75), nil)).State,
	}
	for _, prior := range states {
		out := d.Apply(prior, intent.GenerateReport{})
		if out.Delete {
			t.Errorf("history %d: report must not clear state", len(prior.History))
		}
		if out.Response.Kind != KindText {
			t.Errorf("history %d: response kind = %s, want text", len(prior.History), out.Response.Kind)
		}
		if out.Applied != intent.ActionAskForInfo {
			t.Errorf("history %d: applied %s, want ask_for_info", len(prior.History), out.Applied)
		}
		if len(out.State.History) != len(prior.History) || out.State.Sex != prior.Sex {
			t.Errorf("history %d: state changed to %+v", len(prior.History), out.State)
		}
	}
}

func TestReset(t *testing.T) {
	d := newDispatcher(t)

	state := d.Apply(session.Empty(), addData(reference.Male, 12, ptr(75), nil)).State
	state = d.Apply(state, addData(reference.Male, 15, ptr(78), nil)).State

	for _, prior := range []session.State{session.Empty(), state} {
		out := d.Apply(prior, intent.Reset{})
		if !out.Delete || out.State.Phase() != session.PhaseEmpty {
			t.Errorf("reset outcome = %+v", out)
		}
		if out.Response.Kind != KindText || out.Response.Message != msgReset {
			t.Errorf("reset response = %+v", out.Response)
		}
	}
}

func TestAskForInfo(t *testing.T) {
	d := newDispatcher(t)

	tests := []struct {
		name  string
		prior session.State
		in    intent.Intent
		want  string
	}{
		{"NoSex", session.Empty(), intent.AskForInfo{}, msgGreeting},
		{"KnownSex", session.Empty().AdoptSex(reference.Female), intent.AskForInfo{}, msgNextData},
		{"Unknown", session.Empty(), intent.AskForInfo{Requested: "dance"}, msgGreeting},
		{"NilIntent", session.Empty(), nil, msgGreeting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := d.Apply(tt.prior, tt.in)
			if out.Response.Message != tt.want {
				t.Errorf("message = %q, want %q", out.Response.Message, tt.want)
			}
			if out.Delete {
				t.Error("ask_for_info must not delete")
			}
			if out.State.Sex != tt.prior.Sex {
				t.Error("ask_for_info must not mutate state")
			}
		})
	}
}

func TestReportWithoutReferenceTable(t *testing.T) {
	d := New(nil)

	state := d.Apply(session.Empty(), addData(reference.Male, 12, ptr(75), nil)).State
	state = d.Apply(state, addData(reference.Male, 15, ptr(78), nil)).State

	out := d.Apply(state, intent.GenerateReport{})
	if out.Response.Kind != KindChart {
		t.Fatalf("response kind = %s, want chart", out.Response.Kind)
	}
	if out.Response.Chart.HeightForecast != nil {
		t.Error("expected no forecast without reference data")
	}
}

func TestChartOnlyAfterTwoAdds(t *testing.T) {
	d := newDispatcher(t)
	seq := []intent.Intent{
		intent.GenerateReport{},
		addData(reference.Female, 6, ptr(66), nil),
		intent.GenerateReport{},
		intent.AskForInfo{},
		addData(reference.Female, 9, ptr(70), nil),
		intent.GenerateReport{},
	}

	state := session.Empty()
	var kinds []Kind
	for _, in := range seq {
		out := d.Apply(state, in)
		kinds = append(kinds, out.Response.Kind)
		state = out.State
	}

	for i, k := range kinds[:len(kinds)-1] {
		if k == KindChart {
			t.Errorf("step %d produced a chart", i)
		}
	}
	if kinds[len(kinds)-1] != KindChart {
		t.Errorf("final step kind = %s, want chart", kinds[len(kinds)-1])
	}
}

func TestAddDataWithoutMeasurementIsRejected(t *testing.T) {
	d := newDispatcher(t)

	for _, in := range []intent.AddData{
		{AgeMonths: 12},
		{AgeMonths: -3, HeightCm: ptr(70)},
	} {
		out := d.Apply(session.Empty(), in)
		if out.Applied != intent.ActionAskForInfo || len(out.State.History) != 0 {
			t.Errorf("Apply(%+v) = %+v, want ask_for_info without history", in, out)
		}
	}
}
