package intent

import (
	"errors"
	"testing"

	"growth-mcp/internal/reference"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantAction Action
		wantErr    bool
	}{
		{"AddData", `{"action":"add_data","data":{"sex":"female","age_month":24,"height_cm":85,"weight_kg":11.5}}`, ActionAddData, false},
		{"AddDataWeightOnly", `{"action":"add_data","data":{"age_month":12,"weight_kg":9.8}}`, ActionAddData, false},
		{"AddDataNewborn", `{"action":"add_data","data":{"age_month":0,"height_cm":50}}`, ActionAddData, false},
		{"AddDataMissingAge", `{"action":"add_data","data":{"height_cm":85}}`, ActionAskForInfo, true},
		{"AddDataNoMeasurement", `{"action":"add_data","data":{"age_month":24}}`, ActionAskForInfo, true},
		{"AddDataStringAge", `{"action":"add_data","data":{"age_month":"24","height_cm":85}}`, ActionAskForInfo, true},
		{"AddDataFractionalAge", `{"action":"add_data","data":{"age_month":12.5,"height_cm":85}}`, ActionAskForInfo, true},
		{"AddDataNegativeAge", `{"action":"add_data","data":{"age_month":-1,"height_cm":85}}`, ActionAskForInfo, true},
		{"AddDataZeroHeight", `{"action":"add_data","data":{"age_month":12,"height_cm":0}}`, ActionAskForInfo, true},
		{"AddDataNoDataObject", `{"action":"add_data","data":[1,2]}`, ActionAskForInfo, true},
		{"GenerateReport", `{"action":"generate_report","data":{}}`, ActionGenerateReport, false},
		{"GenerateReportNoData", `{"action":"generate_report"}`, ActionGenerateReport, false},
		{"Reset", `{"action":"reset"}`, ActionReset, false},
		{"ResetUpperCase", `{"action":" RESET "}`, ActionReset, false},
		{"AskForInfo", `{"action":"ask_for_info","data":{"age_month":18}}`, ActionAskForInfo, false},
		{"Unknown", `{"action":"dance","data":{}}`, ActionAskForInfo, true},
		{"MissingAction", `{"data":{}}`, ActionAskForInfo, true},
		{"ActionWrongType", `{"action":7}`, ActionAskForInfo, true},
		{"NotJSON", `not json`, ActionAskForInfo, true},
		{"ExtraFields", `{"action":"reset","confidence":0.9,"data":{"foo":"bar"}}`, ActionReset, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.raw))
			if got == nil {
				t.Fatal("Parse() returned nil intent")
			}
			if got.Action() != tt.wantAction {
				t.Errorf("Action() = %s, want %s", got.Action(), tt.wantAction)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformed) {
				t.Errorf("error %v does not wrap ErrMalformed", err)
			}
		})
	}
}

func TestParseAddDataFields(t *testing.T) {
	got, err := Parse([]byte(`{"action":"add_data","data":{"sex":"Female","age_month":24.0,"height_cm":85.5,"weight_kg":"heavy"}}`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	add, ok := got.(AddData)
	if !ok {
		t.Fatalf("got %T, want AddData", got)
	}
	if add.Sex != reference.Female {
		t.Errorf("Sex = %q, want female", add.Sex)
	}
	if add.AgeMonths != 24 {
		t.Errorf("AgeMonths = %d, want 24", add.AgeMonths)
	}
	if add.HeightCm == nil || *add.HeightCm != 85.5 {
		t.Errorf("HeightCm = %v, want 85.5", add.HeightCm)
	}
	if add.WeightKg != nil {
		t.Errorf("WeightKg = %v, want nil for wrong type", *add.WeightKg)
	}
}

func TestParseAddDataIgnoresUnknownSex(t *testing.T) {
	got, _ := Parse([]byte(`{"action":"add_data","data":{"sex":"unknown","age_month":3,"weight_kg":6}}`))
	add, ok := got.(AddData)
	if !ok {
		t.Fatalf("got %T, want AddData", got)
	}
	if add.Sex != "" {
		t.Errorf("Sex = %q, want empty", add.Sex)
	}
}

func TestUnknownActionRecordsRequest(t *testing.T) {
	got, _ := FromMap(map[string]any{"action": "dance"})
	ask, ok := got.(AskForInfo)
	if !ok {
		t.Fatalf("got %T, want AskForInfo", got)
	}
	if ask.Requested != "dance" {
		t.Errorf("Requested = %q, want dance", ask.Requested)
	}
}
