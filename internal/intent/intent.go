// Package intent converts the loosely typed {action, data} payload produced by
// the external classifier into a closed set of actions the dispatcher handles.
package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"growth-mcp/internal/reference"
)

// Action names the classifier vocabulary.
type Action string

const (
	ActionAddData        Action = "add_data"
	ActionGenerateReport Action = "generate_report"
	ActionReset          Action = "reset"
	ActionAskForInfo     Action = "ask_for_info"
)

// Actions lists the recognised actions.
var Actions = []Action{ActionAddData, ActionGenerateReport, ActionReset, ActionAskForInfo}

// ErrMalformed marks a payload that could not be turned into its declared action.
var ErrMalformed = errors.New("malformed intent")

// Intent is one of AddData, GenerateReport, Reset or AskForInfo.
type Intent interface {
	Action() Action
	isIntent()
}

// AddData carries a new measurement. AgeMonths is always set and at least one
// of HeightCm and WeightKg is non-nil.
type AddData struct {
	Sex       reference.Sex
	AgeMonths int
	HeightCm  *float64
	WeightKg  *float64
}

// GenerateReport requests the forecast and chart.
type GenerateReport struct{}

// Reset clears the conversation.
type Reset struct{}

// AskForInfo is the conservative fallback: no state change, prompt the user.
// Requested records the action that was asked for when it degraded here.
type AskForInfo struct {
	Requested Action
}

func (AddData) Action() Action        { return ActionAddData }
func (GenerateReport) Action() Action { return ActionGenerateReport }
func (Reset) Action() Action          { return ActionReset }
func (AskForInfo) Action() Action     { return ActionAskForInfo }

func (AddData) isIntent()        {}
func (GenerateReport) isIntent() {}
func (Reset) isIntent()          {}
func (AskForInfo) isIntent()     {}

// Parse decodes a raw classifier payload. It always returns a usable Intent;
// the error explains why the payload degraded to AskForInfo.
func Parse(raw []byte) (Intent, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return AskForInfo{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return FromMap(doc)
}

// FromMap validates an already decoded payload. Missing or extra fields are
// tolerated; fields of the wrong type are treated as absent.
func FromMap(doc map[string]any) (Intent, error) {
	name, _ := doc["action"].(string)
	action := Action(strings.ToLower(strings.TrimSpace(name)))
	data, _ := doc["data"].(map[string]any)

	switch action {
	case ActionAddData:
		return parseAddData(data)
	case ActionGenerateReport:
		return GenerateReport{}, nil
	case ActionReset:
		return Reset{}, nil
	case ActionAskForInfo:
		return AskForInfo{}, nil
	case "":
		return AskForInfo{}, fmt.Errorf("%w: missing action", ErrMalformed)
	default:
		return AskForInfo{Requested: action}, fmt.Errorf("%w: unknown action %q", ErrMalformed, name)
	}
}

func parseAddData(data map[string]any) (Intent, error) {
	age, ok := ageField(data["age_month"])
	if !ok {
		return AskForInfo{Requested: ActionAddData}, fmt.Errorf("%w: add_data without a valid age_month", ErrMalformed)
	}

	in := AddData{
		AgeMonths: age,
		HeightCm:  measurementField(data["height_cm"]),
		WeightKg:  measurementField(data["weight_kg"]),
	}
	if in.HeightCm == nil && in.WeightKg == nil {
		return AskForInfo{Requested: ActionAddData}, fmt.Errorf("%w: add_data without height_cm or weight_kg", ErrMalformed)
	}
	if s, ok := data["sex"].(string); ok {
		in.Sex, _ = reference.ParseSex(s)
	}
	return in, nil
}

// ageField accepts whole, non-negative JSON numbers.
func ageField(v any) (int, bool) {
	f, ok := number(v)
	if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// measurementField accepts positive, finite JSON numbers.
func measurementField(v any) *float64 {
	f, ok := number(v)
	if !ok || !(f > 0) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	}
	return 0, false
}
