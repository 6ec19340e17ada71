package mcp

import (
	"context"
	"fmt"
	"strings"

	"growth-mcp/internal/assistant"
	"growth-mcp/internal/reference"
	"growth-mcp/internal/session"
	"growth-mcp/internal/stats"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

type submitIntentInput struct {
	UserID string `json:"user_id" jsonschema:"stable identity of the chatting user"`
	Action any    `json:"action,omitempty" jsonschema:"classified action"`
	Data   any    `json:"data,omitempty" jsonschema:"extracted fields: sex, age_month, height_cm, weight_kg"`
}

type userInput struct {
	UserID string `json:"user_id" jsonschema:"stable identity of the chatting user"`
}

type sessionOutput struct {
	UserID string        `json:"user_id"`
	Phase  session.Phase `json:"phase"`
	State  session.State `json:"state"`
}

type scoreInput struct {
	Sex       string  `json:"sex"`
	Measure   string  `json:"measure"`
	AgeMonths int     `json:"age_month" jsonschema:"age in whole months"`
	Value     float64 `json:"value" jsonschema:"height in cm or weight in kg"`
}

type scoreOutput struct {
	Scored     bool    `json:"scored"`
	Percentile float64 `json:"percentile,omitempty"`
	ZScore     float64 `json:"z_score,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

type valueInput struct {
	Sex        string  `json:"sex"`
	Measure    string  `json:"measure"`
	AgeMonths  int     `json:"age_month" jsonschema:"age in whole months"`
	Percentile float64 `json:"percentile" jsonschema:"percentile between 0 and 100"`
}

type valueOutput struct {
	Value        float64 `json:"value"`
	Unit         string  `json:"unit"`
	ReferenceAge int     `json:"reference_age"`
	Percentile   float64 `json:"percentile"`
}

func (s *Server) handleSubmitIntent(ctx context.Context, req *mcpsdk.CallToolRequest, in submitIntentInput) (*mcpsdk.CallToolResult, assistant.Reply, error) {
	// Action and data stay untyped so a malformed classifier payload reaches
	// the intent parser and degrades to ask_for_info.
	doc := map[string]any{"action": in.Action, "data": in.Data}
	reply, err := s.assistant.HandleMap(in.UserID, doc)
	if err != nil {
		return nil, assistant.Reply{}, err
	}
	return nil, reply, nil
}

func (s *Server) handleGetSession(ctx context.Context, req *mcpsdk.CallToolRequest, in userInput) (*mcpsdk.CallToolResult, sessionOutput, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, sessionOutput{}, assistant.ErrMissingUser
	}
	st := s.assistant.Session(userID)
	return nil, sessionOutput{UserID: userID, Phase: st.Phase(), State: st}, nil
}

func (s *Server) handleResetSession(ctx context.Context, req *mcpsdk.CallToolRequest, in userInput) (*mcpsdk.CallToolResult, assistant.Reply, error) {
	reply, err := s.assistant.Reset(in.UserID)
	if err != nil {
		return nil, assistant.Reply{}, err
	}
	return nil, reply, nil
}

func (s *Server) handleScoreMeasurement(ctx context.Context, req *mcpsdk.CallToolRequest, in scoreInput) (*mcpsdk.CallToolResult, scoreOutput, error) {
	sex, measure, err := parseSeries(in.Sex, in.Measure)
	if err != nil {
		return nil, scoreOutput{}, err
	}

	ref, ok := s.assistant.Table().Lookup(sex, measure, in.AgeMonths)
	if !ok {
		log.Debug().Str("sex", string(sex)).Str("measure", string(measure)).Int("age", in.AgeMonths).Msg("No reference entry for exact age")
		return nil, scoreOutput{Reason: fmt.Sprintf("no reference data at %d months", in.AgeMonths)}, nil
	}
	p, ok := stats.PercentileOf(in.Value, &ref)
	if !ok {
		return nil, scoreOutput{Reason: "value cannot be scored"}, nil
	}
	return nil, scoreOutput{Scored: true, Percentile: p, ZScore: stats.ZScore(in.Value, ref)}, nil
}

func (s *Server) handleValueAtPercentile(ctx context.Context, req *mcpsdk.CallToolRequest, in valueInput) (*mcpsdk.CallToolResult, valueOutput, error) {
	sex, measure, err := parseSeries(in.Sex, in.Measure)
	if err != nil {
		return nil, valueOutput{}, err
	}

	ref, refAge, ok := s.assistant.Table().Resolve(sex, measure, in.AgeMonths)
	if !ok {
		return nil, valueOutput{}, fmt.Errorf("no reference data for %s %s", sex, measure)
	}
	v, ok := stats.ValueAtPercentile(in.Percentile, &ref)
	if !ok {
		return nil, valueOutput{}, fmt.Errorf("percentile %v has no value at %d months", in.Percentile, refAge)
	}
	return nil, valueOutput{
		Value:        v,
		Unit:         measure.Unit(),
		ReferenceAge: refAge,
		Percentile:   stats.ClampPercentile(in.Percentile),
	}, nil
}

func parseSeries(sexLabel, measureLabel string) (reference.Sex, reference.Measure, error) {
	sex, ok := reference.ParseSex(sexLabel)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", reference.ErrUnknownSex, sexLabel)
	}
	measure := reference.Measure(strings.ToLower(strings.TrimSpace(measureLabel)))
	if !measure.Valid() {
		return "", "", fmt.Errorf("%w: %q", reference.ErrUnknownMeasure, measureLabel)
	}
	return sex, measure, nil
}
