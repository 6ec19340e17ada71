package mcp

import (
	"strings"

	"growth-mcp/internal/intent"
	"growth-mcp/internal/reference"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	sexEnum     = []string{string(reference.Male), string(reference.Female)}
	measureEnum = []string{string(reference.Height), string(reference.Weight)}
)

func (s *Server) registerTools() error {
	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name: "submit_intent",
		Description: "Apply one classified user turn to the child's growth conversation. " +
			"'action' is one of " + actionList() + "; 'data' may carry sex (male/female), age_month, height_cm, weight_kg. " +
			"Unknown or malformed actions are answered with a prompt for more information instead of an error.\n\n" +
			"Guidance: Show 'response.message' to the user verbatim. A 'chart' response means the conversation was reported and cleared; render 'charts' if present.",
	}, s.handleSubmitIntent)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "get_session",
		Description: "Return the accumulated sex and measurement history for a user, with percentiles where they could be scored.",
	}, s.handleGetSession)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "reset_session",
		Description: "Discard a user's conversation and start over.",
	}, s.handleResetSession)

	scoreSchema, err := inputSchema[scoreInput](map[string][]string{"sex": sexEnum, "measure": measureEnum})
	if err != nil {
		return err
	}
	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name: "score_measurement",
		Description: "Convert a raw height (cm) or weight (kg) at an age in months into a percentile of the reference population (LMS method). " +
			"Only ages tabulated exactly in the reference are scored; 'scored' is false otherwise.",
		InputSchema: scoreSchema,
	}, s.handleScoreMeasurement)

	valueSchema, err := inputSchema[valueInput](map[string][]string{"sex": sexEnum, "measure": measureEnum})
	if err != nil {
		return err
	}
	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name: "value_at_percentile",
		Description: "Return the height (cm) or weight (kg) at a given percentile and age. " +
			"Percentiles are clamped to [0.001, 99.999]; untabulated ages use the nearest tabulated age.",
		InputSchema: valueSchema,
	}, s.handleValueAtPercentile)

	return nil
}

func actionList() string {
	names := make([]string, len(intent.Actions))
	for i, a := range intent.Actions {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}
