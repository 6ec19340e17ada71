// Package assistant connects the pure dispatcher to a session store. It is the
// only place where a user's state is read, transitioned and written back.
package assistant

import (
	"errors"
	"strings"

	"growth-mcp/internal/dispatch"
	"growth-mcp/internal/intent"
	"growth-mcp/internal/reference"
	"growth-mcp/internal/session"
	"growth-mcp/internal/store"
	"growth-mcp/internal/visuals"

	"github.com/rs/zerolog/log"
)

var ErrMissingUser = errors.New("user id is required")

// Reply is what a transport sends back for one user turn.
type Reply struct {
	UserID   string            `json:"user_id"`
	Applied  intent.Action     `json:"applied"`
	Phase    session.Phase     `json:"phase"`
	History  int               `json:"history_size"`
	Response dispatch.Response `json:"response"`
	Charts   []string          `json:"charts,omitempty"`
	Warning  string            `json:"warning,omitempty"`
}

// Options tune an Assistant.
type Options struct {
	// MermaidCharts attaches text charts to chart responses.
	MermaidCharts bool
}

// Assistant handles user turns against a store.
type Assistant struct {
	table      *reference.Table
	dispatcher *dispatch.Dispatcher
	sessions   store.Store
	opts       Options
}

// New creates an Assistant.
func New(table *reference.Table, sessions store.Store, opts Options) *Assistant {
	return &Assistant{
		table:      table,
		dispatcher: dispatch.New(table),
		sessions:   sessions,
		opts:       opts,
	}
}

// Table returns the reference table the assistant scores against.
func (a *Assistant) Table() *reference.Table {
	return a.table
}

// HandleRaw parses a raw classifier payload and applies it.
func (a *Assistant) HandleRaw(userID string, raw []byte) (Reply, error) {
	in, parseErr := intent.Parse(raw)
	return a.handle(userID, in, parseErr)
}

// HandleMap applies an already decoded classifier payload.
func (a *Assistant) HandleMap(userID string, doc map[string]any) (Reply, error) {
	in, parseErr := intent.FromMap(doc)
	return a.handle(userID, in, parseErr)
}

// Handle applies a validated intent.
func (a *Assistant) Handle(userID string, in intent.Intent) (Reply, error) {
	return a.handle(userID, in, nil)
}

func (a *Assistant) handle(userID string, in intent.Intent, parseErr error) (Reply, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Reply{}, ErrMissingUser
	}

	if parseErr != nil {
		log.Debug().Err(parseErr).Str("user", userID).Msg("Intent degraded to ask_for_info")
	}

	var out dispatch.Outcome
	a.sessions.Update(userID, func(prior session.State) (session.State, bool) {
		out = a.dispatcher.Apply(prior, in)
		return out.State, out.Delete
	})

	reply := Reply{
		UserID:   userID,
		Applied:  out.Applied,
		Phase:    out.State.Phase(),
		History:  len(out.State.History),
		Response: out.Response,
	}
	if parseErr != nil {
		reply.Warning = parseErr.Error()
	}
	if a.opts.MermaidCharts && out.Response.Kind == dispatch.KindChart {
		reply.Charts = visuals.GenerateGrowthCharts(a.table, out.Response.Chart)
	}

	log.Info().
		Str("user", userID).
		Str("applied", string(out.Applied)).
		Str("kind", string(out.Response.Kind)).
		Int("history", reply.History).
		Bool("deleted", out.Delete).
		Int("sessions", a.sessions.Len()).
		Msg("Intent applied")

	return reply, nil
}

// Session returns a copy of the user's current state.
func (a *Assistant) Session(userID string) session.State {
	return a.sessions.Get(strings.TrimSpace(userID))
}

// Reset drops the user's state and returns the acknowledgment reply.
func (a *Assistant) Reset(userID string) (Reply, error) {
	return a.Handle(userID, intent.Reset{})
}
