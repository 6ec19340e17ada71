package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"growth-mcp/internal/assistant"
	"growth-mcp/internal/store"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// replayTurn is one line of a replay transcript.
type replayTurn struct {
	UserID string          `json:"user_id"`
	Intent json.RawMessage `json:"intent"`
}

type replayResult struct {
	Line  int              `json:"line"`
	Reply *assistant.Reply `json:"reply,omitempty"`
	Error string           `json:"error,omitempty"`
}

func newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay [transcript.jsonl]",
		Short: "Replay a JSONL transcript of classified turns and print the replies",
		Long: `Each input line is {"user_id": "...", "intent": {"action": "...", "data": {...}}}.
Users are replayed concurrently, each user's turns strictly in file order. Replies are
written to stdout as JSONL in input order. Reads stdin when no file or "-" is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := io.Reader(os.Stdin)
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open transcript: %w", err)
				}
				defer f.Close()
				in = f
			}

			a := assistant.New(table, store.NewMemoryStore(), assistant.Options{MermaidCharts: cfg.EnableMermaidCharts})
			return replay(cmd.Context(), a, in, cmd.OutOrStdout(), cfg.ReplayConcurrency)
		},
	}
}

func replay(ctx context.Context, a *assistant.Assistant, r io.Reader, w io.Writer, limit int) error {
	var turns []replayTurn
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		var t replayTurn
		if len(line) > 0 {
			if err := json.Unmarshal(line, &t); err != nil {
				log.Warn().Err(err).Int("line", len(turns)+1).Msg("Skipping invalid JSON line in transcript")
			}
		}
		turns = append(turns, t)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading transcript: %w", err)
	}

	// Group line indexes per user, keeping first-seen user order.
	byUser := make(map[string][]int)
	var users []string
	for i, t := range turns {
		if _, ok := byUser[t.UserID]; !ok {
			users = append(users, t.UserID)
		}
		byUser[t.UserID] = append(byUser[t.UserID], i)
	}

	results := make([]replayResult, len(turns))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, user := range users {
		lines := byUser[user]
		g.Go(func() error {
			for _, i := range lines {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = replayResult{Line: i + 1}
				reply, err := a.HandleRaw(turns[i].UserID, turns[i].Intent)
				if err != nil {
					results[i].Error = err.Error()
					continue
				}
				results[i].Reply = &reply
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to write reply: %w", err)
		}
	}
	log.Info().Int("turns", len(turns)).Int("users", len(users)).Msg("Replay finished")
	return nil
}
