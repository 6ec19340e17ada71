package commands

import (
	"fmt"

	"growth-mcp/internal/reference"
	"growth-mcp/internal/stats"

	"github.com/spf13/cobra"
)

func newPercentileCmd() *cobra.Command {
	var (
		sexLabel string
		measure  string
		age      int
		value    float64
	)

	cmd := &cobra.Command{
		Use:   "percentile",
		Short: "Score a single measurement against the reference table",
		RunE: func(cmd *cobra.Command, args []string) error {
			sex, ok := reference.ParseSex(sexLabel)
			if !ok {
				return fmt.Errorf("%w: %q", reference.ErrUnknownSex, sexLabel)
			}
			m := reference.Measure(measure)
			if !m.Valid() {
				return fmt.Errorf("%w: %q", reference.ErrUnknownMeasure, measure)
			}

			p, ok := stats.PercentileAt(table, sex, m, age, value)
			if !ok {
				return fmt.Errorf("no reference data for %s %s at %d months", sex, m, age)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.1f\n", p)
			return nil
		},
	}

	cmd.Flags().StringVar(&sexLabel, "sex", "", "male or female")
	cmd.Flags().StringVar(&measure, "measure", string(reference.Height), "height or weight")
	cmd.Flags().IntVar(&age, "age", 0, "age in whole months")
	cmd.Flags().Float64Var(&value, "value", 0, "height in cm or weight in kg")
	_ = cmd.MarkFlagRequired("sex")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}
