package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/crewtrack/fieldvoice/internal/interpret"
)

func newClassifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [transcript]...",
		Short: "Classify transcripts by command type without parsing",
		Long: `Classify one or more transcripts into time_entry, task, or daily_log.

Only the classifier runs; no rosters are consulted and nothing is parsed.
Useful for inspecting how ambiguous phrasings will be routed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, transcript := range args {
				line := struct {
					Transcript string                `json:"transcript"`
					Type       interpret.CommandType `json:"type"`
				}{transcript, interpret.Classify(transcript)}
				if err := enc.Encode(line); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return cmd
}
