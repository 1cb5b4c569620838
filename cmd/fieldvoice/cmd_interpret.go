package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/crewtrack/fieldvoice/internal/config"
	"github.com/crewtrack/fieldvoice/internal/interpret"
	"github.com/crewtrack/fieldvoice/internal/transcript"
	"github.com/crewtrack/fieldvoice/pkg/types"
)

// interpretation is one entry of interpret output.
type interpretation struct {
	Transcript string                `json:"transcript"`
	Type       interpret.CommandType `json:"type"`
	Result     any                   `json:"result"`
}

func newInterpretCommand() *cobra.Command {
	var (
		configPath   string
		forceType    string
		projectsPath string
		tasksPath    string
	)

	cmd := &cobra.Command{
		Use:   "interpret [transcript]...",
		Short: "Parse transcripts into structured field commands",
		Long: `Parse one or more transcripts into structured field commands.

Each transcript is classified (unless --type pins the command type) and
parsed against the project and task rosters. Results are written to stdout
as indented JSON, one object per transcript, in argument order.

Exit status is 1 when any transcript fails to parse and 2 on configuration
errors, so the command composes in scripts:

  fieldvoice interpret --projects projects.yaml \
      "log 4 hours framing at smith house" \
      "mark drywall installation complete"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, err := parseCommandType(forceType)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			projects, tasks, err := loadRosters(cfg, projectsPath, tasksPath)
			if err != nil {
				return err
			}

			corrector := transcript.New()
			vocabulary := make([]string, 0, len(projects)+len(tasks))
			for _, p := range projects {
				vocabulary = append(vocabulary, p.Name)
			}
			for _, task := range tasks {
				vocabulary = append(vocabulary, task.Name)
			}

			// Parsers are pure; fan the transcripts out and keep the
			// results in argument order.
			results := make([]interpretation, len(args))
			succeeded := make([]bool, len(args))
			var g errgroup.Group
			for i, raw := range args {
				g.Go(func() error {
					corrected, _ := corrector.Correct(raw, vocabulary)
					results[i], succeeded[i] = interpretOne(corrected, force, projects, tasks, cfg.Interpreter)
					return nil
				})
			}
			_ = g.Wait()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			failed := 0
			for i, r := range results {
				if err := enc.Encode(r); err != nil {
					return err
				}
				if !succeeded[i] {
					failed++
				}
			}
			if failed > 0 {
				return &ParseFailureError{Failed: failed}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config YAML")
	cmd.Flags().StringVarP(&forceType, "type", "t", "", "force command type (time_entry, task, daily_log)")
	cmd.Flags().StringVar(&projectsPath, "projects", "", "projects roster YAML (overrides config)")
	cmd.Flags().StringVar(&tasksPath, "tasks", "", "tasks roster YAML (overrides config)")

	return cmd
}

// interpretOne classifies and parses a single transcript.
func interpretOne(text string, force interpret.CommandType, projects, tasks []types.RosterEntry, tuning config.InterpreterConfig) (interpretation, bool) {
	cmdType := force
	if cmdType == "" {
		cmdType = interpret.Classify(text)
	}

	out := interpretation{Transcript: text, Type: cmdType}
	switch cmdType {
	case interpret.CommandTimeEntry:
		r := interpret.ParseTimeEntry(text, interpret.TimeEntryContext{
			Projects:  projects,
			MaxHours:  tuning.MaxHours,
			WarnHours: tuning.WarnHours,
		})
		out.Result = r
		return out, r.Result.Success
	case interpret.CommandTask:
		r := interpret.ParseTaskCommand(text, interpret.TaskContext{
			Tasks:           tasks,
			SuggestionFloor: tuning.SuggestionFloor,
			SuggestionLimit: tuning.SuggestionLimit,
		})
		out.Result = r
		return out, r.Result.Success
	default:
		r := interpret.ParseDailyLog(text, interpret.DailyLogContext{Projects: projects})
		out.Result = r
		return out, r.Result.Success
	}
}
