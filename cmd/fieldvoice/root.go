package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/crewtrack/fieldvoice/internal/config"
	"github.com/crewtrack/fieldvoice/internal/interpret"
	"github.com/crewtrack/fieldvoice/internal/roster"
	"github.com/crewtrack/fieldvoice/pkg/types"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fieldvoice",
		Short: "Voice command interpreter for contractor field operations",
		Long: `FieldVoice turns spoken field reports into structured commands.

It classifies transcripts into time entries, task commands, and daily logs,
parses them against project and task rosters, and can run as a long-lived
capture server consuming a streaming speech source.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.AddCommand(newInterpretCommand())
	cmd.AddCommand(newClassifyCommand())
	cmd.AddCommand(newListenCommand())

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}

// newLogger builds the process logger for the given verbosity.
func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// loadConfig loads the config file at path. An empty path yields a zero
// config so roster and tuning flags can stand alone.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return &config.Config{}, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}
	return cfg, nil
}

// loadRosters reads the project and task roster files. Explicit paths
// override the config paths; an empty path yields an empty roster.
func loadRosters(cfg *config.Config, projectsPath, tasksPath string) (projects, tasks []types.RosterEntry, err error) {
	if projectsPath == "" {
		projectsPath = cfg.Rosters.ProjectsFile
	}
	if tasksPath == "" {
		tasksPath = cfg.Rosters.TasksFile
	}
	if projectsPath != "" {
		projects, err = roster.Load(projectsPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load projects roster: %w", err)
		}
	}
	if tasksPath != "" {
		tasks, err = roster.Load(tasksPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load tasks roster: %w", err)
		}
	}
	return projects, tasks, nil
}

// parseCommandType validates a --type flag value. Empty means classify.
func parseCommandType(s string) (interpret.CommandType, error) {
	switch t := interpret.CommandType(s); t {
	case "", interpret.CommandTimeEntry, interpret.CommandTask, interpret.CommandDailyLog:
		return t, nil
	default:
		return "", fmt.Errorf("unknown command type %q (want time_entry, task, or daily_log)", s)
	}
}
