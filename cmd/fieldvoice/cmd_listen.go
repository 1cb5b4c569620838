package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/crewtrack/fieldvoice/internal/capture"
	"github.com/crewtrack/fieldvoice/internal/config"
	"github.com/crewtrack/fieldvoice/internal/health"
	"github.com/crewtrack/fieldvoice/internal/interpret"
	"github.com/crewtrack/fieldvoice/internal/observe"
	"github.com/crewtrack/fieldvoice/internal/resilience"
	"github.com/crewtrack/fieldvoice/internal/transcript"
	"github.com/crewtrack/fieldvoice/pkg/provider/speech"
	"github.com/crewtrack/fieldvoice/pkg/provider/speech/mock"
	"github.com/crewtrack/fieldvoice/pkg/provider/speech/wstranscript"
	"github.com/crewtrack/fieldvoice/pkg/types"
)

const shutdownTimeout = 15 * time.Second

func newListenCommand() *cobra.Command {
	var (
		configPath string
		forceType  string
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Run the capture server",
		Long: `Run the long-lived capture server.

The server consumes the configured speech source, interprets each completed
capture, and writes the structured outcome to stdout as JSON. Health probes
and Prometheus metrics are served on server.listen_addr, and the config file
is watched for hot-reloadable changes (log level, rosters, parser tuning).

Each line read on stdin triggers one capture cycle. With the mock source the
typed line is delivered as the capture's final transcript, which makes
listen a convenient dry-run harness. With the websocket source the line
content is ignored; pressing Enter opens a capture against the recognizer
gateway.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListen(configPath, forceType)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config YAML")
	cmd.Flags().StringVarP(&forceType, "type", "t", "", "force command type (time_entry, task, daily_log)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runListen(configPath, forceType string) error {
	force, err := parseCommandType(forceType)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}()

	// ── Speech source ─────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinSources(reg)

	source, err := reg.CreateSource(cfg.Speech)
	if err != nil {
		return fmt.Errorf("create speech source: %w", err)
	}

	// ── Hot-reloadable state ──────────────────────────────────────────────────
	ls := &listenState{cfg: cfg}
	if err := ls.reloadRosters(); err != nil {
		return err
	}

	ctrl := capture.New(source,
		capture.WithLogger(logger),
		capture.WithMetrics(observe.DefaultMetrics()),
		capture.WithCorrector(transcript.New()),
		capture.WithStateCallback(func(s capture.State) {
			slog.Debug("capture state", "state", string(s))
		}),
		capture.WithResultCallback(func(o *capture.Outcome) {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(o); err != nil {
				slog.Error("encode outcome", "err", err)
			}
		}),
		capture.WithErrorCallback(func(code types.ErrorCode, message string) {
			fmt.Fprintln(os.Stderr, message)
		}),
	)

	watcher, err := config.NewWatcher(configPath, func(_, new *config.Config, diff config.ConfigDiff) {
		ls.apply(new, diff)
	})
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer watcher.Stop()

	slog.Info("fieldvoice listening",
		"config", configPath,
		"source", string(cfg.Speech.Source),
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", string(cfg.Server.LogLevel),
	)

	// ── Serve ─────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Server.ListenAddr != "" {
		srv := newHTTPServer(cfg.Server.ListenAddr, ls)
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	g.Go(func() error {
		return captureLoop(gctx, ctrl, source, ls, force)
	})

	err = g.Wait()
	ctrl.Cancel()
	ctrl.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// registerBuiltinSources wires the shipped speech source implementations
// into the registry.
func registerBuiltinSources(reg *config.Registry) {
	reg.RegisterSource(config.SourceMock, func(_ config.SpeechConfig) (speech.Source, error) {
		return &mock.Source{}, nil
	})
	reg.RegisterSource(config.SourceWebSocket, func(sc config.SpeechConfig) (speech.Source, error) {
		var opts []wstranscript.Option
		if sc.Language != "" {
			opts = append(opts, wstranscript.WithLanguage(sc.Language))
		}
		if sc.Token != "" {
			opts = append(opts, wstranscript.WithToken(sc.Token))
		}
		primary, err := wstranscript.New(sc.URL, opts...)
		if err != nil {
			return nil, err
		}
		if sc.FallbackURL == "" {
			return primary, nil
		}
		backup, err := wstranscript.New(sc.FallbackURL, opts...)
		if err != nil {
			return nil, err
		}
		fb := resilience.NewSourceFallback(primary, sc.URL, resilience.GroupConfig{})
		fb.Add(sc.FallbackURL, backup)
		return fb, nil
	})
}

// captureLoop drives one capture cycle per line read from stdin until the
// context is cancelled or stdin closes.
func captureLoop(ctx context.Context, ctrl *capture.Controller, source speech.Source, ls *listenState, force interpret.CommandType) error {
	mockSrc, isMock := source.(*mock.Source)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	if isMock {
		fmt.Fprintln(os.Stderr, "ready: type a transcript and press Enter (Ctrl-D to exit)")
	} else {
		fmt.Fprintln(os.Stderr, "ready: press Enter to start a capture (Ctrl-D to exit)")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}

			var st *mock.Stream
			if isMock {
				st = mock.NewStream()
				mockSrc.Stream = st
			}

			if err := ctrl.StartListening(ctx, ls.listenRequest(force)); err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			if isMock {
				if line != "" {
					st.Emit(types.Final(line))
				}
				st.Emit(types.End())
				st.CloseEvents()
			}
			ctrl.Wait()
		}
	}
}

// newHTTPServer builds the health and metrics server.
func newHTTPServer(addr string, ls *listenState) *http.Server {
	h := health.New(
		health.Checker{Name: "rosters", Check: func(_ context.Context) error {
			_, _, err := loadRosters(ls.current(), "", "")
			return err
		}},
	)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// listenState is the hot-reloadable portion of the listen server. The config
// watcher swaps it; each capture cycle snapshots it.
type listenState struct {
	mu       sync.Mutex
	cfg      *config.Config
	projects []types.RosterEntry
	tasks    []types.RosterEntry
}

func (ls *listenState) current() *config.Config {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.cfg
}

// reloadRosters re-reads the roster files named by the current config.
func (ls *listenState) reloadRosters() error {
	projects, tasks, err := loadRosters(ls.current(), "", "")
	if err != nil {
		return err
	}
	ls.mu.Lock()
	ls.projects, ls.tasks = projects, tasks
	ls.mu.Unlock()
	return nil
}

// apply is the config watcher callback.
func (ls *listenState) apply(new *config.Config, diff config.ConfigDiff) {
	if !diff.Any() {
		return
	}
	ls.mu.Lock()
	ls.cfg = new
	ls.mu.Unlock()

	if diff.LogLevelChanged {
		slog.SetDefault(newLogger(diff.NewLogLevel))
		slog.Info("log level changed", "level", string(diff.NewLogLevel))
	}
	if diff.RostersChanged {
		if err := ls.reloadRosters(); err != nil {
			slog.Error("reload rosters", "err", err)
		} else {
			slog.Info("rosters reloaded")
		}
	}
	if diff.InterpreterChanged {
		slog.Info("interpreter tuning updated")
	}
	if diff.SpeechChanged {
		slog.Warn("speech source settings changed; restart to apply")
	}
}

// listenRequest snapshots the current config into a capture request.
func (ls *listenState) listenRequest(force interpret.CommandType) capture.ListenRequest {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return capture.ListenRequest{
		Force:           force,
		Projects:        ls.projects,
		Tasks:           ls.tasks,
		Hints:           ls.cfg.Speech.Hints,
		Language:        ls.cfg.Speech.Language,
		MaxHours:        ls.cfg.Interpreter.MaxHours,
		WarnHours:       ls.cfg.Interpreter.WarnHours,
		SuggestionFloor: ls.cfg.Interpreter.SuggestionFloor,
		SuggestionLimit: ls.cfg.Interpreter.SuggestionLimit,
	}
}
