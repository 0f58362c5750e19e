package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/orchd/internal/adapter"
	"github.com/fyrsmithlabs/orchd/internal/config"
	"github.com/fyrsmithlabs/orchd/internal/engine"
	"github.com/fyrsmithlabs/orchd/internal/events"
	orchdhttp "github.com/fyrsmithlabs/orchd/internal/http"
	"github.com/fyrsmithlabs/orchd/internal/logging"
	"github.com/fyrsmithlabs/orchd/internal/registry"
	"github.com/fyrsmithlabs/orchd/internal/state"
	"github.com/fyrsmithlabs/orchd/internal/workflow"
)

var (
	runStudyID    string
	runTrialID    string
	runRepository string
	runIssue      int
	runOutput     string
	runMaxSteps   int
	runStrict     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive one trial to completion with the primary-action policy",
	Long: `Run one orchestration trial headlessly. At each step the engine's
primary (happy path) action is executed until the run reaches a terminal
phase or the step limit is hit. The final run state is written as JSON.

Examples:
  # Simulated run against the reference adapter
  orchd run --study pilot-1 --repo acme/widgets --issue 42

  # Use the GitHub adapter (token from config or ORCHD_GITHUB_TOKEN)
  orchd run --study pilot-1 --trial t-007 --repo acme/widgets --issue 42`,
	RunE: runTrial,
}

func init() {
	runCmd.Flags().StringVar(&runStudyID, "study", "", "study identifier (required)")
	runCmd.Flags().StringVar(&runTrialID, "trial", "", "trial identifier")
	runCmd.Flags().StringVar(&runRepository, "repo", "", "repository as owner/name (required)")
	runCmd.Flags().IntVar(&runIssue, "issue", 0, "issue number to work on")
	runCmd.Flags().StringVar(&runOutput, "output", "-", "file for the final run state JSON, - for stdout")
	runCmd.Flags().IntVar(&runMaxSteps, "max-steps", 50, "abort after this many actions")
	runCmd.Flags().BoolVar(&runStrict, "strict", false, "reject actions that are illegal in the current phase")
	_ = runCmd.MarkFlagRequired("study")
	_ = runCmd.MarkFlagRequired("repo")
}

func runTrial(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(logger) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	emitter, closeEmitter, err := buildEmitter(cfg, logger)
	if err != nil {
		return err
	}
	defer closeEmitter()

	exec, err := buildAdapter(ctx, cfg)
	if err != nil {
		return err
	}

	reg := registry.New(logger)
	reg.Register("sdlc", func() (engine.Plugin, error) {
		return engine.New(engine.Config{
			StudyID: runStudyID,
			TrialID: runTrialID,
			WorkItemSeed: state.WorkItem{
				Repository:  runRepository,
				IssueNumber: runIssue,
			},
			Adapter: exec,
			Emitter: emitter,
			Logger:  logger,
			Strict:  runStrict,
			Settings: map[string]any{
				"merge_method": cfg.GitHub.MergeMethod,
			},
		})
	})

	eng, err := reg.Create("sdlc")
	if err != nil {
		return err
	}

	tracker := orchdhttp.NewTracker()
	tracker.Add(eng)
	if cfg.Server.Addr != "" {
		server := orchdhttp.NewServer(tracker, logger)
		go func() {
			if err := server.Start(cfg.Server.Addr); err != nil {
				logger.Error("inspection server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	if err := drive(ctx, eng, logger); err != nil {
		return err
	}

	return writeRun(eng.Snapshot(), runOutput)
}

// drive executes the primary action for the current phase until the run is
// terminal or the step budget runs out. Individual action failures do not
// stop the loop: the engine keeps recording and the retry path stays in the
// caller's hands, so a persistently failing action hits the step limit and
// is marked failed explicitly.
func drive(ctx context.Context, eng engine.Plugin, logger *zap.Logger) error {
	for step := 0; !eng.IsComplete(); step++ {
		if err := ctx.Err(); err != nil {
			markFailed(ctx, eng, "canceled: "+err.Error())
			return nil
		}
		if step >= runMaxSteps {
			markFailed(ctx, eng, fmt.Sprintf("step limit of %d exceeded", runMaxSteps))
			return nil
		}

		def, ok := eng.PrimaryAction()
		if !ok {
			break
		}

		outcome := eng.ExecuteAction(ctx, engine.Action{
			Kind:   def.Kind,
			Params: eng.SuggestedParams(def),
		})
		if !outcome.Success {
			logger.Warn("action failed",
				zap.String("action", string(def.Kind)),
				zap.String("error", outcome.Error),
			)
		}
	}
	return nil
}

func markFailed(ctx context.Context, eng engine.Plugin, reason string) {
	eng.ExecuteAction(ctx, engine.Action{
		Kind:   workflow.ActionMarkFailed,
		Params: map[string]any{"reason": reason},
	})
}

// buildEmitter combines the zap emitter with NATS when configured.
func buildEmitter(cfg *config.Config, logger *zap.Logger) (events.Emitter, func(), error) {
	logEmitter := events.NewLogEmitter(logger)
	if cfg.Events.NATSURL == "" {
		return logEmitter, func() {}, nil
	}
	natsEmitter, err := events.NewNATSEmitter(cfg.Events.NATSURL)
	if err != nil {
		return nil, nil, err
	}
	return events.NewMulti(logEmitter, natsEmitter), natsEmitter.Close, nil
}

// buildAdapter picks the GitHub adapter when a token is configured, the
// reference adapter otherwise.
func buildAdapter(ctx context.Context, cfg *config.Config) (adapter.Adapter, error) {
	if !cfg.GitHub.Token.IsSet() {
		return adapter.NewSim(), nil
	}
	return adapter.NewGitHub(ctx, adapter.GitHubConfig{
		Token:             cfg.GitHub.Token.Value(),
		BaseURL:           cfg.GitHub.BaseURL,
		MergeMethod:       cfg.GitHub.MergeMethod,
		CIPollInterval:    cfg.GitHub.CIPollInterval.Duration(),
		CITimeout:         cfg.GitHub.CITimeout.Duration(),
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
	})
}

func writeRun(run *state.Run, output string) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	if output == "-" || output == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(output, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write run state: %w", err)
	}
	return nil
}
