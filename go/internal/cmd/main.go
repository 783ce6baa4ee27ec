package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/reaction/go/internal/reaction/events"
	"github.com/mcdev12/reaction/go/internal/reaction/round"
	"github.com/mcdev12/reaction/go/internal/reaction/scheduler"
	"github.com/mcdev12/reaction/go/internal/terminal"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	cfg := NewConfigFromEnv()
	root := newRootCommand(&cfg, envErr)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(cfg *Config, envErr error) *cobra.Command {
	root := &cobra.Command{
		Use:          "reaction",
		Short:        "Measure your reaction time in the terminal",
		Long:         "Press a key to arm a round, wait for the screen to turn green, then respond as fast as you can.\nResponding before it turns green is a false start. Press the quit key to exit.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			closeLog, err := setupLogging(*cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			if envErr != nil {
				log.Debug().Err(envErr).Msg("could not load .env file")
			}
			return run(cmd.Context(), *cfg)
		},
	}

	flags := root.PersistentFlags()
	flags.IntVar(&cfg.MinDelayMs, "min-delay", cfg.MinDelayMs, "shortest random delay in milliseconds")
	flags.IntVar(&cfg.MaxDelayMs, "max-delay", cfg.MaxDelayMs, "longest random delay in milliseconds (exclusive)")
	flags.StringVar(&cfg.QuitKey, "quit-key", cfg.QuitKey, "key that exits")
	flags.StringVar(&cfg.RespondKey, "respond-key", cfg.RespondKey, "response key when --any-key=false (a character, space, enter or tab)")
	flags.BoolVar(&cfg.AnyKey, "any-key", cfg.AnyKey, "accept any non-quit key as a response")
	flags.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "maximum number of pending input and timer events")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write logs to this file (logs are discarded when empty)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	root.AddCommand(newConfigCommand(cfg))
	return root
}

func newConfigCommand(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// setupLogging points the global logger at the log file. The terminal is
// the UI, so without a file logs are discarded.
func setupLogging(cfg Config) (func(), error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFile == "" {
		log.Logger = zerolog.Nop()
		return func() {}, nil
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: f, NoColor: true, TimeFormat: time.RFC3339Nano})
	return func() { f.Close() }, nil
}

func run(ctx context.Context, cfg Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	minDelay, maxDelay := cfg.Delays()
	log.Info().
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Bool("any_key", cfg.AnyKey).
		Msg("starting reaction tester")

	queue := events.NewQueue(cfg.QueueSize)
	clock := clockwork.NewRealClock()

	sched, err := scheduler.NewScheduler(clock, scheduler.NewRand(), queue, minDelay, maxDelay)
	if err != nil {
		return err
	}

	session, err := terminal.Open(os.Stdin, os.Stdout)
	if err != nil {
		return fmt.Errorf("setup terminal: %w", err)
	}
	// Restores the terminal on every return path, including panics in this goroutine
	defer session.Close()

	screen := terminal.NewScreen(os.Stdout, session.Size)
	machine := round.NewMachine(clock, queue, sched, screen, session)

	input := terminal.NewInput(os.Stdin, cfg.KeyMap())
	go func() {
		if err := input.Run(ctx, queue); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("input reader failed")
			queue.Abort(err)
		}
	}()

	runErr := machine.Run(ctx)

	// The report goes to stderr once the terminal is back to normal
	if err := session.Close(); err != nil {
		log.Error().Err(err).Msg("failed to restore terminal")
	}
	if elapsed, ok := machine.LastElapsed(); ok {
		fmt.Fprintln(os.Stderr, elapsed.Milliseconds())
	}

	if runErr != nil {
		log.Error().Err(runErr).Msg("reaction tester failed")
		return runErr
	}
	log.Info().Msg("reaction tester shutdown complete")
	return nil
}
