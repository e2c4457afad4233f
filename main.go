package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"inputrepeater/hook"
	"inputrepeater/input"
	"inputrepeater/internal/clients"
	"inputrepeater/internal/config"
	"inputrepeater/internal/display"
	"inputrepeater/internal/engine"
	"inputrepeater/internal/logging"
	"inputrepeater/internal/playback"
	"inputrepeater/internal/server"
	"inputrepeater/internal/types"
)

var version = "dev"

const simulateUsage = "Use in-process hooks and injector instead of the OS ones. " +
	"Nothing delivers input to the simulated hooks, so recordings stay empty: playback only"

func main() {
	rootCmd := &cobra.Command{
		Use:           "repeater",
		Short:         "Record global keyboard and mouse input and play it back",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd(), versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Install the input hooks and serve the control surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
			}
			if cmd.Flags().Changed("simulate") {
				cfg.Hooks.Simulate, _ = cmd.Flags().GetBool("simulate")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, logger)
		},
	}
	cmd.Flags().String("config", "", "Path to YAML config (default "+config.DefaultPath+" when present)")
	cmd.Flags().String("addr", "", "Listen address, overrides server.addr")
	cmd.Flags().Bool("simulate", false, simulateUsage)
	return cmd
}

// runServer arms the engine, serves until ctx is done and removes the hooks on
// every way out, panics included.
func runServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (err error) {
	var (
		disp      display.Display = display.Primary(cfg.Display.Index)
		installer hook.Installer  = hook.Native()
		injector  input.Injector  = input.Native(disp)
	)
	if cfg.Hooks.Simulate {
		logger.Warn("simulated hooks and injector in use: no OS input is captured or synthesized, recordings stay empty")
		installer = hook.NewSimulator()
		injector = input.NewRecorder()
		disp = display.Fixed{Width: 1920, Height: 1080}
	}

	mgr := clients.NewManager(logger.Named("clients"))
	defer mgr.Close()
	eng := engine.New(engine.Options{
		Installer: installer,
		Injector:  injector,
		Display:   disp,
		Notifier:  types.Notifiers{mgr, noticeLogger(logger.Named("notice"))},
		Playback: playback.Options{
			InitialDelay: cfg.Playback.InitialDelay,
			Interval:     cfg.Playback.Interval,
		},
		Logger: logger.Named("engine"),
	})
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic, removing input hooks", zap.Any("panic", r))
			_ = eng.Close()
			panic(r)
		}
		cerr := eng.Close()
		if cerr != nil {
			logger.Warn("remove input hooks, retrying", zap.Error(cerr))
			cerr = eng.Close()
		}
		if cerr != nil {
			logger.Error("remove input hooks", zap.Error(cerr))
			if err == nil {
				err = cerr
			}
		}
	}()

	if err := eng.Start(); err != nil {
		// The control surface stays up so the shell can report the failure.
		logger.Warn("continuing without recording", zap.Error(err))
	}

	srv := server.New(server.Config{
		Addr:       cfg.Server.Addr,
		Controller: eng,
		Manager:    mgr,
		Logger:     logger.Named("server"),
	})
	return srv.Run(ctx)
}

func noticeLogger(logger *zap.Logger) types.Notifier {
	return types.NotifierFunc(func(n types.Notice) {
		logger.Info(n.Message,
			zap.String("kind", string(n.Kind)),
			zap.String("session", n.Session),
			zap.Int("count", n.Count))
	})
}
