package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/synclite/synclite/internal/utils"
	"github.com/synclite/synclite/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "synclite",
	Short:   "Star-topology directory sync",
	Version: version.Detailed(),
}

// logLevel is shared by both log handlers so a subcommand can raise or
// lower verbosity after the resolved config/flag level is known, without
// reopening the log file.
var logLevel = new(slog.LevelVar)

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default ~/.synclite/config.json)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides config)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	closeLog, err := setupLogging()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setupLogging wires a dual stdout+file slog handler: a colorized tint
// handler for interactive use, fronting a plain text handler over a
// sequence-numbered log file under ~/.synclite/logs.
func setupLogging() (func(), error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	logDir := filepath.Join(home, ".synclite", "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	logPath := filepath.Join(logDir, fmt.Sprintf("synclite-%d.log", os.Getpid()))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	stdoutHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      logLevel,
		TimeFormat: "15:04:05",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})

	interceptor := utils.NewLogInterceptor(file)
	fileHandler := slog.NewTextHandler(interceptor, &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	slog.SetDefault(slog.New(utils.NewMultiLogHandler(stdoutHandler, fileHandler)))

	return func() {
		interceptor.Close()
		file.Close()
	}, nil
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// applyLogLevel resolves the effective log level from the --log-level
// flag (if set) or the configured default, and applies it to both
// handlers installed by setupLogging.
func applyLogLevel(cmd *cobra.Command, configured string) {
	level := configured
	if flagVal, _ := cmd.Flags().GetString("log-level"); flagVal != "" {
		level = flagVal
	}
	logLevel.Set(parseLogLevel(level))
}

func resolveConfigPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
