package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/synclite/synclite/internal/node"
)

func init() {
	rootCmd.AddCommand(newConnectCmd())
}

func newConnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect <host:port> <workspace-path>",
		Short: "Run as a follower, dialing a leader",
		Args:  cobra.ExactArgs(2),
		RunE:  runConnect,
	}
	cmd.Flags().Bool("status", false, "show a live-updating status view alongside the follower")
	return cmd
}

func runConnect(cmd *cobra.Command, args []string) error {
	leaderAddr := args[0]
	workspacePath := args[1]

	defaults, err := loadDefaults(resolveConfigPath(cmd))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyLogLevel(cmd, defaults.LogLevel)

	deps, ws, release, err := bootWorkspace(workspacePath)
	if err != nil {
		return err
	}
	defer release()

	slog.Info("connecting to leader", "workspace", ws.Root, "leader", leaderAddr)

	follower := node.NewFollower(deps)

	showStatus, _ := cmd.Flags().GetBool("status")
	if !showStatus {
		return follower.Run(cmd.Context(), leaderAddr)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	followerErr := make(chan error, 1)
	go func() { followerErr <- follower.Run(ctx, leaderAddr) }()

	tuiErr := runStatusTUI(ctx, deps.Status)
	cancel()
	if err := <-followerErr; err != nil {
		return err
	}
	return tuiErr
}
