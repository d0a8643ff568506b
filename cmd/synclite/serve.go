package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/synclite/synclite/internal/node"
)

func init() {
	rootCmd.AddCommand(newServeCmd())
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <workspace-path>",
		Short: "Run as the leader, accepting follower connections",
		Args:  cobra.ExactArgs(1),
		RunE:  runServe,
	}
	cmd.Flags().IntP("port", "p", 0, "listen port (default from config, else 8080)")
	cmd.Flags().Bool("status", false, "show a live-updating status view alongside the leader")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	workspacePath := args[0]

	defaults, err := loadDefaults(resolveConfigPath(cmd))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyLogLevel(cmd, defaults.LogLevel)

	port := defaults.Port
	if flagPort, _ := cmd.Flags().GetInt("port"); flagPort != 0 {
		port = flagPort
	}

	deps, ws, release, err := bootWorkspace(workspacePath)
	if err != nil {
		return err
	}
	defer release()

	leader := node.NewLeader(deps)
	if err := deps.Peers.SetLeader(leader.LeaderID()); err != nil {
		return fmt.Errorf("persist leader id: %w", err)
	}

	listenAddr := net.JoinHostPort("", strconv.Itoa(port))
	slog.Info("starting leader", "workspace", ws.Root, "listen", listenAddr, "leader_id", leader.LeaderID())

	showStatus, _ := cmd.Flags().GetBool("status")
	if !showStatus {
		return leader.Run(cmd.Context(), listenAddr)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	leaderErr := make(chan error, 1)
	go func() { leaderErr <- leader.Run(ctx, listenAddr) }()

	tuiErr := runStatusTUI(ctx, deps.Status)
	cancel()
	if err := <-leaderErr; err != nil {
		return err
	}
	return tuiErr
}
