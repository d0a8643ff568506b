package main

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/synclite/synclite/internal/peers"
	"github.com/synclite/synclite/internal/syncstate"
	"github.com/synclite/synclite/internal/utils"
	"github.com/synclite/synclite/internal/workspace"
)

var (
	statusHeading = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	statusLabel   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	statusValue   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	statusWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func init() {
	rootCmd.AddCommand(newStatusCmd())
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <workspace-path>",
		Short: "Print a summary of a workspace's peers and sync state",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
	cmd.Flags().Bool("watch", false, "accepted but has no effect: the summary is read once from disk and does not refresh")
	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	resolved, err := utils.ResolvePath(args[0])
	if err != nil {
		return fmt.Errorf("resolve workspace path: %w", err)
	}

	ws, err := workspace.New(resolved)
	if err != nil {
		return err
	}

	peerRegistry := peers.NewRegistry(ws.PeersPath)
	if err := peerRegistry.Load(); err != nil {
		return fmt.Errorf("load peers.json: %w", err)
	}

	store := syncstate.NewStore(ws.StatePath)
	if err := store.Load(); err != nil {
		return fmt.Errorf("load state.json: %w", err)
	}

	printStatus(cmd, ws, peerRegistry.Snapshot(), store.Snapshot())

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), statusWarn.Render(
			"--watch has no effect here: status reads peers.json/state.json from "+
				"disk rather than attaching to a running process, so this snapshot "+
				"will not refresh. Re-run this command to see the current state."))
	}

	return nil
}

func printStatus(cmd *cobra.Command, ws *workspace.Workspace, peerState peers.State, state syncstate.Map) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, statusHeading.Render("synclite workspace"))
	fmt.Fprintf(out, "%s %s\n", statusLabel.Render("root   "), ws.Root)

	leader := "(none recorded)"
	if peerState.Leader != nil {
		leader = *peerState.Leader
	}
	fmt.Fprintf(out, "%s %s\n", statusLabel.Render("leader "), statusValue.Render(leader))
	fmt.Fprintf(out, "%s %d\n", statusLabel.Render("peers  "), len(peerState.Peers))
	for _, p := range peerState.Peers {
		fmt.Fprintf(out, "  - %s\n", p)
	}

	live, deleted := 0, 0
	for _, e := range state {
		if e.IsDeleted {
			deleted++
		} else {
			live++
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s %s live, %s tombstoned\n",
		statusLabel.Render("files  "),
		statusValue.Render(humanize.Comma(int64(live))),
		statusValue.Render(humanize.Comma(int64(deleted))))

	if live == 0 {
		return
	}

	paths := make([]string, 0, len(state))
	for path, e := range state {
		if !e.IsDeleted {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	fmt.Fprintln(out)
	limit := 10
	if len(paths) < limit {
		limit = len(paths)
	}
	for _, path := range paths[:limit] {
		e := state[path]
		fmt.Fprintf(out, "  %s %s (%s)\n", path, e.Hash[:min(8, len(e.Hash))], humanize.Time(e.LastModified))
	}
	if len(paths) > limit {
		fmt.Fprintf(out, "  ... and %d more\n", len(paths)-limit)
	}
}
