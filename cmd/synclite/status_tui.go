package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/synclite/synclite/internal/status"
)

// runStatusTUI renders a live-updating view of reporter's counters until
// ctx is canceled. It is wired in by the --status flag on serve/connect:
// a separate "status <workspace-path>" invocation has no channel back to
// a running process and falls back to a one-shot file read instead (see
// status_cmd.go).
func runStatusTUI(ctx context.Context, reporter *status.Reporter) error {
	ch, unsubscribe := reporter.Subscribe()
	defer unsubscribe()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusValue

	m := statusModel{snap: reporter.Snapshot(), updates: ch, spinner: s}
	p := tea.NewProgram(m)

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, err := p.Run()
	return err
}

type snapshotMsg status.Snapshot

type statusModel struct {
	snap    status.Snapshot
	updates <-chan status.Snapshot
	spinner spinner.Model
}

func (m statusModel) Init() tea.Cmd {
	return tea.Batch(waitForSnapshot(m.updates), m.spinner.Tick)
}

func waitForSnapshot(ch <-chan status.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = status.Snapshot(msg)
		return m, waitForSnapshot(m.updates)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m statusModel) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), statusHeading.Render("synclite — live status"))
	fmt.Fprintf(&b, "%s %d\n", statusLabel.Render("connects   "), m.snap.Connects)
	fmt.Fprintf(&b, "%s %d\n", statusLabel.Render("disconnects"), m.snap.Disconnects)
	fmt.Fprintf(&b, "%s %d (%d bytes)\n", statusLabel.Render("files sent "), m.snap.FilesSent, m.snap.BytesSent)
	fmt.Fprintf(&b, "%s %d (%d bytes)\n", statusLabel.Render("files recvd"), m.snap.FilesReceived, m.snap.BytesReceived)
	fmt.Fprintf(&b, "%s %d\n", statusLabel.Render("conflicts  "), m.snap.Conflicts)
	if !m.snap.LastActivityAt.IsZero() {
		fmt.Fprintf(&b, "%s %s\n", statusLabel.Render("last event "), m.snap.LastActivityAt.Format("15:04:05"))
	}
	b.WriteString("\n")
	b.WriteString(statusLabel.Render("ctrl+c to quit"))
	b.WriteString("\n")
	return b.String()
}
