// Command dcpctl exercises the Dynamic Context Pruning engine standalone,
// without a live coding-assistant host — the CLI surface of the /dcp
// command family (spec §6), for local testing.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/syntax-syndicate/opencode-dynamic-context-pruning/internal/dcp"
	"github.com/syntax-syndicate/opencode-dynamic-context-pruning/internal/session"
)

// cliNotifier prints notifications to stdout, standing in for a host's
// toast/message channel when running outside a live host.
type cliNotifier struct{}

func (cliNotifier) Toast(msg string)   { fmt.Println("[toast]", msg) }
func (cliNotifier) Message(text string) { fmt.Println(text) }

func newEngine(sessionStore *session.Store) *dcp.Engine {
	cfg := dcp.DefaultConfig()

	home, _ := os.UserHomeDir()
	sidecarDir := filepath.Join(home, ".config", "dcpengine", "dcp-sidecars")
	store := dcp.NewFileSidecarStore(afero.NewOsFs(), sidecarDir)

	return dcp.NewEngine(cfg, store, cliNotifier{}, dcp.HostCallbacks{
		Messages: func(ctx context.Context, sessionID string) ([]session.Message, error) {
			s, err := sessionStore.Get(sessionID)
			if err != nil {
				return nil, err
			}
			return s.Messages, nil
		},
		Prompt: func(ctx context.Context, sessionID string, text string) error {
			fmt.Println(text)
			return nil
		},
		Toast: func(ctx context.Context, sessionID string, text string) error {
			fmt.Println("[toast]", text)
			return nil
		},
	})
}

func main() {
	root := &cobra.Command{
		Use:           "dcpctl",
		Short:         "Exercise the Dynamic Context Pruning engine against a session",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		dcpCommand("context"),
		dcpCommand("stats"),
		dcpSweepCommand(),
		dcpCommand("manual"),
		dcpCommand("prune"),
		dcpCommand("distill"),
		dcpCommand("compress"),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dcpctl:", err)
		os.Exit(1)
	}
}

func dcpCommand(name string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <session-id> [args...]",
		Short: "Run /dcp " + name + " against a session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDCPCommand(name, args)
		},
	}
}

func dcpSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep <session-id> [n]",
		Short: "Run /dcp sweep [n] against a session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDCPCommand("sweep", args)
		},
	}
}

func runDCPCommand(sub string, args []string) error {
	sessionID := args[0]
	rest := args[1:]

	home, _ := os.UserHomeDir()
	sessionDir := filepath.Join(home, ".config", "dcpengine", "sessions")
	store, err := session.NewStore(sessionDir)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}

	engine := newEngine(store)
	arguments := append([]string{sub}, rest...)
	err = engine.RunCommand(sessionID, arguments, func(text string) error {
		fmt.Println(text)
		return nil
	})
	if err != nil {
		// The sentinel __DCP_*_HANDLED__ errors mean the command already
		// printed its own output; anything else is a real failure.
		if isHandledSentinel(err.Error()) {
			return nil
		}
		return err
	}
	return nil
}

func isHandledSentinel(s string) bool {
	switch s {
	case dcp.ErrContextHandled, dcp.ErrStatsHandled, dcp.ErrSweepHandled,
		dcp.ErrManualHandled, dcp.ErrTriggerHandled, dcp.ErrHelpHandled:
		return true
	default:
		return false
	}
}
