package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/syntax-syndicate/opencode-dynamic-context-pruning/internal/config"
	"github.com/syntax-syndicate/opencode-dynamic-context-pruning/internal/dcp"
	"github.com/syntax-syndicate/opencode-dynamic-context-pruning/internal/session"
)

// streamNotifier routes DCP engine notifications (prune/distill/compress
// summaries, sweep nudges) into whatever stream a session.PromptEngine
// exposes. Toast and Message both surface as a "toast" StreamEvent; a
// host with no stream subscriber (e.g. a cron-driven serve request) just
// drops it like any other stream event nobody is listening for.
type streamNotifier struct {
	emit func(text string)
}

func (n *streamNotifier) Toast(msg string) {
	if n.emit != nil {
		n.emit(msg)
	}
}

func (n *streamNotifier) Message(text string) {
	if n.emit != nil {
		n.emit(text)
	}
}

// stderrToast is the serve command's notifier sink: the HTTP server
// builds one shared DCP engine up front (before any request, and thus
// any per-request PromptEngine stream, exists), so its toasts have
// nowhere to go but the process's own log.
func stderrToast(text string) {
	fmt.Fprintln(os.Stderr, "[dcp]", text)
}

// newDCPEngine builds the context-pruning engine shared by the TUI, the
// headless run command, and the HTTP server, wiring its host callbacks
// against the real session store (mirrors cmd/dcpctl's newEngine, minus
// the stdout-only notifier).
func newDCPEngine(cfg *config.Config, store *session.Store, notifier dcp.Notifier) *dcp.Engine {
	dcpCfg := dcp.DefaultConfig()
	if cfg.DCP != nil {
		dcpCfg = *cfg.DCP
	}

	home, _ := os.UserHomeDir()
	sidecarDir := filepath.Join(home, ".config", "dcpengine", "dcp-sidecars")
	sidecarStore := dcp.NewFileSidecarStore(afero.NewOsFs(), sidecarDir)

	return dcp.NewEngine(dcpCfg, sidecarStore, notifier, dcp.HostCallbacks{
		Messages: func(ctx context.Context, sessionID string) ([]session.Message, error) {
			s, err := store.Get(sessionID)
			if err != nil {
				return nil, err
			}
			return s.Messages, nil
		},
		Prompt: func(ctx context.Context, sessionID string, text string) error {
			notifier.Message(text)
			return nil
		},
		Toast: func(ctx context.Context, sessionID string, text string) error {
			notifier.Toast(text)
			return nil
		},
	})
}
