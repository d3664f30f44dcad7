// Package host defines the boundary between the DCP engine and the
// coding-assistant process that embeds it (spec §6 "External interfaces").
// The engine never talks to a concrete host type, only to this interface,
// so the host's plugin loader, config parser, and UI layer stay external
// collaborators per spec §1.
package host

import (
	"context"

	"github.com/syntax-syndicate/opencode-dynamic-context-pruning/internal/dcp"
	"github.com/syntax-syndicate/opencode-dynamic-context-pruning/internal/session"
)

// Host is implemented by the embedding process. The engine is handed an
// adapted dcp.HostCallbacks built from this interface (see Adapt) and
// calls back into it for the RPCs spec §5 lists as suspension points:
// session.messages, session.get, tui.showToast, session.prompt.
type Host interface {
	// Messages returns the current transcript for a session
	// (session.messages RPC).
	Messages(ctx context.Context, sessionID string) ([]session.Message, error)

	// Prompt sends an ignored/synthetic message into the session on the
	// engine's behalf (session.prompt RPC), used by /dcp commands.
	Prompt(ctx context.Context, sessionID string, text string) error

	// Toast surfaces a transient notification (tui.showToast RPC).
	Toast(ctx context.Context, sessionID string, text string) error
}

// Adapt turns a Host into the dcp.HostCallbacks shape the engine
// constructor expects, keeping the dcp package itself free of any
// dependency on this package (host depends on dcp, not the reverse).
func Adapt(h Host) dcp.HostCallbacks {
	return dcp.HostCallbacks{
		Messages: h.Messages,
		Prompt:   h.Prompt,
		Toast:    h.Toast,
	}
}

// Event models the event({type, properties}) hook (spec §6): used for
// session.status=idle background-analysis triggers.
type Event struct {
	Type       string
	SessionID  string
	Properties map[string]any
}

// Notifier adapts a Host's Toast/Prompt RPCs into dcp.Notifier, routing
// both notification channels (spec §6 pruneNotificationType: toast |
// message) through the same host.
type Notifier struct {
	Host      Host
	SessionID string
}

func (n Notifier) Toast(text string) {
	_ = n.Host.Toast(context.Background(), n.SessionID, text)
}

func (n Notifier) Message(text string) {
	_ = n.Host.Prompt(context.Background(), n.SessionID, text)
}
