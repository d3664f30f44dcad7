package dcp

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// Reason classifies why a notification was emitted.
type Reason string

const (
	ReasonNoise     Reason = "noise"     // prune()
	ReasonDistill   Reason = "distill"   // distill()
	ReasonCompress  Reason = "compress"  // compress()
	ReasonDedup     Reason = "dedup"     // deduplicate strategy
	ReasonSupersede Reason = "supersede" // supersedeWrites strategy
	ReasonPurge     Reason = "purge"     // purgeErrors strategy
)

// Notification is a user-visible record of a pruning action, rendered
// either as a toast or as a synthetic message depending on
// Config.PruneNotificationType (spec §6, §7).
type Notification struct {
	Reason  Reason
	Summary string // one-line, used for toast
	Detail  string // multi-line, used for "detailed" pruningSummary
}

// dedupDetail is the structured record spec §4.2 Deduplicate asks for.
type dedupDetail struct {
	ToolName       string
	ParameterKey   string
	DuplicateCount int
	PrunedIDs      []string
	KeptID         string
}

func (d dedupDetail) notification() Notification {
	return Notification{
		Reason: ReasonDedup,
		Summary: fmt.Sprintf("%s (%d duplicate%s): %s (%d× duplicate)",
			d.ToolName, d.DuplicateCount, plural(d.DuplicateCount), d.ParameterKey, d.DuplicateCount),
		Detail: fmt.Sprintf("%s called with %s %d times; kept %s, pruned %s",
			d.ToolName, d.ParameterKey, d.DuplicateCount+1, d.KeptID, strings.Join(d.PrunedIDs, ", ")),
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// supersedeDetail records a write superseded by a later read of the same
// path (spec §4.2 Supersede Writes).
type supersedeDetail struct {
	Path        string
	SupersededID string
}

func (d supersedeDetail) notification() Notification {
	return Notification{
		Reason:  ReasonSupersede,
		Summary: fmt.Sprintf("write superseded: %s", d.Path),
		Detail:  fmt.Sprintf("write to %s (%s) is redundant with a later read of the same file", d.Path, d.SupersededID),
	}
}

// purgeDetail records an error-input redaction (spec §4.2 Purge Errors).
type purgeDetail struct {
	ToolName string
	CallID   string
	AgeTurns int
}

func (d purgeDetail) notification() Notification {
	return Notification{
		Reason:  ReasonPurge,
		Summary: fmt.Sprintf("%s input purged: error is %d turns old", d.ToolName, d.AgeTurns),
		Detail:  fmt.Sprintf("%s (%s) failed %d turns ago; input redacted, error message preserved", d.ToolName, d.CallID, d.AgeTurns),
	}
}

// Notifier is the UI formatter contract: the engine hands it
// Notifications, it is responsible for actually getting them in front of
// the user via whatever channel Config.PruneNotificationType selects.
// The host's "show toast" / "send message" operations are external
// collaborators (spec §1); this interface is the seam.
type Notifier interface {
	Toast(msg string)
	Message(text string)
}

// FormatNotification renders a Notification for display, honoring
// Config.PruningSummary: "off" yields nothing, "minimal" the one-liner,
// "detailed" the one-liner plus the detail line.
func FormatNotification(n Notification, summary PruningSummary) string {
	switch summary {
	case SummaryOff:
		return ""
	case SummaryDetailed:
		style := lipgloss.NewStyle().Faint(true)
		return n.Summary + "\n" + style.Render(n.Detail)
	default:
		return n.Summary
	}
}

// Deliver routes a Notification to the configured channel.
func Deliver(n Notifier, cfg Config, note Notification) {
	text := FormatNotification(note, cfg.PruningSummary)
	if text == "" || n == nil {
		return
	}
	switch cfg.PruneNotificationType {
	case NotifyMessage:
		n.Message(text)
	default:
		n.Toast(text)
	}
}

// SweepProgress renders a plain-text progress bar for a long-running
// `/dcp sweep` pass, grounded on the teacher's bubbles dependency
// (internal/tui uses charmbracelet/bubbles list/textarea components).
// ViewAs is a pure string renderer — no Bubble Tea event loop required
// for a one-shot CLI/notification render.
func SweepProgress(done, total int) string {
	if total <= 0 {
		return ""
	}
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30
	pct := float64(done) / float64(total)
	return fmt.Sprintf("%s %d/%d", bar.ViewAs(pct), done, total)
}
