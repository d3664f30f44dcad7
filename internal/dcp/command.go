package dcp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Command-completion sentinels (spec §7 "Propagation policy", §6
// command.execute.before): each /dcp subcommand signals it already wrote
// its own output via host.Prompt by returning one of these as an error,
// rather than returning text the host would render a second time.
const (
	ErrContextHandled  = "__DCP_CONTEXT_HANDLED__"
	ErrStatsHandled    = "__DCP_STATS_HANDLED__"
	ErrSweepHandled    = "__DCP_SWEEP_HANDLED__"
	ErrManualHandled   = "__DCP_MANUAL_HANDLED__"
	ErrTriggerHandled  = "__DCP_TRIGGER_HANDLED__"
	ErrHelpHandled     = "__DCP_HELP_HANDLED__"
)

const dcpHelpText = `/dcp commands:
  context            show the current <prunable-tools> manifest
  stats               show tokens saved this session
  sweep [n]           run the strategy pipeline now, sweeping up to n tool calls
  manual [on|off]     toggle manual mode (disables automatic strategies)
  prune|distill|compress [focus]   ask the model to run a tool next turn, optionally focused on "focus"`

// RunCommand implements command.execute.before for the /dcp family (spec
// §6, §7): it mutates state as needed, sends its own output through
// prompt, and returns the sentinel error the host uses to know not to
// render anything else.
func (e *Engine) RunCommand(sessionID string, arguments []string, prompt func(text string) error) error {
	if !e.Config.Commands.Enabled {
		return fmt.Errorf("dcp commands are disabled")
	}
	sub := ""
	rest := arguments
	if len(arguments) > 0 {
		sub = strings.ToLower(arguments[0])
		rest = arguments[1:]
	}

	state := e.Manager.EnsureInitialized(sessionID, false)

	switch sub {
	case "context":
		manifest := buildManifest(state, e.Config)
		if manifest == "" {
			manifest = "(no prunable tools right now)"
		}
		_ = prompt(manifest)
		return errors.New(ErrContextHandled)

	case "stats":
		_ = prompt(fmt.Sprintf(
			"Pruning stats for this session: %d tokens saved since last report, %d total.",
			state.Stats.PruneTokenCounter, state.Stats.TotalPruneTokens))
		state.Stats.PruneTokenCounter = 0
		e.finishAndLog(state)
		return errors.New(ErrStatsHandled)

	case "sweep":
		limit := len(state.ToolIDList)
		if len(rest) > 0 {
			if n, err := strconv.Atoi(rest[0]); err == nil && n > 0 {
				limit = n
			}
		}
		before := len(state.PruneToolIDs)
		sweepN(state, e.Config, limit)
		swept := len(state.PruneToolIDs) - before
		_ = prompt(fmt.Sprintf("Swept %d tool call%s.", swept, plural(swept)))
		e.finishAndLog(state)
		return errors.New(ErrSweepHandled)

	case "manual":
		if len(rest) > 0 {
			state.ManualMode = strings.EqualFold(rest[0], "on")
		} else {
			state.ManualMode = !state.ManualMode
		}
		status := "off"
		if state.ManualMode {
			status = "on"
		}
		_ = prompt(fmt.Sprintf("Manual mode is now %s.", status))
		e.finishAndLog(state)
		return errors.New(ErrManualHandled)

	case "prune", "distill", "compress":
		focus := strings.Join(rest, " ")
		state.PendingManualTrigger = &PendingManualTrigger{
			SessionID: sessionID,
			Prompt:    manualTriggerPrompt(sub, focus),
		}
		_ = prompt(fmt.Sprintf("Asked the model to run %s next turn.", sub))
		e.finishAndLog(state)
		return errors.New(ErrTriggerHandled)

	default:
		_ = prompt(dcpHelpText)
		return errors.New(ErrHelpHandled)
	}
}

func (e *Engine) finishAndLog(state *SessionState) {
	if err := e.Manager.Persist(state); err != nil {
		e.Logger.Warn("failed to persist sidecar for session %s: %v", state.SessionID, err)
	}
}

func manualTriggerPrompt(tool, focus string) string {
	if focus == "" {
		return fmt.Sprintf("Please call the %s tool now.", tool)
	}
	return fmt.Sprintf("Please call the %s tool now, focused on: %s", tool, focus)
}

// sweepN runs the strategy pipeline over only the newest limit live tool
// calls and returns the notifications it produced, for `/dcp sweep [n]`
// (spec §6 "sweep [n]").
func sweepN(state *SessionState, cfg Config, limit int) []Notification {
	full := liveEntries(state, cfg)
	if limit > 0 && limit < len(full) {
		start := len(full) - limit
		saved := make(map[string]bool, len(full[:start]))
		for _, id := range full[:start] {
			saved[id] = true
		}
		origIDList := state.ToolIDList
		trimmed := make([]string, 0, limit)
		for _, id := range origIDList {
			if !saved[lowerID(id)] {
				trimmed = append(trimmed, id)
			}
		}
		state.ToolIDList = trimmed
		defer func() { state.ToolIDList = origIDList }()
	}
	return RunPipeline(state, cfg)
}
