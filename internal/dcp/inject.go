package dcp

import (
	"fmt"
	"strconv"
	"strings"
)

// CooldownBlock is the fixed text injected for exactly one turn after a
// successful prune/distill/compress (spec §4.4 item 1). Its wording is a
// model-visible contract (spec §6 "CLI boundary") and must not drift.
const CooldownBlock = `<context-info>Context management was just performed. Do NOT use the <enabled-tools> again. A fresh list will be available after your next tool use.</context-info>`

// deepseekKimiFamilies are the provider/model families that will not
// emit reasoning if a plain assistant-text injection follows without an
// encrypted-reasoning part (spec §4.4 role placement rules), grounded on
// the Kimi/MiniMax overflow-message detection already present in
// internal/provider/provider.go.
var deepseekKimiFamilies = map[string]bool{
	"deepseek": true,
	"kimi":     true,
	"moonshot": true, // Kimi's provider id in some registries
}

func isDeepseekKimiFamily(family string) bool {
	return deepseekKimiFamilies[strings.ToLower(family)]
}

// buildManifest renders the <prunable-tools> block (spec §4.4 item 2).
// Returns "" if no non-protected, non-already-pruned tool remains.
func buildManifest(state *SessionState, cfg Config) string {
	var lines []string
	for i, id := range state.ToolIDList {
		entry, ok := state.ToolParameters[id]
		if !ok {
			continue
		}
		if cfg.IsProtectedTool(entry.Tool) {
			continue
		}
		if state.PruneToolIDs[id] {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d: %s, %s", i, entry.Tool, ParamKey(entry.Tool, entry.Parameters)))
	}
	if len(lines) == 0 {
		return ""
	}
	return "<prunable-tools>\n" + strings.Join(lines, "\n") + "\n</prunable-tools>"
}

// buildSquashBlock renders the <squash-context> block (spec §4.4 item 3).
func buildSquashBlock(state *SessionState, messages []Message) string {
	live := 0
	for _, m := range messages {
		if !state.PruneMessageIDs[m.ID] {
			live++
		}
	}
	return "<squash-context>" + strconv.Itoa(live) + " live messages in this conversation</squash-context>"
}

// nudgePrompt mirrors spec §4.4 item 4: the prompt depends on which
// tools are enabled.
func nudgePrompt(cfg Config) string {
	switch {
	case cfg.Tools.Prune.Enabled && cfg.Tools.Distill.Enabled:
		return "<context-nudge>You have accumulated several unpruned tool results. Consider calling prune or distill on tools you no longer need the full output of.</context-nudge>"
	case cfg.Tools.Distill.Enabled:
		return "<context-nudge>You have accumulated several unpruned tool results. Consider calling distill to preserve the knowledge you need while freeing context.</context-nudge>"
	case cfg.Tools.Prune.Enabled:
		return "<context-nudge>You have accumulated several unpruned tool results. Consider calling prune on tools you no longer need the full output of.</context-nudge>"
	default:
		return ""
	}
}

// Inject implements spec §4.4: builds up to four blocks (cooldown,
// prunable-tools manifest, squash-context, nudge), joins them with blank
// lines, and appends them as a single synthetic message, placed per the
// provider-sensitive role rules. modelFamily is the last observed
// provider model family (e.g. "deepseek", "claude", "kimi"); pass "" if
// unknown.
func Inject(state *SessionState, messages []Message, cfg Config, modelFamily string) []Message {
	var blocks []string
	cooldown := state.LastToolPrune

	if cooldown {
		blocks = append(blocks, CooldownBlock)
	} else if cfg.AnyPrunerEnabled() {
		if manifest := buildManifest(state, cfg); manifest != "" {
			blocks = append(blocks, manifest)
		}
	}

	if cfg.Tools.Compress.Enabled {
		blocks = append(blocks, buildSquashBlock(state, messages))
	}

	if cfg.Tools.Settings.NudgeEnabled && state.NudgeCounter >= cfg.Tools.Settings.NudgeFrequency {
		if n := nudgePrompt(cfg); n != "" {
			blocks = append(blocks, n)
		}
	}

	if len(blocks) == 0 {
		return messages
	}
	text := strings.Join(blocks, "\n\n")

	last, ok := LastNonIgnoredMessage(messages)
	lastUser, hasUser := LastUserMessage(messages)
	if !hasUser {
		lastUser = last
	}

	switch {
	case ok && last.Role == "user":
		synth := SyntheticMessage("user", lastUser, SyntheticTextPart(text))
		return append(messages, synth)

	case isDeepseekKimiFamily(modelFamily):
		return appendSyntheticToolNote(messages, text)

	default:
		synth := SyntheticMessage("assistant", lastUser, SyntheticTextPart(text))
		return append(messages, synth)
	}
}

// appendSyntheticToolNote appends a synthetic tool-shaped part to the
// last assistant message instead of a trailing assistant text message,
// so DeepSeek/Kimi-family providers still see context without refusing
// to emit reasoning on the following turn (spec §4.4).
func appendSyntheticToolNote(messages []Message, text string) []Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "assistant" {
			continue
		}
		messages[i].Parts = append(messages[i].Parts, Part{
			ID:     newSyntheticID("prt"),
			Type:   PartTool,
			Tool:   "context-injector",
			CallID: newSyntheticID("call"),
			Output: text,
			Status: ToolCompleted,
		})
		return messages
	}
	// No assistant message to attach to: fall back to a synthetic
	// assistant message, same as the final role-placement rule.
	lastUser, _ := LastUserMessage(messages)
	return append(messages, SyntheticMessage("assistant", lastUser, SyntheticTextPart(text)))
}
