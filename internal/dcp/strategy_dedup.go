package dcp

import (
	"encoding/json"
	"fmt"
)

type dedupStrategy struct{}

func (dedupStrategy) Name() string { return "deduplicate" }

// normalizeParams drops nil/undefined fields recursively and leaves
// arrays in their original order (spec §4.2 Deduplicate, §8 item 2).
// encoding/json already serializes map[string]any keys in sorted order,
// so once nils are stripped, json.Marshal IS the canonical
// sortedKeys(normalized(...)) signature body the spec describes.
func normalizeParams(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[k] = normalizeParams(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeParams(val)
		}
		return out
	default:
		return v
	}
}

// dedupSignature implements spec §4.2's "tool::JSON(sortedKeys(normalized(parameters)))".
func dedupSignature(tool string, params map[string]any) string {
	normalized := normalizeParams(params)
	body, err := json.Marshal(normalized)
	if err != nil {
		// Parameters that fail to marshal (shouldn't happen for JSON-
		// decoded tool input) never collide with anything real.
		return fmt.Sprintf("%s::<unmarshalable:%p>", tool, params)
	}
	return tool + "::" + string(body)
}

func (dedupStrategy) Run(state *SessionState, cfg Config) []Notification {
	if !cfg.Strategies.Deduplication.Enabled {
		return nil
	}
	live := liveEntries(state, cfg)

	groups := make(map[string][]string) // signature -> callIDs in chronological order
	order := make([]string, 0)
	for _, id := range live {
		entry := state.ToolParameters[id]
		sig := dedupSignature(entry.Tool, entry.Parameters)
		if _, ok := groups[sig]; !ok {
			order = append(order, sig)
		}
		groups[sig] = append(groups[sig], id)
	}

	var notifications []Notification
	for _, sig := range order {
		ids := groups[sig]
		if len(ids) < 2 {
			continue
		}
		kept := ids[len(ids)-1] // newest (last chronologically) survives
		pruned := ids[:len(ids)-1]
		for _, id := range pruned {
			state.PruneToolIDs[id] = true
		}
		entry := state.ToolParameters[kept]
		notifications = append(notifications, dedupDetail{
			ToolName:       entry.Tool,
			ParameterKey:   ParamKey(entry.Tool, entry.Parameters),
			DuplicateCount: len(pruned),
			PrunedIDs:      pruned,
			KeptID:         kept,
		}.notification())
	}
	return notifications
}
