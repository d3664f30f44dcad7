package dcp

import (
	"fmt"
	"regexp"
	"strings"
)

// patchFileHeader matches the `*** {Add|Delete|Update} File: <path>` lines
// apply_patch embeds in its patch text (spec §4.2 Supersede Writes).
var patchFileHeader = regexp.MustCompile(`(?m)^\*\*\*\s+(Add|Delete|Update)\s+File:\s*(.+)$`)

// ExtractPatchPaths returns every file path touched by an apply_patch
// patchText, in document order.
func ExtractPatchPaths(patchText string) []string {
	matches := patchFileHeader.FindAllStringSubmatch(patchText, -1)
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, strings.TrimSpace(m[2]))
	}
	return paths
}

// stringParam safely extracts a string parameter, tolerating nil maps
// and wrong-typed values the way the teacher's tool Execute functions do
// (`path, _ := input["path"].(string)`).
func stringParam(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	s, _ := params[key].(string)
	return s
}

// ExtractFilePaths returns every file path a tool call's parameters
// reference, per spec §4.2: read/write/edit use "path"; multiedit has a
// top-level "path" plus nested edits (no per-edit path, they share the
// file); apply_patch is scanned for patch-text headers.
func ExtractFilePaths(toolName string, params map[string]any) []string {
	switch strings.ToLower(toolName) {
	case "read", "write", "edit":
		if p := stringParam(params, "path"); p != "" {
			return []string{p}
		}
		return nil
	case "multiedit":
		if p := stringParam(params, "path"); p != "" {
			return []string{p}
		}
		return nil
	case "apply_patch":
		return ExtractPatchPaths(stringParam(params, "patch"))
	default:
		return nil
	}
}

// ShortenPath collapses a long path to fit within maxLen, keeping the
// filename and a truncated prefix, e.g. "internal/.../session.go".
func ShortenPath(path string, maxLen int) string {
	if len(path) <= maxLen || maxLen <= 3 {
		return path
	}
	segments := strings.Split(path, "/")
	if len(segments) <= 2 {
		return path[:maxLen-3] + "..."
	}
	base := segments[len(segments)-1]
	head := segments[0]
	shortened := head + "/.../" + base
	if len(shortened) <= maxLen {
		return shortened
	}
	if len(base) > maxLen-3 {
		return base[:maxLen-3] + "..."
	}
	return base
}

// truncateCommand shortens a bash command for display in the manifest.
func truncateCommand(cmd string, maxLen int) string {
	cmd = strings.Join(strings.Fields(cmd), " ")
	if len(cmd) <= maxLen {
		return cmd
	}
	return cmd[:maxLen-1] + "…"
}

// ParamKey derives the single most useful parameter to show next to a
// tool name in the <prunable-tools> manifest and in dedup/supersede
// notifications (spec §4.2, §4.4).
func ParamKey(toolName string, params map[string]any) string {
	switch strings.ToLower(toolName) {
	case "read", "write", "edit", "multiedit":
		if p := stringParam(params, "path"); p != "" {
			return ShortenPath(p, 60)
		}
	case "apply_patch":
		paths := ExtractPatchPaths(stringParam(params, "patch"))
		if len(paths) > 0 {
			return strings.Join(paths, ", ")
		}
	case "bash":
		if d := stringParam(params, "description"); d != "" {
			return d
		}
		return truncateCommand(stringParam(params, "command"), 60)
	case "grep", "glob", "codesearch":
		pattern := stringParam(params, "pattern")
		path := stringParam(params, "path")
		if path != "" {
			return fmt.Sprintf("%s in %s", pattern, ShortenPath(path, 40))
		}
		return pattern
	case "ls":
		return stringParam(params, "path")
	case "webfetch":
		return stringParam(params, "url")
	case "websearch":
		return stringParam(params, "query")
	}
	// Fallback: first non-empty string parameter, in a stable order.
	for _, key := range sortedKeys(params) {
		if s, ok := params[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
