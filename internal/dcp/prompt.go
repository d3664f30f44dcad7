package dcp

import "regexp"

// RenderPrompt implements the templating language described in spec §9
// "Template conditionals": <toolName>...</toolName> blocks are kept (tags
// stripped) when that tool is enabled in cfg, or removed entirely when it
// isn't; `// comment //` spans are stripped unconditionally; runs of blank
// lines left behind collapse to one. Two regex passes, no markdown
// renderer, matching the source's own description of the mechanism.
func RenderPrompt(template string, cfg Config) string {
	out := conditionalBlockPattern.ReplaceAllStringFunc(template, func(m string) string {
		sub := conditionalBlockPattern.FindStringSubmatch(m)
		tool, body := sub[1], sub[2]
		if !toolEnabled(tool, cfg) {
			return ""
		}
		return body
	})
	out = commentPattern.ReplaceAllString(out, "")
	out = blankLinesPattern.ReplaceAllString(out, "\n\n")
	return out
}

var (
	conditionalBlockPattern = regexp.MustCompile(`(?s)<(prune|distill|compress)>(.*?)</(?:prune|distill|compress)>`)
	commentPattern          = regexp.MustCompile(`//[^\n]*//`)
	blankLinesPattern       = regexp.MustCompile(`\n{3,}`)
)

func toolEnabled(name string, cfg Config) bool {
	switch name {
	case "prune":
		return cfg.Tools.Prune.Enabled
	case "distill":
		return cfg.Tools.Distill.Enabled
	case "compress":
		return cfg.Tools.Compress.Enabled
	default:
		return false
	}
}
