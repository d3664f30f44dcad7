package dcp

import "strings"

// PruningSummary controls notification verbosity.
type PruningSummary string

const (
	SummaryOff      PruningSummary = "off"
	SummaryMinimal  PruningSummary = "minimal"
	SummaryDetailed PruningSummary = "detailed"
)

// NotificationType selects the UI channel for pruning notifications.
type NotificationType string

const (
	NotifyToast   NotificationType = "toast"
	NotifyMessage NotificationType = "message"
)

// ToolConfig holds the per-tool knobs for prune/distill/compress.
type ToolConfig struct {
	Enabled          bool   `mapstructure:"enabled" json:"enabled"`
	Permission       string `mapstructure:"permission" json:"permission,omitempty"`
	ShowDistillation bool   `mapstructure:"show_distillation" json:"show_distillation,omitempty"`
	ShowCompression  bool   `mapstructure:"show_compression" json:"show_compression,omitempty"`
}

// ToolsSettings holds cross-cutting tool-dispatcher knobs.
type ToolsSettings struct {
	ProtectedTools []string `mapstructure:"protected_tools" json:"protected_tools,omitempty"`
	NudgeEnabled   bool     `mapstructure:"nudge_enabled" json:"nudge_enabled"`
	NudgeFrequency int      `mapstructure:"nudge_frequency" json:"nudge_frequency"`
}

// ToolsConfig groups per-tool and global tool-dispatcher settings.
type ToolsConfig struct {
	Prune    ToolConfig    `mapstructure:"prune" json:"prune"`
	Distill  ToolConfig    `mapstructure:"distill" json:"distill"`
	Compress ToolConfig    `mapstructure:"compress" json:"compress"`
	Settings ToolsSettings `mapstructure:"settings" json:"settings"`
}

// StrategyToggle enables/disables one pipeline stage.
type StrategyToggle struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

// PurgeErrorsConfig extends StrategyToggle with the age threshold.
type PurgeErrorsConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	Turns   int  `mapstructure:"turns" json:"turns"`
}

// StrategiesConfig toggles the three pipeline stages.
type StrategiesConfig struct {
	Deduplication   StrategyToggle    `mapstructure:"deduplication" json:"deduplication"`
	SupersedeWrites StrategyToggle    `mapstructure:"supersede_writes" json:"supersede_writes"`
	PurgeErrors     PurgeErrorsConfig `mapstructure:"purge_errors" json:"purge_errors"`
}

// ManualModeConfig controls the manual/automatic split.
type ManualModeConfig struct {
	Enabled             bool `mapstructure:"enabled" json:"enabled"`
	AutomaticStrategies bool `mapstructure:"automatic_strategies" json:"automatic_strategies"`
}

// CommandsConfig toggles the /dcp command family registration.
type CommandsConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

// ModelSelectorConfig configures the background-analyser model negotiation.
type ModelSelectorConfig struct {
	Override              string `mapstructure:"override" json:"override,omitempty"` // "provider/model"
	StrictModelSelection  bool   `mapstructure:"strict_model_selection" json:"strict_model_selection"`
	ShowModelErrorToasts  bool   `mapstructure:"show_model_error_toasts" json:"show_model_error_toasts"`
}

// Config is the recognized DCP configuration document (spec §6).
type Config struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	Debug   bool `mapstructure:"debug" json:"debug"`

	PruningSummary      PruningSummary   `mapstructure:"pruning_summary" json:"pruning_summary"`
	PruneNotificationType NotificationType `mapstructure:"prune_notification_type" json:"prune_notification_type"`

	ProtectedFilePatterns []string `mapstructure:"protected_file_patterns" json:"protected_file_patterns,omitempty"`

	Tools      ToolsConfig      `mapstructure:"tools" json:"tools"`
	Strategies StrategiesConfig `mapstructure:"strategies" json:"strategies"`
	ManualMode ManualModeConfig `mapstructure:"manual_mode" json:"manual_mode"`
	Commands   CommandsConfig   `mapstructure:"commands" json:"commands"`
	Selector   ModelSelectorConfig `mapstructure:"model_selector" json:"model_selector"`
}

// DefaultConfig returns the engine's out-of-the-box configuration,
// mirroring the teacher's DefaultCompactionConfig pattern.
func DefaultConfig() Config {
	return Config{
		Enabled:               true,
		PruningSummary:        SummaryMinimal,
		PruneNotificationType: NotifyToast,
		ProtectedFilePatterns: nil,
		Tools: ToolsConfig{
			Prune:    ToolConfig{Enabled: true},
			Distill:  ToolConfig{Enabled: true, ShowDistillation: true},
			Compress: ToolConfig{Enabled: true, ShowCompression: true},
			Settings: ToolsSettings{
				ProtectedTools: []string{"todoread", "todowrite", "task", "question", "skill"},
				NudgeEnabled:   true,
				NudgeFrequency: 8,
			},
		},
		Strategies: StrategiesConfig{
			Deduplication:   StrategyToggle{Enabled: true},
			SupersedeWrites: StrategyToggle{Enabled: true},
			PurgeErrors:     PurgeErrorsConfig{Enabled: true, Turns: 3},
		},
		ManualMode: ManualModeConfig{Enabled: false, AutomaticStrategies: true},
		Commands:   CommandsConfig{Enabled: true},
	}
}

// IsProtectedTool reports whether a tool name is on the deny-list: the
// fixed `{write, edit}` output-redaction exemption is handled separately
// in the rewriter, this only covers the dispatcher/strategy protection.
func (c Config) IsProtectedTool(name string) bool {
	for _, t := range c.Tools.Settings.ProtectedTools {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}

// AnyPrunerEnabled reports whether prune or distill (the two tools that
// populate the <prunable-tools> manifest) are enabled.
func (c Config) AnyPrunerEnabled() bool {
	return c.Tools.Prune.Enabled || c.Tools.Distill.Enabled
}
