package tool

import (
	"context"
	"fmt"
)

// TaskTool accepts a subtask request and echoes it back; no subagent session
// is started and the prompt is not executed.
func TaskTool() *ToolDef {
	return &ToolDef{
		Name:        "task",
		Description: "Record a subtask request. No separate agent session is started; the request is echoed back.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"prompt": map[string]interface{}{
					"type":        "string",
					"description": "Detailed instructions for the subtask agent",
				},
				"agent": map[string]interface{}{
					"type":        "string",
					"description": "Agent type to use: 'explorer' (fast read-only), 'researcher' (general purpose). Default: explorer",
					"enum":        []string{"explorer", "researcher"},
				},
			},
			"required": []string{"prompt"},
		},
		Execute: func(ctx context.Context, tc *ToolContext, input map[string]interface{}) (*ToolResult, error) {
			prompt, _ := input["prompt"].(string)
			if prompt == "" {
				return &ToolResult{Output: "Error: prompt is required", IsError: true}, nil
			}

			agentType := "explorer"
			if v, ok := input["agent"].(string); ok && v != "" {
				agentType = v
			}

			// No subtask session is created here, and nothing else picks the
			// request up; the result only echoes the agent type and prompt.
			return &ToolResult{
				Output: fmt.Sprintf("[Task recorded] Agent: %s\nPrompt: %s\n\nNote: No subtask session was started for this request.", agentType, prompt),
			}, nil
		},
	}
}
