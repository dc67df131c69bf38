package agent

import "wayfarer.app/concierge/internal/model"

// ExtractEvidence reconstructs, for each tool-result message in the turn,
// which tool was called with which arguments, by correlating the result's
// call ID back to the invocation entry emitted by an assistant message.
// One ToolEvidence is emitted per tool-result message, in log order. A
// result whose call ID was not observed in-turn still yields evidence,
// under the name "unknown" with empty arguments: extraction never drops
// a tool output.
func ExtractEvidence(turn []model.Message) []model.ToolEvidence {
	type callInfo struct {
		name string
		args map[string]any
	}

	calls := make(map[string]callInfo)
	for _, msg := range turn {
		if msg.Role != model.RoleAssistant {
			continue
		}
		for _, tc := range msg.ToolCalls {
			calls[tc.ID] = callInfo{name: tc.Name, args: tc.Arguments}
		}
	}

	var evidence []model.ToolEvidence
	for _, msg := range turn {
		if msg.Role != model.RoleTool {
			continue
		}

		info, ok := calls[msg.ToolCallID]
		if !ok {
			info = callInfo{name: "unknown", args: map[string]any{}}
		}
		if info.args == nil {
			info.args = map[string]any{}
		}

		evidence = append(evidence, model.ToolEvidence{
			Name:   info.name,
			Input:  info.args,
			Output: msg.Content,
		})
	}

	return evidence
}

// DraftReply returns the turn's draft assistant reply: the last assistant
// message with non-empty text content, or "" when the turn produced none.
func DraftReply(turn []model.Message) string {
	for i := len(turn) - 1; i >= 0; i-- {
		if turn[i].Role == model.RoleAssistant && turn[i].Content != "" {
			return turn[i].Content
		}
	}
	return ""
}
