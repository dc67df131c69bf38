package agent

import "wayfarer.app/concierge/internal/model"

// PartitionTurn isolates the messages produced during the current turn:
// everything strictly after the last user message whose content exactly
// equals userText. The log carries no explicit turn markers, so the
// literal text is the only reliable boundary; scanning from the end
// attaches evidence to the most recent occurrence when the same text was
// sent in an earlier turn.
//
// If no matching user message exists — which should not happen under
// correct use — the entire log is returned as a defensive fallback, not
// a correctness guarantee.
func PartitionTurn(log []model.Message, userText string) []model.Message {
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].Role == model.RoleUser && log[i].Content == userText {
			return log[i+1:]
		}
	}
	return log
}
