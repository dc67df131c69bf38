package model

// ToolEvidence is the reconstructed record of one tool invocation within a
// turn: which tool ran, with which input, and what it returned. Evidence is
// built fresh per turn and serves as ground truth for supervision.
type ToolEvidence struct {
	Name   string         `json:"name"`
	Input  map[string]any `json:"input"`
	Output string         `json:"output"`
}

// Verdict labels returned by the supervisor.
const (
	VerdictPass = "PASS"
	VerdictFail = "FAIL"
	VerdictSkip = "SKIP"
)

// Verdict is the supervisor's judgement of a draft reply.
type Verdict struct {
	Passed  bool   `json:"passed"`
	Verdict string `json:"verdict"`
	Reason  string `json:"reason"`
}
