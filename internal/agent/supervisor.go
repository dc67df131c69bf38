package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"wayfarer.app/concierge/common/llm"
	"wayfarer.app/concierge/common/logger"
	"wayfarer.app/concierge/internal/model"
)

const supervisorSystemPrompt = `You are a Supervisor that validates AI assistant responses for accuracy.

You will receive:
1. The user's original question
2. The user's known context (home location, preferences — this is NOT fabricated)
3. Tool outputs (the evidence/data collected)
4. The assistant's draft response

Your job: check if TOOL-SOURCED claims in the response match the actual tool outputs.
- Temperatures, precipitation, snowfall numbers must match tool data.
- Place names, categories, and addresses must come from tool results.
- The assistant mentioning the user's home location or preferences is FINE — that comes
  from user context, not tools. Do NOT flag it.
- General travel advice and knowledge is FINE — only flag fabricated SPECIFIC data
  (numbers, place names, ratings) that should have come from tools but didn't.

If no tools were used, PASS.

Respond with EXACTLY this format:
VERDICT: PASS or FAIL
REASON: Brief explanation (one sentence)`

// Supervisor independently cross-checks a draft reply against the turn's
// tool evidence. The verification client is injected and constructed once
// at startup, then reused across requests.
type Supervisor struct {
	llm       llm.AgentClient
	maxTokens int
}

func NewSupervisor(client llm.AgentClient, maxTokens int) *Supervisor {
	return &Supervisor{llm: client, maxTokens: maxTokens}
}

// Check renders a verdict on the draft reply.
//
// A turn that consulted no tools cannot fabricate tool-sourced facts, so
// an empty evidence list short-circuits to PASS without a model call. A
// failing verification call degrades to a neutral SKIP pass: verification
// unavailability must never block a user-visible response.
func (s *Supervisor) Check(ctx context.Context, userText string, evidence []model.ToolEvidence, draft, userContext string) model.Verdict {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "concierge.supervisor"})

	if len(evidence) == 0 {
		slog.DebugContext(ctx, "supervisor skipped, no tools used")
		return model.Verdict{Passed: true, Verdict: model.VerdictPass, Reason: "No tools used"}
	}

	start := time.Now()
	temperature := 0.0

	resp, err := s.llm.ChatWithTools(ctx, llm.AgentRequest{
		Messages: []llm.Message{
			{Role: "system", Content: supervisorSystemPrompt},
			{Role: "user", Content: s.checkPrompt(userText, evidence, draft, userContext)},
		},
		MaxTokens:   s.maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		slog.WarnContext(ctx, "supervisor unavailable, passing turn unverified", "error", err)
		return model.Verdict{Passed: true, Verdict: model.VerdictSkip, Reason: "Supervisor unavailable"}
	}

	verdict := parseVerdict(resp.Content)

	slog.InfoContext(ctx, "supervisor verdict",
		"verdict", verdict.Verdict,
		"reason", verdict.Reason,
		"evidence_count", len(evidence),
		"latency_ms", time.Since(start).Milliseconds())

	return verdict
}

func (s *Supervisor) checkPrompt(userText string, evidence []model.ToolEvidence, draft, userContext string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "USER QUESTION:\n%s\n\n", userText)
	fmt.Fprintf(&b, "USER CONTEXT (known, not fabricated):\n%s\n\n", userContext)

	b.WriteString("TOOL EVIDENCE:\n")
	for i, ev := range evidence {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Tool: %s\nInput: %s\nOutput: %s\n", ev.Name, formatInput(ev.Input), ev.Output)
	}

	fmt.Fprintf(&b, "\nASSISTANT RESPONSE:\n%s\n\n", draft)
	b.WriteString("Are the tool-sourced claims in the response grounded in the tool evidence?")

	return b.String()
}

func formatInput(input map[string]any) string {
	encoded, err := json.Marshal(input)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

// parseVerdict reads the two-line VERDICT:/REASON: protocol. The verdict
// label is case-normalized; anything other than PASS fails. A response
// missing the VERDICT line passes by default: on ambiguity, PASS.
func parseVerdict(content string) model.Verdict {
	verdict := model.VerdictPass
	reason := ""

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "VERDICT:"):
			verdict = strings.ToUpper(strings.TrimSpace(line[len("VERDICT:"):]))
		case strings.HasPrefix(upper, "REASON:"):
			reason = strings.TrimSpace(line[len("REASON:"):])
		}
	}

	return model.Verdict{
		Passed:  verdict == model.VerdictPass,
		Verdict: verdict,
		Reason:  reason,
	}
}
