package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wayfarer.app/concierge/common/logger"
	"wayfarer.app/concierge/internal/model"
)

// Result is the outcome of one pipeline invocation: the final reply, the
// tool evidence gathered during the draft turn, and the supervisor's
// verdict (or the forced verdict after a retry).
type Result struct {
	Response   string
	ToolCalls  []model.ToolEvidence
	Supervisor model.Verdict
}

// TurnExecutor runs one conversation turn and returns the thread's full
// message log. Satisfied by *Agent.
type TurnExecutor interface {
	ExecuteTurn(ctx context.Context, threadID, userText string) ([]model.Message, error)
	UserContext(ctx context.Context) string
}

// Checker renders a verdict on a draft reply. Satisfied by *Supervisor.
type Checker interface {
	Check(ctx context.Context, userText string, evidence []model.ToolEvidence, draft, userContext string) model.Verdict
}

// Pipeline orchestrates the tool-grounded response flow: execute a turn,
// partition out the turn's messages, reconstruct tool evidence, verify
// the draft against it, and regenerate at most once on a failing verdict.
type Pipeline struct {
	agent      TurnExecutor
	supervisor Checker
}

func NewPipeline(agent TurnExecutor, supervisor Checker) *Pipeline {
	return &Pipeline{agent: agent, supervisor: supervisor}
}

// Invoke runs one full request. The turn executor is called at most
// twice: once for the draft and, only on a failing verdict, once more
// with a corrective instruction. The retried reply is accepted
// unconditionally — bounding regeneration to a single attempt trades
// verification precision for availability, deliberately.
func (p *Pipeline) Invoke(ctx context.Context, threadID, userText string) (*Result, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ThreadID:  logger.Ptr(threadID),
		Component: "concierge.pipeline",
	})
	sc := logger.StartSpan(ctx, "concierge.pipeline.invoke")
	defer sc.End()
	ctx = sc.Context()

	start := time.Now()

	fullLog, err := p.agent.ExecuteTurn(ctx, threadID, userText)
	if err != nil {
		sc.RecordError(err)
		return nil, err
	}

	turn := PartitionTurn(fullLog, userText)
	evidence := ExtractEvidence(turn)
	draft := DraftReply(turn)
	userContext := p.agent.UserContext(ctx)

	verdict := p.supervisor.Check(ctx, userText, evidence, draft, userContext)

	if !verdict.Passed {
		slog.InfoContext(ctx, "draft failed verification, regenerating once",
			"reason", verdict.Reason)

		retryText := fmt.Sprintf(
			"Your previous response was flagged by the supervisor: %s. "+
				"Please regenerate your response using ONLY data from the tools. "+
				"Do not fabricate any information.",
			verdict.Reason)

		retryLog, err := p.agent.ExecuteTurn(ctx, threadID, retryText)
		if err != nil {
			sc.RecordError(err)
			return nil, err
		}

		if reply := DraftReply(PartitionTurn(retryLog, retryText)); reply != "" {
			draft = reply
		}

		// One correction attempt only. The retried reply is force-accepted
		// without a second verification round.
		verdict = model.Verdict{Passed: true, Verdict: model.VerdictPass, Reason: "After retry"}
	}

	slog.InfoContext(ctx, "pipeline completed",
		"verdict", verdict.Verdict,
		"tool_calls", len(evidence),
		"latency_ms", time.Since(start).Milliseconds())

	return &Result{
		Response:   draft,
		ToolCalls:  evidence,
		Supervisor: verdict,
	}, nil
}
