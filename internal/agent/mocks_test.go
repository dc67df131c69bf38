package agent

import (
	"context"

	"wayfarer.app/concierge/common/llm"
	"wayfarer.app/concierge/internal/model"
)

// mockAgentClient implements llm.AgentClient with a pluggable function.
type mockAgentClient struct {
	chatFn    func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error)
	callCount int
	requests  []llm.AgentRequest
}

func (m *mockAgentClient) ChatWithTools(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
	m.callCount++
	m.requests = append(m.requests, req)
	return m.chatFn(ctx, req)
}

func (m *mockAgentClient) Model() string { return "mock-model" }

// mockToolExecutor implements ToolExecutor with a pluggable function.
type mockToolExecutor struct {
	definitions []llm.Tool
	executeFn   func(ctx context.Context, name, arguments string) (string, error)
	executed    []string
}

func (m *mockToolExecutor) Definitions() []llm.Tool { return m.definitions }

func (m *mockToolExecutor) Execute(ctx context.Context, name, arguments string) (string, error) {
	m.executed = append(m.executed, name)
	if m.executeFn != nil {
		return m.executeFn(ctx, name, arguments)
	}
	return "ok", nil
}

// mockTurnExecutor implements TurnExecutor with a pluggable function.
type mockTurnExecutor struct {
	executeFn   func(ctx context.Context, threadID, userText string) ([]model.Message, error)
	userContext string
	callCount   int
	userTexts   []string
}

func (m *mockTurnExecutor) ExecuteTurn(ctx context.Context, threadID, userText string) ([]model.Message, error) {
	m.callCount++
	m.userTexts = append(m.userTexts, userText)
	return m.executeFn(ctx, threadID, userText)
}

func (m *mockTurnExecutor) UserContext(ctx context.Context) string { return m.userContext }

// mockChecker implements Checker with a pluggable function.
type mockChecker struct {
	checkFn   func(ctx context.Context, userText string, evidence []model.ToolEvidence, draft, userContext string) model.Verdict
	callCount int
}

func (m *mockChecker) Check(ctx context.Context, userText string, evidence []model.ToolEvidence, draft, userContext string) model.Verdict {
	m.callCount++
	return m.checkFn(ctx, userText, evidence, draft, userContext)
}
