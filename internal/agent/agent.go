package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"wayfarer.app/concierge/common/llm"
	"wayfarer.app/concierge/common/logger"
	"wayfarer.app/concierge/internal/memory"
	"wayfarer.app/concierge/internal/model"
	"wayfarer.app/concierge/internal/thread"
)

// maxToolIterations bounds the tool-calling loop within one turn. On
// hitting the ceiling the model is forced to answer from what it has.
const maxToolIterations = 8

const systemPromptTemplate = `You are a friendly and knowledgeable Trip Location Planner.

You help users discover the perfect travel destination based on their preferences,
interests, budget, and timing.

## Your Tools

You have access to these tools:
- **get_weather**: Check climate/weather data for a city in a specific month. Use this
  to verify if a destination has suitable weather for what the user wants.
- **search_places**: Search for attractions, restaurants, activities, and things to do
  at a destination. Use this to find specific activities the user is interested in.
- **save_user_preferences**: Save the user's travel preferences for future sessions.
- **get_user_preferences**: Load previously saved preferences at the start of a conversation.

## How to Behave

1. **Be concise**: Keep responses short and to the point. Use bullet points or short
   paragraphs. Don't write essays. 3-5 sentences for simple answers, a short structured
   list for destination recommendations.

2. **Detect missing information**: If the user's request is incomplete (missing destination,
   dates/month, interests), ask for the missing details before using tools.
   For example, if they say "I want to go skiing" — ask when they want to go.

3. **Use tools wisely**: Only call tools when you have enough info to make the call useful.
   You can call multiple tools if needed. Don't call tools for general conversation.

4. **Be grounded**: When presenting weather data or places, use the actual data from tools.
   Don't invent temperatures, ratings, or place names.

5. **Be conversational**: You're a travel advisor, not a robot. Be warm but brief.

6. **Remember context**: Use the chat history to understand follow-up questions.

7. **Self-correct**: If a tool returns an error, try an alternative or explain the limitation.

8. **Home location**: The user's home location is provided below. You know this from their
   profile — it's not fabricated. Use it naturally for context when relevant.

## User's Home Location
%s

## User's Saved Preferences
%s`

// ToolExecutor declares the callable tool set and runs individual tools.
// Satisfied by *tools.Registry.
type ToolExecutor interface {
	Definitions() []llm.Tool
	Execute(ctx context.Context, name, arguments string) (string, error)
}

// Agent executes conversation turns. Each turn appends the user's message
// to the thread's log, drives the model through a bounded tool-calling
// loop, and returns the thread's full message log with the new messages
// included. Messages are append-only; the agent never rewrites history.
type Agent struct {
	llm       llm.AgentClient
	tools     ToolExecutor
	store     memory.Store
	log       *thread.Log
	maxTokens int
}

func New(client llm.AgentClient, toolExec ToolExecutor, store memory.Store, log *thread.Log, maxTokens int) *Agent {
	return &Agent{
		llm:       client,
		tools:     toolExec,
		store:     store,
		log:       log,
		maxTokens: maxTokens,
	}
}

// ExecuteTurn runs one conversation turn for the thread and returns the
// full message log, history included. A model failure is fatal for the
// turn and propagates: there is no meaningful response without a model.
func (a *Agent) ExecuteTurn(ctx context.Context, threadID, userText string) ([]model.Message, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ThreadID:  logger.Ptr(threadID),
		Component: "concierge.agent",
	})

	start := time.Now()
	a.log.Append(threadID, model.UserMessage(userText))

	systemPrompt := a.systemPrompt(ctx)

	for iteration := 1; ; iteration++ {
		if iteration > maxToolIterations {
			slog.InfoContext(ctx, "tool iteration limit reached, forcing final answer",
				"iterations", iteration-1)
			a.log.Append(threadID, model.UserMessage(
				"Wrap up now. Answer using only the data you have already collected; do not call any more tools."))

			if err := a.step(ctx, threadID, systemPrompt, nil); err != nil {
				return nil, err
			}
			break
		}

		resp, err := a.chat(ctx, threadID, systemPrompt, a.tools.Definitions())
		if err != nil {
			return nil, err
		}

		// No tool calls means the model produced its final reply.
		if len(resp.ToolCalls) == 0 {
			a.log.Append(threadID, model.AssistantMessage(resp.Content))
			break
		}

		a.log.Append(threadID, model.AssistantMessage(resp.Content, toModelCalls(resp.ToolCalls)...))

		// Tools run sequentially: one logical thread of control per turn.
		for _, tc := range resp.ToolCalls {
			result, err := a.tools.Execute(ctx, tc.Name, tc.Arguments)
			if err != nil {
				result = fmt.Sprintf("Error: %s", err)
			}
			a.log.Append(threadID, model.ToolResultMessage(tc.ID, tc.Name, result))
		}
	}

	messages := a.log.Messages(threadID)
	slog.InfoContext(ctx, "turn completed",
		"messages", len(messages),
		"latency_ms", time.Since(start).Milliseconds())

	return messages, nil
}

// step performs a single model call (optionally without tools) and appends
// the assistant's reply to the log.
func (a *Agent) step(ctx context.Context, threadID, systemPrompt string, tools []llm.Tool) error {
	resp, err := a.chat(ctx, threadID, systemPrompt, tools)
	if err != nil {
		return err
	}
	a.log.Append(threadID, model.AssistantMessage(resp.Content))
	return nil
}

func (a *Agent) chat(ctx context.Context, threadID, systemPrompt string, tools []llm.Tool) (*llm.AgentResponse, error) {
	messages := make([]llm.Message, 0, a.log.Len(threadID)+1)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, toLLMMessages(a.log.Messages(threadID))...)

	resp, err := a.llm.ChatWithTools(ctx, llm.AgentRequest{
		Messages:  messages,
		Tools:     tools,
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("agent turn: %w", err)
	}
	return resp, nil
}

// systemPrompt renders the agent persona with the user's current home
// location and saved preferences. Read per turn so that onboarding and
// preference saves take effect on the next turn without a restart.
func (a *Agent) systemPrompt(ctx context.Context) string {
	home := "Not set yet"
	if value, ok, err := a.store.Get(ctx, memory.NamespaceUser, memory.KeyHomeLocation); err == nil && ok {
		if s, isString := value.(string); isString && s != "" {
			home = s
		}
	}

	prefs := "None saved yet"
	if value, ok, err := a.store.Get(ctx, memory.NamespaceUser, memory.KeyPreferences); err == nil && ok && value != nil {
		if encoded, err := json.Marshal(value); err == nil {
			prefs = string(encoded)
		}
	}

	return fmt.Sprintf(systemPromptTemplate, home, prefs)
}

// UserContext renders the non-tool user context (home location, saved
// preferences) shared with the supervisor, which must never flag it as
// fabricated.
func (a *Agent) UserContext(ctx context.Context) string {
	var parts []string

	if value, ok, err := a.store.Get(ctx, memory.NamespaceUser, memory.KeyHomeLocation); err == nil && ok {
		if s, isString := value.(string); isString && s != "" {
			parts = append(parts, "Home: "+s)
		}
	}
	if value, ok, err := a.store.Get(ctx, memory.NamespaceUser, memory.KeyPreferences); err == nil && ok && value != nil {
		if encoded, err := json.Marshal(value); err == nil {
			parts = append(parts, "Preferences: "+string(encoded))
		}
	}

	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return parts[0] + "\n" + parts[1]
	}
}

func toModelCalls(calls []llm.ToolCall) []model.ToolCall {
	result := make([]model.ToolCall, len(calls))
	for i, tc := range calls {
		args := map[string]any{}
		// Unparsable arguments are kept out of the record rather than
		// failing the turn; the tool itself reports the parse error.
		_ = json.Unmarshal([]byte(tc.Arguments), &args)
		result[i] = model.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: args}
	}
	return result
}

func toLLMMessages(msgs []model.Message) []llm.Message {
	result := make([]llm.Message, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case model.RoleUser:
			result = append(result, llm.Message{Role: "user", Content: msg.Content})

		case model.RoleAssistant:
			out := llm.Message{Role: "assistant", Content: msg.Content}
			for _, tc := range msg.ToolCalls {
				args, _ := json.Marshal(tc.Arguments)
				out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
					ID:        tc.ID,
					Name:      tc.Name,
					Arguments: string(args),
				})
			}
			result = append(result, out)

		case model.RoleTool:
			result = append(result, llm.Message{
				Role:       "tool",
				Content:    msg.Content,
				ToolCallID: msg.ToolCallID,
			})
		}
	}
	return result
}
