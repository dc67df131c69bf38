package agent

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"wayfarer.app/concierge/common/llm"
	"wayfarer.app/concierge/internal/memory"
	"wayfarer.app/concierge/internal/model"
	"wayfarer.app/concierge/internal/thread"
)

var _ = Describe("Agent", func() {
	var (
		client *mockAgentClient
		tools  *mockToolExecutor
		store  *memory.InMemoryStore
		log    *thread.Log
		agent  *Agent
	)

	weatherTool := llm.Tool{Name: "get_weather", Description: "Check climate data", Parameters: map[string]any{}}

	BeforeEach(func() {
		client = &mockAgentClient{}
		tools = &mockToolExecutor{definitions: []llm.Tool{weatherTool}}
		store = memory.NewInMemoryStore()
		log = thread.NewLog()
		agent = New(client, tools, store, log, 4096)
	})

	Describe("ExecuteTurn", func() {
		It("appends the user message and the final reply when no tools are called", func() {
			client.chatFn = func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
				return &llm.AgentResponse{Content: "Hello! Where would you like to go?"}, nil
			}

			messages, err := agent.ExecuteTurn(context.Background(), "t1", "Hi")

			Expect(err).NotTo(HaveOccurred())
			Expect(messages).To(HaveLen(2))
			Expect(messages[0]).To(Equal(model.UserMessage("Hi")))
			Expect(messages[1].Role).To(Equal(model.RoleAssistant))
			Expect(messages[1].Content).To(Equal("Hello! Where would you like to go?"))
		})

		It("runs requested tools and records their results before the final reply", func() {
			client.chatFn = func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
				if client.callCount == 1 {
					return &llm.AgentResponse{
						ToolCalls: []llm.ToolCall{{ID: "c1", Name: "get_weather", Arguments: `{"city":"Lisbon","month":"May"}`}},
					}, nil
				}
				return &llm.AgentResponse{Content: "May in Lisbon averages 17.5°C."}, nil
			}
			tools.executeFn = func(ctx context.Context, name, arguments string) (string, error) {
				return "Climate data for Lisbon...", nil
			}

			messages, err := agent.ExecuteTurn(context.Background(), "t1", "Weather in Lisbon in May?")

			Expect(err).NotTo(HaveOccurred())
			Expect(tools.executed).To(Equal([]string{"get_weather"}))
			Expect(messages).To(HaveLen(4))

			Expect(messages[1].Role).To(Equal(model.RoleAssistant))
			Expect(messages[1].ToolCalls).To(HaveLen(1))
			Expect(messages[1].ToolCalls[0].Arguments).To(HaveKeyWithValue("city", "Lisbon"))

			Expect(messages[2].Role).To(Equal(model.RoleTool))
			Expect(messages[2].ToolCallID).To(Equal("c1"))
			Expect(messages[2].Content).To(Equal("Climate data for Lisbon..."))

			Expect(messages[3].Content).To(Equal("May in Lisbon averages 17.5°C."))
		})

		It("records a tool failure as an error result and continues the turn", func() {
			client.chatFn = func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
				if client.callCount == 1 {
					return &llm.AgentResponse{
						ToolCalls: []llm.ToolCall{{ID: "c1", Name: "get_weather", Arguments: `{`}},
					}, nil
				}
				return &llm.AgentResponse{Content: "Sorry, I couldn't fetch the weather."}, nil
			}
			tools.executeFn = func(ctx context.Context, name, arguments string) (string, error) {
				return "", errors.New("parse tool arguments: unexpected end of JSON input")
			}

			messages, err := agent.ExecuteTurn(context.Background(), "t1", "Weather?")

			Expect(err).NotTo(HaveOccurred())
			Expect(messages[2].Role).To(Equal(model.RoleTool))
			Expect(messages[2].Content).To(HavePrefix("Error: "))
			Expect(messages[2].Content).To(ContainSubstring("parse tool arguments"))
		})

		It("propagates a model failure and keeps only the user message", func() {
			client.chatFn = func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
				return nil, errors.New("rate limited")
			}

			messages, err := agent.ExecuteTurn(context.Background(), "t1", "Hi")

			Expect(err).To(MatchError(ContainSubstring("rate limited")))
			Expect(messages).To(BeNil())
			Expect(log.Len("t1")).To(Equal(1))
		})

		It("forces a final answer once the tool iteration limit is hit", func() {
			client.chatFn = func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
				if req.Tools == nil {
					return &llm.AgentResponse{Content: "Here is what I found so far."}, nil
				}
				return &llm.AgentResponse{
					ToolCalls: []llm.ToolCall{{
						ID:        fmt.Sprintf("c%d", client.callCount),
						Name:      "get_weather",
						Arguments: `{"city":"Lisbon"}`,
					}},
				}, nil
			}

			messages, err := agent.ExecuteTurn(context.Background(), "t1", "Check everything")

			Expect(err).NotTo(HaveOccurred())
			Expect(tools.executed).To(HaveLen(maxToolIterations))
			// One tool-bearing call per allowed iteration, then one forced
			// call without tools.
			Expect(client.callCount).To(Equal(maxToolIterations + 1))

			final := messages[len(messages)-1]
			Expect(final.Role).To(Equal(model.RoleAssistant))
			Expect(final.Content).To(Equal("Here is what I found so far."))

			wrapUp := messages[len(messages)-2]
			Expect(wrapUp.Role).To(Equal(model.RoleUser))
			Expect(wrapUp.Content).To(ContainSubstring("Wrap up now"))
		})

		It("sends the system prompt with stored home location and preferences", func() {
			Expect(store.Put(context.Background(), memory.NamespaceUser, memory.KeyHomeLocation, "Berlin, Germany")).To(Succeed())
			Expect(store.Put(context.Background(), memory.NamespaceUser, memory.KeyPreferences, map[string]any{"style": "budget"})).To(Succeed())

			client.chatFn = func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
				return &llm.AgentResponse{Content: "ok"}, nil
			}

			_, err := agent.ExecuteTurn(context.Background(), "t1", "Hi")

			Expect(err).NotTo(HaveOccurred())
			system := client.requests[0].Messages[0]
			Expect(system.Role).To(Equal("system"))
			Expect(system.Content).To(ContainSubstring("Berlin, Germany"))
			Expect(system.Content).To(ContainSubstring(`"style":"budget"`))
		})

		It("keeps prior turns in the model conversation", func() {
			client.chatFn = func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
				return &llm.AgentResponse{Content: "reply"}, nil
			}

			_, err := agent.ExecuteTurn(context.Background(), "t1", "First question")
			Expect(err).NotTo(HaveOccurred())
			_, err = agent.ExecuteTurn(context.Background(), "t1", "Second question")
			Expect(err).NotTo(HaveOccurred())

			// system + first user + first reply + second user
			Expect(client.requests[1].Messages).To(HaveLen(4))
			Expect(client.requests[1].Messages[1].Content).To(Equal("First question"))
		})
	})

	Describe("UserContext", func() {
		It("is empty with nothing stored", func() {
			Expect(agent.UserContext(context.Background())).To(BeEmpty())
		})

		It("renders home location and preferences on separate lines", func() {
			Expect(store.Put(context.Background(), memory.NamespaceUser, memory.KeyHomeLocation, "Berlin, Germany")).To(Succeed())
			Expect(store.Put(context.Background(), memory.NamespaceUser, memory.KeyPreferences, map[string]any{"style": "budget"})).To(Succeed())

			userCtx := agent.UserContext(context.Background())
			Expect(userCtx).To(Equal("Home: Berlin, Germany\nPreferences: {\"style\":\"budget\"}"))
		})

		It("renders home location alone", func() {
			Expect(store.Put(context.Background(), memory.NamespaceUser, memory.KeyHomeLocation, "Berlin, Germany")).To(Succeed())
			Expect(agent.UserContext(context.Background())).To(Equal("Home: Berlin, Germany"))
		})
	})
})
