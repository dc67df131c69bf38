package agent

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"wayfarer.app/concierge/common/llm"
	"wayfarer.app/concierge/internal/model"
)

var _ = Describe("Supervisor", func() {
	var (
		client     *mockAgentClient
		supervisor *Supervisor
		evidence   []model.ToolEvidence
	)

	BeforeEach(func() {
		client = &mockAgentClient{}
		supervisor = NewSupervisor(client, 512)
		evidence = []model.ToolEvidence{{
			Name:   "get_weather",
			Input:  map[string]any{"city": "Lisbon", "month": "May"},
			Output: "Climate data for Lisbon, Portugal in May:\n  Average Temperature: 17.5°C\n",
		}}
	})

	Describe("Check", func() {
		It("passes without a model call when no tools were used", func() {
			verdict := supervisor.Check(context.Background(), "Hi!", nil, "Hello!", "")

			Expect(client.callCount).To(Equal(0))
			Expect(verdict.Passed).To(BeTrue())
			Expect(verdict.Verdict).To(Equal(model.VerdictPass))
			Expect(verdict.Reason).To(Equal("No tools used"))
		})

		It("returns a passing verdict on PASS", func() {
			client.chatFn = func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
				return &llm.AgentResponse{Content: "VERDICT: PASS\nREASON: All figures match tool outputs."}, nil
			}

			verdict := supervisor.Check(context.Background(), "Weather in Lisbon in May?", evidence, "Around 17.5°C.", "")

			Expect(verdict.Passed).To(BeTrue())
			Expect(verdict.Verdict).To(Equal(model.VerdictPass))
			Expect(verdict.Reason).To(Equal("All figures match tool outputs."))
		})

		It("returns a failing verdict on FAIL", func() {
			client.chatFn = func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
				return &llm.AgentResponse{Content: "VERDICT: FAIL\nREASON: The response claims 25°C but the tool reported 17.5°C."}, nil
			}

			verdict := supervisor.Check(context.Background(), "Weather in Lisbon in May?", evidence, "A balmy 25°C.", "")

			Expect(verdict.Passed).To(BeFalse())
			Expect(verdict.Verdict).To(Equal(model.VerdictFail))
			Expect(verdict.Reason).To(ContainSubstring("25°C"))
		})

		It("degrades to SKIP when the verification model is unavailable", func() {
			client.chatFn = func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
				return nil, errors.New("connection refused")
			}

			verdict := supervisor.Check(context.Background(), "Weather in Lisbon in May?", evidence, "Around 17.5°C.", "")

			Expect(verdict.Passed).To(BeTrue())
			Expect(verdict.Verdict).To(Equal(model.VerdictSkip))
			Expect(verdict.Reason).To(Equal("Supervisor unavailable"))
		})

		It("sends the check at zero temperature with the evidence and draft", func() {
			client.chatFn = func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
				return &llm.AgentResponse{Content: "VERDICT: PASS\nREASON: ok"}, nil
			}

			supervisor.Check(context.Background(), "Weather in Lisbon in May?", evidence, "Around 17.5°C.", "Home: Berlin")

			Expect(client.requests).To(HaveLen(1))
			req := client.requests[0]
			Expect(req.Temperature).NotTo(BeNil())
			Expect(*req.Temperature).To(BeZero())
			Expect(req.Tools).To(BeEmpty())
			Expect(req.Messages).To(HaveLen(2))

			prompt := req.Messages[1].Content
			Expect(prompt).To(ContainSubstring("USER QUESTION:\nWeather in Lisbon in May?"))
			Expect(prompt).To(ContainSubstring("USER CONTEXT (known, not fabricated):\nHome: Berlin"))
			Expect(prompt).To(ContainSubstring("Tool: get_weather"))
			Expect(prompt).To(ContainSubstring(`"city":"Lisbon"`))
			Expect(prompt).To(ContainSubstring("ASSISTANT RESPONSE:\nAround 17.5°C."))
		})
	})

	Describe("parseVerdict", func() {
		It("handles lowercase and padded labels", func() {
			verdict := parseVerdict("verdict:  fail \nreason: made-up numbers")
			Expect(verdict.Passed).To(BeFalse())
			Expect(verdict.Verdict).To(Equal(model.VerdictFail))
			Expect(verdict.Reason).To(Equal("made-up numbers"))
		})

		It("defaults to PASS when no VERDICT line is present", func() {
			verdict := parseVerdict("The response looks fine to me.")
			Expect(verdict.Passed).To(BeTrue())
			Expect(verdict.Verdict).To(Equal(model.VerdictPass))
			Expect(verdict.Reason).To(BeEmpty())
		})

		It("treats any non-PASS label as failing", func() {
			verdict := parseVerdict("VERDICT: MAYBE\nREASON: unsure")
			Expect(verdict.Passed).To(BeFalse())
		})

		It("ignores surrounding prose", func() {
			content := strings.Join([]string{
				"Let me check the figures.",
				"VERDICT: PASS",
				"REASON: Grounded in tool data.",
				"",
			}, "\n")
			verdict := parseVerdict(content)
			Expect(verdict.Passed).To(BeTrue())
			Expect(verdict.Reason).To(Equal("Grounded in tool data."))
		})
	})
})
