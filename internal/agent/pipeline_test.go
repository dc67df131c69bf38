package agent

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"wayfarer.app/concierge/internal/model"
)

var _ = Describe("Pipeline", func() {
	var (
		executor *mockTurnExecutor
		checker  *mockChecker
		pipeline *Pipeline
	)

	question := "Weather in Lisbon in May?"

	draftLog := func(reply string) []model.Message {
		return []model.Message{
			model.UserMessage("Hi"),
			model.AssistantMessage("Hello! Where to?"),
			model.UserMessage(question),
			model.AssistantMessage("", model.ToolCall{ID: "c1", Name: "get_weather", Arguments: map[string]any{"city": "Lisbon", "month": "May"}}),
			model.ToolResultMessage("c1", "get_weather", "Climate data for Lisbon, Portugal in May:\n  Average Temperature: 17.5°C\n"),
			model.AssistantMessage(reply),
		}
	}

	BeforeEach(func() {
		executor = &mockTurnExecutor{userContext: "Home: Berlin"}
		checker = &mockChecker{}
		pipeline = NewPipeline(executor, checker)
	})

	It("returns the draft with its evidence when the verdict passes", func() {
		executor.executeFn = func(ctx context.Context, threadID, userText string) ([]model.Message, error) {
			return draftLog("Around 17.5°C on average."), nil
		}
		checker.checkFn = func(ctx context.Context, userText string, evidence []model.ToolEvidence, draft, userContext string) model.Verdict {
			Expect(userText).To(Equal(question))
			Expect(evidence).To(HaveLen(1))
			Expect(evidence[0].Name).To(Equal("get_weather"))
			Expect(draft).To(Equal("Around 17.5°C on average."))
			Expect(userContext).To(Equal("Home: Berlin"))
			return model.Verdict{Passed: true, Verdict: model.VerdictPass, Reason: "Grounded."}
		}

		result, err := pipeline.Invoke(context.Background(), "t1", question)

		Expect(err).NotTo(HaveOccurred())
		Expect(executor.callCount).To(Equal(1))
		Expect(checker.callCount).To(Equal(1))
		Expect(result.Response).To(Equal("Around 17.5°C on average."))
		Expect(result.ToolCalls).To(HaveLen(1))
		Expect(result.Supervisor.Verdict).To(Equal(model.VerdictPass))
	})

	It("regenerates once on a failing verdict and force-accepts the retry", func() {
		executor.executeFn = func(ctx context.Context, threadID, userText string) ([]model.Message, error) {
			if executor.callCount == 1 {
				return draftLog("A balmy 25°C."), nil
			}
			return []model.Message{
				model.UserMessage(userText),
				model.AssistantMessage("Corrected: around 17.5°C."),
			}, nil
		}
		checker.checkFn = func(ctx context.Context, userText string, evidence []model.ToolEvidence, draft, userContext string) model.Verdict {
			return model.Verdict{Passed: false, Verdict: model.VerdictFail, Reason: "Temperature does not match tool data"}
		}

		result, err := pipeline.Invoke(context.Background(), "t1", question)

		Expect(err).NotTo(HaveOccurred())
		Expect(executor.callCount).To(Equal(2))
		Expect(checker.callCount).To(Equal(1), "the retry is not re-verified")

		Expect(executor.userTexts[1]).To(Equal(
			"Your previous response was flagged by the supervisor: Temperature does not match tool data. " +
				"Please regenerate your response using ONLY data from the tools. Do not fabricate any information."))

		Expect(result.Response).To(Equal("Corrected: around 17.5°C."))
		Expect(result.Supervisor).To(Equal(model.Verdict{Passed: true, Verdict: model.VerdictPass, Reason: "After retry"}))
		// Evidence stays from the original draft turn.
		Expect(result.ToolCalls).To(HaveLen(1))
		Expect(result.ToolCalls[0].Name).To(Equal("get_weather"))
	})

	It("keeps the first draft when the retry produces no reply text", func() {
		executor.executeFn = func(ctx context.Context, threadID, userText string) ([]model.Message, error) {
			if executor.callCount == 1 {
				return draftLog("A balmy 25°C."), nil
			}
			return []model.Message{model.UserMessage(userText)}, nil
		}
		checker.checkFn = func(ctx context.Context, userText string, evidence []model.ToolEvidence, draft, userContext string) model.Verdict {
			return model.Verdict{Passed: false, Verdict: model.VerdictFail, Reason: "fabricated"}
		}

		result, err := pipeline.Invoke(context.Background(), "t1", question)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Response).To(Equal("A balmy 25°C."))
		Expect(result.Supervisor.Reason).To(Equal("After retry"))
	})

	It("propagates a draft turn failure", func() {
		executor.executeFn = func(ctx context.Context, threadID, userText string) ([]model.Message, error) {
			return nil, errors.New("model unavailable")
		}

		result, err := pipeline.Invoke(context.Background(), "t1", question)

		Expect(err).To(MatchError(ContainSubstring("model unavailable")))
		Expect(result).To(BeNil())
		Expect(checker.callCount).To(Equal(0))
	})

	It("propagates a retry turn failure", func() {
		executor.executeFn = func(ctx context.Context, threadID, userText string) ([]model.Message, error) {
			if executor.callCount == 1 {
				return draftLog("A balmy 25°C."), nil
			}
			return nil, errors.New("model unavailable")
		}
		checker.checkFn = func(ctx context.Context, userText string, evidence []model.ToolEvidence, draft, userContext string) model.Verdict {
			return model.Verdict{Passed: false, Verdict: model.VerdictFail, Reason: "fabricated"}
		}

		result, err := pipeline.Invoke(context.Background(), "t1", question)

		Expect(err).To(MatchError(ContainSubstring("model unavailable")))
		Expect(result).To(BeNil())
		Expect(executor.callCount).To(Equal(2))
	})

	It("passes a SKIP verdict through without retrying", func() {
		executor.executeFn = func(ctx context.Context, threadID, userText string) ([]model.Message, error) {
			return draftLog("Around 17.5°C."), nil
		}
		checker.checkFn = func(ctx context.Context, userText string, evidence []model.ToolEvidence, draft, userContext string) model.Verdict {
			return model.Verdict{Passed: true, Verdict: model.VerdictSkip, Reason: "Supervisor unavailable"}
		}

		result, err := pipeline.Invoke(context.Background(), "t1", question)

		Expect(err).NotTo(HaveOccurred())
		Expect(executor.callCount).To(Equal(1))
		Expect(result.Supervisor.Verdict).To(Equal(model.VerdictSkip))
	})
})
