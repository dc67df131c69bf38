package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"wayfarer.app/concierge/internal/agent"
	"wayfarer.app/concierge/internal/http/dto"
	"wayfarer.app/concierge/internal/memory"
	"wayfarer.app/concierge/internal/model"
	"wayfarer.app/concierge/internal/thread"
)

// ChatPipeline runs one verified conversation turn. Satisfied by
// *agent.Pipeline.
type ChatPipeline interface {
	Invoke(ctx context.Context, threadID, userText string) (*agent.Result, error)
}

type ChatHandler struct {
	pipeline ChatPipeline
	store    memory.Store
}

func NewChatHandler(pipeline ChatPipeline, store memory.Store) *ChatHandler {
	return &ChatHandler{pipeline: pipeline, store: store}
}

// Chat handles one conversation turn. An absent thread_id starts a new
// thread. A pipeline error means the primary model failed, which maps to
// 502: the upstream dependency, not this service, broke.
func (h *ChatHandler) Chat(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid chat request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	threadID := req.ThreadID
	if threadID == "" {
		threadID = thread.NewThreadID()
	}

	result, err := h.pipeline.Invoke(ctx, threadID, req.Message)
	if err != nil {
		slog.ErrorContext(ctx, "chat turn failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "language model unavailable"})
		return
	}

	toolCalls := result.ToolCalls
	if toolCalls == nil {
		toolCalls = []model.ToolEvidence{}
	}

	c.JSON(http.StatusOK, dto.ChatResponse{
		ThreadID:   threadID,
		Response:   result.Response,
		ToolCalls:  toolCalls,
		Supervisor: result.Supervisor,
	})
}

// Onboard stores the user's home location, which the assistant then
// treats as known context rather than a tool-sourced fact.
func (h *ChatHandler) Onboard(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.OnboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid onboarding request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.Put(ctx, memory.NamespaceUser, memory.KeyHomeLocation, req.HomeLocation); err != nil {
		slog.ErrorContext(ctx, "failed to store home location", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store home location"})
		return
	}

	c.JSON(http.StatusOK, dto.OnboardResponse{HomeLocation: req.HomeLocation})
}

// Preferences returns the stored home location and saved travel
// preferences, if any.
func (h *ChatHandler) Preferences(c *gin.Context) {
	ctx := c.Request.Context()

	var resp dto.PreferencesResponse

	if value, ok, err := h.store.Get(ctx, memory.NamespaceUser, memory.KeyHomeLocation); err != nil {
		slog.ErrorContext(ctx, "failed to load home location", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load preferences"})
		return
	} else if ok {
		if s, isString := value.(string); isString {
			resp.HomeLocation = s
		}
	}

	if value, ok, err := h.store.Get(ctx, memory.NamespaceUser, memory.KeyPreferences); err != nil {
		slog.ErrorContext(ctx, "failed to load preferences", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load preferences"})
		return
	} else if ok {
		resp.Preferences = value
	}

	c.JSON(http.StatusOK, resp)
}
