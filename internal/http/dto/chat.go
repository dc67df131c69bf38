package dto

import "wayfarer.app/concierge/internal/model"

type ChatRequest struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message" binding:"required"`
}

type ChatResponse struct {
	ThreadID   string               `json:"thread_id"`
	Response   string               `json:"response"`
	ToolCalls  []model.ToolEvidence `json:"tool_calls"`
	Supervisor model.Verdict        `json:"supervisor"`
}

type OnboardRequest struct {
	HomeLocation string `json:"home_location" binding:"required"`
}

type OnboardResponse struct {
	HomeLocation string `json:"home_location"`
}

type PreferencesResponse struct {
	HomeLocation string `json:"home_location,omitempty"`
	Preferences  any    `json:"preferences,omitempty"`
}
