package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wayfarer.app/concierge/common/llm"
	"wayfarer.app/concierge/common/logger"
	"wayfarer.app/concierge/internal/memory"
)

// Tool parameter structs

// WeatherParams for monthly climate lookups.
type WeatherParams struct {
	City    string `json:"city" jsonschema:"required,description=The city name (e.g. 'Innsbruck', 'Barcelona', 'Tokyo')"`
	Country string `json:"country" jsonschema:"required,description=The country name (e.g. 'Austria', 'Spain', 'Japan')"`
	Month   int    `json:"month" jsonschema:"required,description=The month number (1-12, where 1=January and 12=December)"`
}

// PlacesParams for point-of-interest searches.
type PlacesParams struct {
	City     string `json:"city" jsonschema:"required,description=The city to search in (e.g. 'Innsbruck', 'Barcelona', 'Tokyo')"`
	Category string `json:"category" jsonschema:"required,description=A single category to search for, ONE per call (e.g. 'ski resort', 'beach', 'restaurant', 'museum', 'nightlife', 'hiking', 'shopping', 'spa', 'landmark')"`
}

// SavePreferencesParams for persisting user travel preferences.
type SavePreferencesParams struct {
	Preferences string `json:"preferences" jsonschema:"required,description=A JSON string describing the user's preferences. Example: '{\"style\": \"adventure\", \"budget\": \"mid-range\", \"interests\": [\"hiking\", \"local food\"]}'"`
}

// LoadPreferencesParams is intentionally empty; the tool takes no arguments.
type LoadPreferencesParams struct{}

// Registry declares the agent's callable tools and dispatches executions.
// Every tool returns a single human-readable string; failures are encoded
// as descriptive strings in the result, never as errors, so the model can
// observe them and self-correct.
type Registry struct {
	weather     *WeatherClient
	places      *PlacesClient
	prefs       *Preferences
	definitions []llm.Tool
}

func NewRegistry(weather *WeatherClient, places *PlacesClient, store memory.Store) *Registry {
	r := &Registry{
		weather: weather,
		places:  places,
		prefs:   NewPreferences(store),
	}

	r.definitions = []llm.Tool{
		{
			Name: "get_weather",
			Description: `Get average climate data for a city in a specific month.

Use this tool when you need to check weather conditions at a destination for a
particular time of year. Returns temperature, precipitation, and snowfall data
to help evaluate if a destination is suitable.`,
			Parameters: llm.GenerateSchemaFrom(WeatherParams{}),
		},
		{
			Name: "search_places",
			Description: `Search for places and activities at a destination city.

Use this tool when you need to find things to do, restaurants, attractions, or
specific activity types at a destination. Returns top places with names,
categories, and addresses. Only ONE category per call.`,
			Parameters: llm.GenerateSchemaFrom(PlacesParams{}),
		},
		{
			Name: "save_user_preferences",
			Description: `Save the user's travel preferences for future sessions.

Call this when the user reveals important preferences you should remember, such
as: preferred travel style (adventure, relaxation, culture), budget range,
dietary needs, accessibility requirements, favorite destinations, or things
they dislike.`,
			Parameters: llm.GenerateSchemaFrom(SavePreferencesParams{}),
		},
		{
			Name: "get_user_preferences",
			Description: `Load the user's previously saved travel preferences.

Call this at the beginning of a new conversation to check if the user has any
saved preferences from previous sessions.`,
			Parameters: llm.GenerateSchemaFrom(LoadPreferencesParams{}),
		},
	}

	return r
}

// Definitions returns the declared tool set for the LLM.
func (r *Registry) Definitions() []llm.Tool {
	return r.definitions
}

// Execute runs the named tool with JSON-encoded arguments and returns its
// string result. An error is returned only for unknown tools or unparsable
// arguments; tool-level failures are already embedded in the result string.
func (r *Registry) Execute(ctx context.Context, name, arguments string) (string, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Tool: logger.Ptr(name)})

	start := time.Now()
	result, err := r.execute(ctx, name, arguments)
	if err != nil {
		return "", err
	}

	slog.DebugContext(ctx, "tool executed",
		"result", logger.Truncate(result, 200),
		"latency_ms", time.Since(start).Milliseconds())

	return result, nil
}

func (r *Registry) execute(ctx context.Context, name, arguments string) (string, error) {
	switch name {
	case "get_weather":
		params, err := llm.ParseToolArguments[WeatherParams](arguments)
		if err != nil {
			return "", err
		}
		return r.weather.MonthlyClimate(ctx, params.City, params.Country, params.Month), nil

	case "search_places":
		params, err := llm.ParseToolArguments[PlacesParams](arguments)
		if err != nil {
			return "", err
		}
		return r.places.Search(ctx, params.City, params.Category), nil

	case "save_user_preferences":
		params, err := llm.ParseToolArguments[SavePreferencesParams](arguments)
		if err != nil {
			return "", err
		}
		return r.prefs.Save(ctx, params.Preferences), nil

	case "get_user_preferences":
		return r.prefs.Load(ctx), nil

	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}
