package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"wayfarer.app/concierge/common/id"
	"wayfarer.app/concierge/common/llm"
	"wayfarer.app/concierge/common/logger"
	"wayfarer.app/concierge/core/config"
	"wayfarer.app/concierge/internal/agent"
	"wayfarer.app/concierge/internal/memory"
	"wayfarer.app/concierge/internal/model"
	"wayfarer.app/concierge/internal/thread"
	"wayfarer.app/concierge/internal/tools"
)

// Terminal chat client for trying the assistant without the HTTP server.
// Uses the in-memory store, so preferences last for the session only.
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg)

	if err := id.Init(1); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize id generator: %v\n", err)
		os.Exit(1)
	}

	agentClient, err := llm.NewAgentClient(llm.Config{
		Provider: cfg.AgentLLM.Provider,
		APIKey:   cfg.AgentLLM.APIKey,
		BaseURL:  cfg.AgentLLM.BaseURL,
		Model:    cfg.AgentLLM.Model,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create LLM client: %v\n", err)
		os.Exit(1)
	}

	supervisorClient, err := llm.NewAgentClient(llm.Config{
		Provider: cfg.SupervisorLLM.Provider,
		APIKey:   cfg.SupervisorLLM.APIKey,
		BaseURL:  cfg.SupervisorLLM.BaseURL,
		Model:    cfg.SupervisorLLM.Model,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create supervisor LLM client: %v\n", err)
		os.Exit(1)
	}

	store := memory.NewInMemoryStore()
	weather := tools.NewWeatherClient(cfg.Weather)
	places := tools.NewPlacesClient(cfg.Places, weather)
	registry := tools.NewRegistry(weather, places, store)

	threadLog := thread.NewLog()
	turns := agent.New(agentClient, registry, store, threadLog, cfg.AgentLLM.MaxTokens)
	supervisor := agent.NewSupervisor(supervisorClient, cfg.SupervisorLLM.MaxTokens)
	pipeline := agent.NewPipeline(turns, supervisor)

	threadID := thread.NewThreadID()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprint(os.Stderr, "Where are you located? (city, country): ")
	if scanner.Scan() {
		home := strings.TrimSpace(scanner.Text())
		if home != "" {
			if err := store.Put(ctx, memory.NamespaceUser, memory.KeyHomeLocation, home); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to store home location: %v\n", err)
			}
		}
	}

	fmt.Fprintf(os.Stderr, "\nTrip planner ready (model=%s, thread=%s)\n", agentClient.Model(), threadID)
	fmt.Fprintln(os.Stderr, "Where would you like to go? (or 'quit' to exit)")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "quit" || text == "exit" || text == "q" {
			break
		}

		result, err := pipeline.Invoke(ctx, threadID, text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}

		for _, ev := range result.ToolCalls {
			fmt.Fprintf(os.Stderr, "  [tool] %s(%s)\n", ev.Name, formatArgs(ev.Input))
		}
		if result.Supervisor.Verdict != model.VerdictPass || result.Supervisor.Reason != "No tools used" {
			fmt.Fprintf(os.Stderr, "  [supervisor] %s: %s\n", result.Supervisor.Verdict, result.Supervisor.Reason)
		}

		fmt.Printf("\n%s\n\n", result.Response)
	}
}

func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, 0, len(args))
	for k, v := range args {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, ", ")
}
