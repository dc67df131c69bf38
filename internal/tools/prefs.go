package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"wayfarer.app/concierge/internal/memory"
)

// Preferences holds the save/load tools over the user memory store.
// Saves merge additively: a new save never discards previously stored keys.
type Preferences struct {
	store memory.Store
}

func NewPreferences(store memory.Store) *Preferences {
	return &Preferences{store: store}
}

// Save merges a JSON-encoded preference object into the stored set and
// echoes the merged result. Malformed JSON is not rejected: the raw text
// is stored under a "raw" fallback key instead.
func (p *Preferences) Save(ctx context.Context, preferences string) string {
	existing := map[string]any{}
	if value, ok, err := p.store.Get(ctx, memory.NamespaceUser, memory.KeyPreferences); err == nil && ok {
		if m, isMap := value.(map[string]any); isMap {
			existing = m
		}
	}

	var incoming map[string]any
	if err := json.Unmarshal([]byte(preferences), &incoming); err != nil {
		incoming = map[string]any{"raw": preferences}
	}

	merged := make(map[string]any, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range incoming {
		merged[k] = v
	}

	if err := p.store.Put(ctx, memory.NamespaceUser, memory.KeyPreferences, merged); err != nil {
		return fmt.Sprintf("Error saving preferences: %v", err)
	}

	encoded, _ := json.Marshal(merged)
	return fmt.Sprintf("Preferences saved: %s", encoded)
}

// Load returns the stored preference set, or a "none found" string.
func (p *Preferences) Load(ctx context.Context) string {
	value, ok, err := p.store.Get(ctx, memory.NamespaceUser, memory.KeyPreferences)
	if err != nil {
		return fmt.Sprintf("Error loading preferences: %v", err)
	}
	if !ok || value == nil {
		return "No saved preferences found."
	}

	encoded, _ := json.Marshal(value)
	return fmt.Sprintf("Saved preferences: %s", encoded)
}
