package thread

import (
	"sync"

	"wayfarer.app/concierge/common/id"
	"wayfarer.app/concierge/internal/model"
)

// Log holds the append-only message logs of all conversation threads,
// keyed by opaque thread ID. Messages are never mutated or removed once
// appended. The design assumes at most one concurrent writer per thread
// ID (a single user driving one conversation); independent threads may
// append concurrently.
type Log struct {
	mu      sync.RWMutex
	threads map[string][]model.Message
}

func NewLog() *Log {
	return &Log{threads: make(map[string][]model.Message)}
}

// NewThreadID returns a fresh opaque thread identifier.
func NewThreadID() string {
	return id.NewString()
}

// Append appends messages to the thread's log, creating the thread on
// first use.
func (l *Log) Append(threadID string, msgs ...model.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.threads[threadID] = append(l.threads[threadID], msgs...)
}

// Messages returns a copy of the thread's full message log in order.
// An unknown thread yields an empty slice.
func (l *Log) Messages(threadID string) []model.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	msgs := l.threads[threadID]
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Len returns the number of messages in the thread's log.
func (l *Log) Len(threadID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.threads[threadID])
}
