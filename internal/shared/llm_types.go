// Package shared holds the types every model-backed agent reports.
package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by one model call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// IsZero reports whether the call never reached the model.
func (u TokenUsage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

// Total is TotalTokens, or prompt plus completion when the provider left it out.
func (u TokenUsage) Total() int {
	if u.TotalTokens > 0 {
		return u.TotalTokens
	}
	return u.PromptTokens + u.CompletionTokens
}

// AgentMeta describes one agent run: which agent, what it cost and how long
// the model took. Operations return it even when they fail.
type AgentMeta struct {
	AgentName string
	Usage     TokenUsage
	Latency   time.Duration
}
