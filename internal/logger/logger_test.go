package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedact(t *testing.T) {
	kv := []interface{}{"session_token", "abc", "member", "Sarah", "OPENAI_API_KEY", "sk-1", "total_tokens", 42, "dangling"}
	out := redact(kv)

	assert.Equal(t, "[REDACTED]", out[1])
	assert.Equal(t, "Sarah", out[3])
	assert.Equal(t, "[REDACTED]", out[5])
	assert.Equal(t, 42, out[7])
	assert.Equal(t, "dangling", out[8])
	assert.Equal(t, "abc", kv[1], "input must not be modified")
}

func TestNopLogger(t *testing.T) {
	l := Nop().With("component", "test")
	l.Info("hello", "k", 1)
	l.Sync()
}
