package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMockProvider_FailTimes(t *testing.T) {
	m := &MockProvider{Err: errors.New("unavailable"), FailTimes: 1, Response: "ok"}

	_, err := m.Generate(context.Background(), Request{Prompt: "p"})
	assert.Error(t, err)

	text, err := m.Generate(context.Background(), Request{Prompt: "p2"})
	assert.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 2, m.Calls())
	assert.Equal(t, "p2", m.LastRequest().Prompt)
}

func TestMockProvider_Responses(t *testing.T) {
	m := &MockProvider{Responses: []string{"a", "b"}}

	for _, want := range []string{"a", "b", "b"} {
		got, err := m.Generate(context.Background(), Request{Prompt: "p"})
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
