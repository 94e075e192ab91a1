package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetProxyRotatesSequentially(t *testing.T) {
	m := NewManager([]string{"http://p1:8000", "http://p2:8000"}, nil, 1)

	assert.Equal(t, "http://p1:8000", m.GetProxy())
	assert.Equal(t, "http://p2:8000", m.GetProxy())
	assert.Equal(t, "http://p1:8000", m.GetProxy())
}

func TestGetProxyEmptyList(t *testing.T) {
	m := NewManager(nil, nil, 1)
	assert.Empty(t, m.GetProxy())
}

func TestGetUserAgentNeverEmpty(t *testing.T) {
	m := NewManager(nil, nil, 1)
	assert.NotEmpty(t, m.GetUserAgent())

	m = NewManager(nil, []string{"agent-a", "agent-b"}, 1)
	got := m.GetUserAgent()
	assert.Contains(t, []string{"agent-a", "agent-b"}, got)
}
