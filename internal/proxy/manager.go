package proxy

import (
	"math/rand"
	"sync"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/107.0.0.0 Safari/537.36"

// Manager handles the rotation of proxies and user agents.
type Manager struct {
	proxies    []string
	userAgents []string
	mu         sync.Mutex
	proxyIndex int
	rng        *rand.Rand
}

// NewManager builds a manager from configured proxy and user agent lists.
// Both lists may be empty; with no user agents configured a stock desktop
// agent is used so requests never go out without one.
func NewManager(proxies, userAgents []string, seed int64) *Manager {
	if len(userAgents) == 0 {
		userAgents = []string{defaultUserAgent}
	}
	return &Manager{
		proxies:    proxies,
		userAgents: userAgents,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// GetProxy returns a proxy URL from the list, rotating sequentially.
func (m *Manager) GetProxy() string {
	if len(m.proxies) == 0 {
		return "" // No proxy
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	proxy := m.proxies[m.proxyIndex]
	m.proxyIndex = (m.proxyIndex + 1) % len(m.proxies)
	return proxy
}

// GetUserAgent returns a random user agent string.
func (m *Manager) GetUserAgent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userAgents[m.rng.Intn(len(m.userAgents))]
}
