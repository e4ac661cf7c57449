// Package pool shares HTTP clients across iterations, one client per target
// origin.
package pool

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// ClientPool maps origin keys to HTTP clients. It is safe for concurrent use;
// the first caller for a key creates the client and later callers reuse it.
type ClientPool struct {
	mu      sync.Mutex
	clients map[string]*http.Client
}

// NewClientPool creates an empty pool.
func NewClientPool() *ClientPool {
	return &ClientPool{clients: make(map[string]*http.Client)}
}

// Get returns the client stored under key, creating it with factory when absent.
// reused reports whether the client already existed.
func (p *ClientPool) Get(key string, factory func() *http.Client) (client *http.Client, reused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[key]; ok {
		return c, true
	}
	c := factory()
	p.clients[key] = c
	return c, false
}

// Len returns the number of pooled clients.
func (p *ClientPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// Keys returns the pooled origin keys in sorted order.
func (p *ClientPool) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	keys := make([]string, 0, len(p.clients))
	for k := range p.clients {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close releases idle connections held by every pooled client.
func (p *ClientPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, c := range p.clients {
		c.CloseIdleConnections()
	}
}

// MakePoolKey returns the origin key of u: scheme and host, including any
// explicit port.
func MakePoolKey(u *url.URL) string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(u.Scheme))
	sb.WriteString("://")
	sb.WriteString(strings.ToLower(u.Host))
	return sb.String()
}
