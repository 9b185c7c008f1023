package runtime

import "sync"

type chainEntry struct {
	token   int
	handler func(name string) error
}

// Chain is an ordered list of miss handlers. The host owns it process-wide,
// so mutation is mutex-guarded even though resolution itself is synchronous.
type Chain struct {
	mu      sync.Mutex
	entries []chainEntry
	nextTok int
}

// NewChain returns an empty handler chain.
func NewChain() *Chain {
	return &Chain{nextTok: 1}
}

// Register installs a handler, prepended or appended relative to the existing
// ones, and returns a token for Unregister.
func (c *Chain) Register(handler func(name string) error, prepend bool) int {
	if handler == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	token := c.nextTok
	c.nextTok++
	entry := chainEntry{token: token, handler: handler}
	if prepend {
		c.entries = append([]chainEntry{entry}, c.entries...)
	} else {
		c.entries = append(c.entries, entry)
	}
	return token
}

// Unregister removes the handler registered under token. Unknown tokens are
// ignored.
func (c *Chain) Unregister(token int) {
	if token == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, entry := range c.entries {
		if entry.token == token {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return
		}
	}
}

// Handlers returns the handlers in their current order.
func (c *Chain) Handlers() []func(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]func(name string) error, len(c.entries))
	for i, entry := range c.entries {
		out[i] = entry.handler
	}
	return out
}

// Len reports how many handlers are installed.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
