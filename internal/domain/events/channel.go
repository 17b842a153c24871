package events

import "sync"

// Channel is an isolated bus namespace. Events published on a channel
// are invisible to the global bus and to every other channel; the
// namespace is a debugging label, not an address.
type Channel struct {
	namespace string

	mu        sync.Mutex
	inner     *Bus
	destroyed bool
}

// Channel creates a fresh isolated channel. Each call returns a distinct
// channel even for a repeated namespace.
func (b *Bus) Channel(namespace string) *Channel {
	return &Channel{namespace: namespace, inner: New()}
}

// Namespace returns the channel's label
func (c *Channel) Namespace() string { return c.namespace }

// Publish delivers to this channel's subscribers only.
// Publishing on a destroyed channel is a safe no-op.
func (c *Channel) Publish(topic string, payload any) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	inner := c.inner
	c.mu.Unlock()

	inner.Publish(topic, payload)
}

// Subscribe registers fn on this channel only. Subscribing on a
// destroyed channel is a no-op returning a no-op cancel.
func (c *Channel) Subscribe(topic string, fn Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return func() {}
	}
	return c.inner.Subscribe(topic, fn)
}

// SubscribeOnce registers a one-shot handler on this channel only
func (c *Channel) SubscribeOnce(topic string, fn Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return func() {}
	}
	return c.inner.SubscribeOnce(topic, fn)
}

// Destroy removes every listener and retires the channel. Destroy is
// idempotent; all later operations are safe no-ops.
func (c *Channel) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.inner = New()
}
