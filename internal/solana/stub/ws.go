package stub

import (
	"context"

	"orca-indexer/internal/solana"
)

// WSClient implements solana.WSClient for testing: SubscribeLogs returns a
// channel the test feeds directly via Notify, with no real subscription.
type WSClient struct {
	ch     chan solana.LogNotification
	closed bool
}

// NewWSClient creates a new stub WebSocket client.
func NewWSClient() *WSClient {
	return &WSClient{ch: make(chan solana.LogNotification, 64)}
}

func (c *WSClient) SubscribeLogs(_ context.Context, _ solana.LogsFilter) (<-chan solana.LogNotification, error) {
	return c.ch, nil
}

func (c *WSClient) Close() error {
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
	return nil
}

// Notify delivers a notification to the subscription channel. It is a
// no-op if the client has already been closed.
func (c *WSClient) Notify(n solana.LogNotification) {
	if c.closed {
		return
	}
	c.ch <- n
}
