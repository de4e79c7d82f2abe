package stub

import (
	"context"
	"errors"
	"sync"

	"solana-token-launchpad/internal/solanarpc"
)

// WSClient implements solanarpc.WSClient. Subscriptions are answered from
// Notify, then from Default; when neither applies they never notify.
type WSClient struct {
	mu      sync.Mutex
	Notify  map[string]solanarpc.SignatureNotification
	Default *solanarpc.SignatureNotification
	closed  bool

	subscribed []string
}

// NewWSClient creates a new stub WebSocket client.
func NewWSClient() *WSClient {
	return &WSClient{Notify: make(map[string]solanarpc.SignatureNotification)}
}

// SignatureSubscribe delivers the stored notification, or closes the channel
// when ctx is done.
func (c *WSClient) SignatureSubscribe(ctx context.Context, signature string, _ solanarpc.Commitment) (<-chan solanarpc.SignatureNotification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New("client closed")
	}

	c.subscribed = append(c.subscribed, signature)

	ch := make(chan solanarpc.SignatureNotification, 1)
	n, ok := c.Notify[signature]
	if !ok && c.Default != nil {
		n, ok = *c.Default, true
	}
	if ok {
		n.Signature = signature
		ch <- n
		close(ch)
		return ch, nil
	}

	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

// Subscribed returns the signatures subscribed to so far.
func (c *WSClient) Subscribed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.subscribed...)
}

// Close marks the client closed.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

var _ solanarpc.WSClient = (*WSClient)(nil)
