package solanarpc

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SignatureSubscribe waits for signature to reach commitment. The channel
	// receives at most one notification and is closed afterwards, or when ctx
	// is done.
	SignatureSubscribe(ctx context.Context, signature string, commitment Commitment) (<-chan SignatureNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureNotification is delivered once the signature reaches the commitment.
type SignatureNotification struct {
	Signature string
	Slot      uint64
	Err       interface{}
}

// WSEndpointFromHTTP derives the PubSub URL from an RPC URL: the scheme
// switches to ws(s) and an explicit port is incremented by one.
func WSEndpointFromHTTP(rpcEndpoint string) (string, error) {
	u, err := url.Parse(rpcEndpoint)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	if port := u.Port(); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return "", err
		}
		u.Host = u.Hostname() + ":" + strconv.Itoa(n+1)
	}
	return u.String(), nil
}
