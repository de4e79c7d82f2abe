// Package pinning pins token images and off-chain metadata JSON to IPFS
// through the Pinata HTTP API.
package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.pinata.cloud"
	DefaultTimeout = 60 * time.Second
	DefaultCIDVer  = 1
)

// ErrUnauthorized is returned when Pinata rejects the JWT.
var ErrUnauthorized = errors.New("pinata: unauthorized")

// APIError is a non-2xx Pinata response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pinata: status %d: %s", e.Status, e.Body)
}

// IsNotPinned reports whether err is Pinata's answer for an unknown CID.
func IsNotPinned(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client talks to the Pinata pinning API.
type Client struct {
	baseURL string
	gateway string
	jwt     string
	client  *http.Client

	groupsMu sync.Mutex
	groups   map[string]string // name -> id
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// NewClient creates a Pinata client authenticating with jwt. gateway is the
// dedicated gateway host used to build public URLs.
func NewClient(jwt, gateway string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		gateway: strings.TrimSuffix(strings.TrimPrefix(gateway, "https://"), "/"),
		jwt:     jwt,
		client:  &http.Client{Timeout: DefaultTimeout},
		groups:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GatewayURL returns the public URL of cid.
func (c *Client) GatewayURL(cid string) string {
	return fmt.Sprintf("https://%s/ipfs/%s", c.gateway, cid)
}

// PinOptions describes a pin.
type PinOptions struct {
	Name       string
	KeyValues  map[string]string
	GroupID    string
	CIDVersion int
}

// PinResult is the response of a pin call.
type PinResult struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// Group is a Pinata pin group.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type pinataMetadata struct {
	Name      string            `json:"name,omitempty"`
	KeyValues map[string]string `json:"keyvalues,omitempty"`
}

type pinataOptions struct {
	CIDVersion int    `json:"cidVersion"`
	GroupID    string `json:"groupId,omitempty"`
}

func (o PinOptions) metadata() pinataMetadata {
	return pinataMetadata{Name: o.Name, KeyValues: o.KeyValues}
}

func (o PinOptions) options() pinataOptions {
	v := o.CIDVersion
	if v == 0 {
		v = DefaultCIDVer
	}
	return pinataOptions{CIDVersion: v, GroupID: o.GroupID}
}

// PinFile uploads a file.
func (c *Client) PinFile(ctx context.Context, filename, contentType string, r io.Reader, opts PinOptions) (*PinResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	hdr.Set("Content-Type", contentType)

	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("copy file: %w", err)
	}

	meta, err := json.Marshal(opts.metadata())
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	if err := mw.WriteField("pinataMetadata", string(meta)); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}

	options, err := json.Marshal(opts.options())
	if err != nil {
		return nil, fmt.Errorf("marshal options: %w", err)
	}
	if err := mw.WriteField("pinataOptions", string(options)); err != nil {
		return nil, fmt.Errorf("write options: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var result PinResult
	if err := c.do(ctx, http.MethodPost, "/pinning/pinFileToIPFS", mw.FormDataContentType(), &body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PinJSON uploads content as a JSON document.
func (c *Client) PinJSON(ctx context.Context, content interface{}, opts PinOptions) (*PinResult, error) {
	payload, err := json.Marshal(struct {
		Content  interface{}    `json:"pinataContent"`
		Metadata pinataMetadata `json:"pinataMetadata"`
		Options  pinataOptions  `json:"pinataOptions"`
	}{content, opts.metadata(), opts.options()})
	if err != nil {
		return nil, fmt.Errorf("marshal json pin: %w", err)
	}

	var result PinResult
	if err := c.do(ctx, http.MethodPost, "/pinning/pinJSONToIPFS", "application/json", bytes.NewReader(payload), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Unpin removes a pin.
func (c *Client) Unpin(ctx context.Context, cid string) error {
	return c.do(ctx, http.MethodDelete, "/pinning/unpin/"+cid, "", nil, nil)
}

// ListGroups lists pin groups.
func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	var groups []Group
	if err := c.do(ctx, http.MethodGet, "/groups", "", nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// CreateGroup creates a pin group.
func (c *Client) CreateGroup(ctx context.Context, name string) (*Group, error) {
	payload, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return nil, fmt.Errorf("marshal group: %w", err)
	}
	var g Group
	if err := c.do(ctx, http.MethodPost, "/groups", "application/json", bytes.NewReader(payload), &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// EnsureGroup returns the ID of the group called name, creating it when
// missing. IDs are cached for the lifetime of the client.
func (c *Client) EnsureGroup(ctx context.Context, name string) (string, error) {
	c.groupsMu.Lock()
	defer c.groupsMu.Unlock()

	if id, ok := c.groups[name]; ok {
		return id, nil
	}

	groups, err := c.ListGroups(ctx)
	if err != nil {
		return "", fmt.Errorf("list groups: %w", err)
	}
	for _, g := range groups {
		if g.Name == name {
			c.groups[name] = g.ID
			return g.ID, nil
		}
	}

	g, err := c.CreateGroup(ctx, name)
	if err != nil {
		return "", fmt.Errorf("create group %q: %w", name, err)
	}
	c.groups[name] = g.ID
	return g.ID, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("pinata %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, strings.TrimSpace(string(respBody)))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if result == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
