package pinning

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solana-token-launchpad/internal/observability"
)

// Pin groups and key-values used by the launchpad.
const (
	ImageGroup    = "Token Launchpad Images"
	MetadataGroup = "Token Launchpad JSON"
	ImageFolder   = "token-images"
)

// Pin kinds.
const (
	KindImage    = "image"
	KindMetadata = "metadata"
)

// Image is an uploaded image file.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// OffChainMetadata is the JSON document the token URI points to.
type OffChainMetadata struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Image       string `json:"image"`
	Description string `json:"description"`
}

// Pinned identifies an uploaded object.
type Pinned struct {
	CID  string
	URL  string
	Kind string
	Name string
}

// Uploader uploads launch assets into their pin groups.
type Uploader struct {
	client *Client
	log    zerolog.Logger
}

// NewUploader creates an uploader.
func NewUploader(client *Client, log zerolog.Logger) *Uploader {
	return &Uploader{client: client, log: log.With().Str("component", "pinning").Logger()}
}

// UploadImage pins img into the image group.
func (u *Uploader) UploadImage(ctx context.Context, img Image) (*Pinned, error) {
	start := time.Now()
	pinned, err := u.uploadImage(ctx, img)
	observability.RecordPin(KindImage, time.Since(start).Seconds(), err)
	return pinned, err
}

func (u *Uploader) uploadImage(ctx context.Context, img Image) (*Pinned, error) {
	groupID, err := u.client.EnsureGroup(ctx, ImageGroup)
	if err != nil {
		return nil, err
	}

	res, err := u.client.PinFile(ctx, img.Filename, img.ContentType, bytes.NewReader(img.Data), PinOptions{
		Name:      img.Filename,
		KeyValues: map[string]string{"folder": ImageFolder},
		GroupID:   groupID,
	})
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	pinned := &Pinned{CID: res.IpfsHash, URL: u.client.GatewayURL(res.IpfsHash), Kind: KindImage, Name: img.Filename}
	u.log.Info().Str("cid", pinned.CID).Str("file", img.Filename).Int("bytes", len(img.Data)).Msg("image pinned")
	return pinned, nil
}

// UploadMetadata pins md into the JSON group under the token name.
func (u *Uploader) UploadMetadata(ctx context.Context, md OffChainMetadata) (*Pinned, error) {
	start := time.Now()
	pinned, err := u.uploadMetadata(ctx, md)
	observability.RecordPin(KindMetadata, time.Since(start).Seconds(), err)
	return pinned, err
}

func (u *Uploader) uploadMetadata(ctx context.Context, md OffChainMetadata) (*Pinned, error) {
	groupID, err := u.client.EnsureGroup(ctx, MetadataGroup)
	if err != nil {
		return nil, err
	}

	res, err := u.client.PinJSON(ctx, md, PinOptions{Name: md.Name, GroupID: groupID})
	if err != nil {
		return nil, fmt.Errorf("upload metadata: %w", err)
	}

	pinned := &Pinned{CID: res.IpfsHash, URL: u.client.GatewayURL(res.IpfsHash), Kind: KindMetadata, Name: md.Name}
	u.log.Info().Str("cid", pinned.CID).Str("name", md.Name).Msg("metadata pinned")
	return pinned, nil
}

// Unpin removes a pin.
func (u *Uploader) Unpin(ctx context.Context, cid string) error {
	err := u.client.Unpin(ctx, cid)
	observability.RecordUnpin(err)
	return err
}
