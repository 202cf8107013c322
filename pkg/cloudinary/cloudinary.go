package cloudinary

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// AssetKind selects the delivery transformation of a notification asset.
type AssetKind string

const (
	AssetIcon  AssetKind = "icon"
	AssetBadge AssetKind = "badge"
	AssetImage AssetKind = "image"
)

func (k AssetKind) Valid() bool {
	switch k {
	case AssetIcon, AssetBadge, AssetImage:
		return true
	}
	return false
}

// Eager transformations per kind (single string per SDK). Icons and badges
// match the sizes browsers render notification chrome at.
var eagerFor = map[AssetKind]string{
	AssetIcon:  "q_auto,f_png,w_192,h_192,c_fill",
	AssetBadge: "q_auto,f_png,w_72,h_72,c_fill",
	AssetImage: "q_auto,f_auto,w_1024,c_limit",
}

var eagerAsyncFalse = false

type Asset struct {
	URL         string `json:"url"`
	OriginalURL string `json:"original_url"`
	PublicID    string `json:"public_id"`
	Kind        string `json:"kind"`
}

// Client uploads notification icons, badges and images.
type Client interface {
	UploadAsset(ctx context.Context, file io.Reader, kind AssetKind, folder, publicID string) (*Asset, error)
	Destroy(ctx context.Context, publicID string) error
}

// BuildURL returns the delivery URL of publicID with the kind's transformation.
func BuildURL(cloudName string, kind AssetKind, publicID string) string {
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/%s/%s", cloudName, eagerFor[kind], publicID)
}

type clientImpl struct {
	cloudName string
	uploader  *uploader.API
}

func (c *clientImpl) UploadAsset(ctx context.Context, file io.Reader, kind AssetKind, folder, publicID string) (*Asset, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown asset kind %q", kind)
	}
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:     folder,
		PublicID:   publicID,
		Eager:      eagerFor[kind],
		EagerAsync: &eagerAsyncFalse,
	})
	if err != nil {
		return nil, err
	}
	a := &Asset{OriginalURL: result.SecureURL, PublicID: result.PublicID, Kind: string(kind)}
	if len(result.Eager) > 0 {
		a.URL = result.Eager[0].SecureURL
	}
	if a.URL == "" {
		a.URL = BuildURL(c.cloudName, kind, result.PublicID)
	}
	return a, nil
}

func (c *clientImpl) Destroy(ctx context.Context, publicID string) error {
	_, err := c.uploader.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	return err
}

// NewClientFromParams builds a Client from Cloudinary cloud name, API key, and secret.
func NewClientFromParams(cloudName, apiKey, apiSecret string) (Client, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &clientImpl{
		cloudName: cloudName,
		uploader:  up,
	}, nil
}
