// Package media turns photo references into URLs. Blob storage itself is an
// external collaborator; only its URL contract is used here.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"estatecatalog/server/internal/models"
)

var (
	ErrMissingBlob    = errors.New("photo has no attached blob")
	ErrUnknownVariant = errors.New("unknown image variant")
	ErrResolution     = errors.New("photo url resolution failed")
)

// Store is the storage collaborator. Both calls may fail.
type Store interface {
	URLFor(ctx context.Context, photo models.PhotoRef) (string, error)
	VariantURLFor(ctx context.Context, photo models.PhotoRef, variant string) (string, error)
}

// Variants are the named sizes the bucket serves, as max width in pixels.
var Variants = map[string]int{
	"thumb":  200,
	"small":  480,
	"medium": 960,
	"large":  1920,
}

// Bucket serves blobs from a public bucket. Originals live under the blob key
// and variants under variants/<name>/<blob key>.
type Bucket struct {
	base *url.URL
}

// NewBucket parses the bucket's public base URL.
func NewBucket(baseURL string) (*Bucket, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid media base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid media base url %q: scheme and host required", baseURL)
	}
	return &Bucket{base: u}, nil
}

func (b *Bucket) URLFor(ctx context.Context, photo models.PhotoRef) (string, error) {
	if !photo.Attached() {
		return "", fmt.Errorf("%w: photo %d", ErrMissingBlob, photo.ID)
	}
	return b.base.JoinPath(photo.BlobKey).String(), nil
}

func (b *Bucket) VariantURLFor(ctx context.Context, photo models.PhotoRef, variant string) (string, error) {
	if !photo.Attached() {
		return "", fmt.Errorf("%w: photo %d", ErrMissingBlob, photo.ID)
	}
	if _, ok := Variants[variant]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}
	return b.base.JoinPath("variants", variant, photo.BlobKey).String(), nil
}
