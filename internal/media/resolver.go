package media

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"estatecatalog/server/internal/models"
)

// Source is where a photo's URL comes from.
type Source int

const (
	// Absent photos have neither an external URL nor a blob.
	Absent Source = iota
	// ExternalURL photos are hosted elsewhere and returned verbatim.
	ExternalURL
	// StoredAttached photos are served as the stored original.
	StoredAttached
	// StoredVariant photos are served as a resized variant of the blob.
	StoredVariant
)

func (s Source) String() string {
	switch s {
	case ExternalURL:
		return "external_url"
	case StoredAttached:
		return "stored_attached"
	case StoredVariant:
		return "stored_variant"
	default:
		return "absent"
	}
}

// Classify decides the source for a photo and requested variant. An external
// URL always wins. A variant is only used when the blob can be resized;
// otherwise the original is served.
func Classify(photo models.PhotoRef, variant string) Source {
	switch {
	case photo.ExternalURL != "":
		return ExternalURL
	case photo.Attached() && variant != "" && photo.Variable():
		return StoredVariant
	case photo.Attached():
		return StoredAttached
	default:
		return Absent
	}
}

// Resolver resolves photo URLs and contains every failure.
type Resolver struct {
	store  Store
	logger *logrus.Logger
}

// NewResolver creates a resolver. store may be nil, in which case stored
// photos resolve to "".
func NewResolver(store Store, logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.New()
	}
	return &Resolver{store: store, logger: logger}
}

// Resolve returns the photo's URL, or "" when it has none or resolution
// failed. It never returns an error.
func (r *Resolver) Resolve(ctx context.Context, photo models.PhotoRef, variant string) string {
	source := Classify(photo, variant)

	var (
		u   string
		err error
	)
	switch source {
	case ExternalURL:
		return photo.ExternalURL
	case Absent:
		return ""
	case StoredAttached:
		u, err = r.urlFor(ctx, photo)
	case StoredVariant:
		u, err = r.variantURLFor(ctx, photo, variant)
	}

	if err != nil {
		r.logger.WithError(fmt.Errorf("%w: %w", ErrResolution, err)).WithFields(logrus.Fields{
			"photo_id": photo.ID,
			"source":   source.String(),
			"variant":  variant,
		}).Warn("Could not resolve photo url")
		return ""
	}
	return u
}

// ResolveAll resolves every photo in order. The result is never nil.
func (r *Resolver) ResolveAll(ctx context.Context, photos []models.PhotoRef, variant string) []string {
	urls := make([]string, 0, len(photos))
	for _, p := range photos {
		urls = append(urls, r.Resolve(ctx, p, variant))
	}
	return urls
}

func (r *Resolver) urlFor(ctx context.Context, photo models.PhotoRef) (u string, err error) {
	if r.store == nil {
		return "", fmt.Errorf("no storage configured for photo %d", photo.ID)
	}
	defer recoverInto(&err)
	return r.store.URLFor(ctx, photo)
}

func (r *Resolver) variantURLFor(ctx context.Context, photo models.PhotoRef, variant string) (u string, err error) {
	if r.store == nil {
		return "", fmt.Errorf("no storage configured for photo %d", photo.ID)
	}
	defer recoverInto(&err)
	return r.store.VariantURLFor(ctx, photo, variant)
}

// recoverInto converts a panic in the storage client into err.
func recoverInto(err *error) {
	if p := recover(); p != nil {
		*err = fmt.Errorf("storage panic: %v", p)
	}
}
