package media

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"estatecatalog/server/internal/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) URLFor(ctx context.Context, photo models.PhotoRef) (string, error) {
	args := m.Called(photo.ID)
	return args.String(0), args.Error(1)
}

func (m *MockStore) VariantURLFor(ctx context.Context, photo models.PhotoRef, variant string) (string, error) {
	args := m.Called(photo.ID, variant)
	return args.String(0), args.Error(1)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

var (
	external = models.PhotoRef{ID: 1, ExternalURL: "https://cdn.example.com/1.jpg", BlobKey: "blobs/1"}
	stored   = models.PhotoRef{ID: 2, BlobKey: "blobs/2", ContentType: "image/jpeg", ByteSize: 204800}
	tiny     = models.PhotoRef{ID: 3, BlobKey: "blobs/3", ContentType: "image/png", ByteSize: 200}
	document = models.PhotoRef{ID: 4, BlobKey: "blobs/4", ContentType: "application/pdf", ByteSize: 204800}
	vector   = models.PhotoRef{ID: 5, BlobKey: "blobs/5", ContentType: "image/svg+xml", ByteSize: 204800}
	absent   = models.PhotoRef{ID: 6}
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		photo   models.PhotoRef
		variant string
		want    Source
	}{
		{"external wins over blob", external, "thumb", ExternalURL},
		{"stored original", stored, "", StoredAttached},
		{"stored variant", stored, "thumb", StoredVariant},
		{"tiny image falls back to original", tiny, "thumb", StoredAttached},
		{"document falls back to original", document, "thumb", StoredAttached},
		{"svg falls back to original", vector, "thumb", StoredAttached},
		{"nothing", absent, "thumb", Absent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.photo, tt.variant))
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	store := &MockStore{}
	store.On("URLFor", uint(2)).Return("https://media.example.com/blobs/2", nil)
	store.On("VariantURLFor", uint(2), "thumb").Return("https://media.example.com/variants/thumb/blobs/2", nil)
	store.On("URLFor", uint(4)).Return("https://media.example.com/blobs/4", nil)

	r := NewResolver(store, quietLogger())
	ctx := context.Background()

	assert.Equal(t, "https://cdn.example.com/1.jpg", r.Resolve(ctx, external, "thumb"))
	assert.Equal(t, "https://media.example.com/blobs/2", r.Resolve(ctx, stored, ""))
	assert.Equal(t, "https://media.example.com/variants/thumb/blobs/2", r.Resolve(ctx, stored, "thumb"))
	assert.Equal(t, "https://media.example.com/blobs/4", r.Resolve(ctx, document, "thumb"))
	assert.Equal(t, "", r.Resolve(ctx, absent, ""))

	// External URLs never reach the store
	store.AssertNotCalled(t, "URLFor", uint(1))
	store.AssertExpectations(t)
}

func TestResolver_FailuresDegradeToEmpty(t *testing.T) {
	store := &MockStore{}
	store.On("URLFor", uint(2)).Return("", errors.New("bucket unavailable"))
	store.On("VariantURLFor", uint(2), "thumb").Return("", ErrMissingBlob)

	r := NewResolver(store, quietLogger())
	ctx := context.Background()

	assert.Equal(t, "", r.Resolve(ctx, stored, ""))
	assert.Equal(t, "", r.Resolve(ctx, stored, "thumb"))

	urls := r.ResolveAll(ctx, []models.PhotoRef{external, stored}, "")
	assert.Equal(t, []string{"https://cdn.example.com/1.jpg", ""}, urls)
}

type panickingStore struct{}

func (panickingStore) URLFor(ctx context.Context, photo models.PhotoRef) (string, error) {
	panic("nil client")
}

func (panickingStore) VariantURLFor(ctx context.Context, photo models.PhotoRef, variant string) (string, error) {
	panic("nil client")
}

func TestResolver_ContainsPanics(t *testing.T) {
	r := NewResolver(panickingStore{}, quietLogger())
	assert.NotPanics(t, func() {
		assert.Equal(t, "", r.Resolve(context.Background(), stored, "thumb"))
	})
}

func TestResolver_NoStore(t *testing.T) {
	r := NewResolver(nil, quietLogger())
	assert.Equal(t, "", r.Resolve(context.Background(), stored, ""))
	assert.Equal(t, "https://cdn.example.com/1.jpg", r.Resolve(context.Background(), external, ""))
}

func TestResolver_ResolveAllEmpty(t *testing.T) {
	r := NewResolver(nil, quietLogger())
	urls := r.ResolveAll(context.Background(), nil, "")
	assert.NotNil(t, urls)
	assert.Empty(t, urls)
}

func TestBucket(t *testing.T) {
	b, err := NewBucket("https://media.example.com/tenant-assets/")
	require.NoError(t, err)
	ctx := context.Background()

	u, err := b.URLFor(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, "https://media.example.com/tenant-assets/blobs/2", u)

	u, err = b.VariantURLFor(ctx, stored, "medium")
	require.NoError(t, err)
	assert.Equal(t, "https://media.example.com/tenant-assets/variants/medium/blobs/2", u)

	_, err = b.VariantURLFor(ctx, stored, "poster")
	assert.ErrorIs(t, err, ErrUnknownVariant)

	_, err = b.URLFor(ctx, absent)
	assert.ErrorIs(t, err, ErrMissingBlob)

	_, err = NewBucket("not a url")
	assert.Error(t, err)
}
