package models

import (
	"strings"
	"time"
)

// Asset represents the physical property owned by a tenant. It carries no
// price and no marketing text; both live on its listings.
type Asset struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	TenantID         uint      `gorm:"not null;index" json:"tenant_id"`
	Reference        string    `gorm:"size:64" json:"reference"`
	StreetAddress    string    `json:"street_address"`
	City             string    `gorm:"index" json:"city"`
	PostalCode       string    `gorm:"size:16" json:"postal_code"`
	Country          string    `gorm:"size:64" json:"country"`
	Latitude         *float64  `json:"latitude" validate:"omitempty,latitude"`
	Longitude        *float64  `json:"longitude" validate:"omitempty,longitude"`
	CountBedrooms    int       `gorm:"not null;default:0" json:"count_bedrooms" validate:"gte=0"`
	CountBathrooms   int       `gorm:"not null;default:0" json:"count_bathrooms" validate:"gte=0"`
	CountToilets     int       `gorm:"not null;default:0" json:"count_toilets" validate:"gte=0"`
	CountGarages     int       `gorm:"not null;default:0" json:"count_garages" validate:"gte=0"`
	ConstructedArea  float64   `json:"constructed_area" validate:"gte=0"`
	PlotArea         float64   `json:"plot_area" validate:"gte=0"`
	YearConstruction int       `json:"year_construction"`
	TypeKey          string    `gorm:"size:64" json:"type_key"`
	StateKey         string    `gorm:"size:64" json:"state_key"`
	Features         []Feature `gorm:"constraint:OnDelete:CASCADE" json:"features,omitempty" validate:"-"`
	Photos           []Photo   `gorm:"constraint:OnDelete:CASCADE" json:"photos,omitempty" validate:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HasLocation reports whether both coordinates are set.
func (a *Asset) HasLocation() bool {
	return a.Latitude != nil && a.Longitude != nil
}

// Feature marks the presence of an attribute on an asset. Absence means false.
type Feature struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	AssetID uint   `gorm:"not null;uniqueIndex:idx_features_asset_key" json:"asset_id"`
	Key     string `gorm:"not null;size:64;uniqueIndex:idx_features_asset_key" json:"key"`
}

// Photo is an ordered image reference owned by an asset. It points either at an
// externally hosted URL or at a blob held by the storage collaborator.
type Photo struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AssetID     uint      `gorm:"not null;index" json:"asset_id"`
	SortOrder   int       `gorm:"not null;default:0" json:"sort_order"`
	ExternalURL string    `json:"external_url"`
	BlobKey     string    `json:"blob_key"`
	ContentType string    `gorm:"size:64" json:"content_type"`
	ByteSize    int64     `json:"byte_size"`
	CreatedAt   time.Time `json:"created_at"`
}

// minVariableBytes is the smallest stored image we ask the storage
// collaborator to resize. Anything smaller is served as the original.
const minVariableBytes = 1024

// PhotoRef is the copy of a Photo carried by the read model.
type PhotoRef struct {
	ID          uint   `json:"id"`
	SortOrder   int    `json:"sort_order"`
	ExternalURL string `json:"external_url,omitempty"`
	BlobKey     string `json:"blob_key,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	ByteSize    int64  `json:"byte_size,omitempty"`
}

// Ref copies the fields the read model needs.
func (p Photo) Ref() PhotoRef {
	return PhotoRef{
		ID:          p.ID,
		SortOrder:   p.SortOrder,
		ExternalURL: p.ExternalURL,
		BlobKey:     p.BlobKey,
		ContentType: p.ContentType,
		ByteSize:    p.ByteSize,
	}
}

// Attached reports whether a stored blob backs the photo.
func (p PhotoRef) Attached() bool {
	return p.BlobKey != ""
}

// Variable reports whether the storage collaborator can render size variants
// of the attached blob. Documents, vector images and tiny files cannot.
func (p PhotoRef) Variable() bool {
	if !p.Attached() {
		return false
	}
	ct := strings.ToLower(p.ContentType)
	if !strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "image/svg") {
		return false
	}
	return p.ByteSize >= minVariableBytes
}
