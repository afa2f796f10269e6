package models

import "gorm.io/datatypes"

// CatalogRecord is the persisted form of a ListedProperty. The scalar columns
// exist for ad-hoc SQL inspection; the document is the source for reloads.
type CatalogRecord struct {
	TenantID       uint                               `gorm:"primaryKey;autoIncrement:false"`
	AssetID        uint                               `gorm:"primaryKey;autoIncrement:false"`
	Visible        bool                               `gorm:"not null;index"`
	ForSale        bool                               `gorm:"not null"`
	ForRent        bool                               `gorm:"not null"`
	Highlighted    bool                               `gorm:"not null"`
	SalePriceCents int64                              `gorm:"not null"`
	CountBedrooms  int                                `gorm:"not null"`
	City           string                             `gorm:"index"`
	Geohash        string                             `gorm:"size:12;index"`
	Document       datatypes.JSONType[ListedProperty] `gorm:"not null"`
}

// TableName keeps the read model table name stable.
func (CatalogRecord) TableName() string {
	return "listed_properties"
}

// NewCatalogRecord wraps a read model row for persistence.
func NewCatalogRecord(p *ListedProperty) CatalogRecord {
	rec := CatalogRecord{
		TenantID:      p.TenantID,
		AssetID:       p.ID,
		Visible:       p.Visible,
		ForSale:       p.ForSale,
		ForRent:       p.ForRent,
		Highlighted:   p.Highlighted,
		CountBedrooms: p.CountBedrooms,
		City:          p.City,
		Geohash:       p.Geohash,
		Document:      datatypes.NewJSONType(*p),
	}
	if p.Sale != nil {
		rec.SalePriceCents = p.Sale.PriceCents
	}
	return rec
}
