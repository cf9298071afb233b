package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/swanstudios/training-storefront/pkg/enums"
)

// CatalogEntry is a purchasable training package. TotalSessions is the single
// authoritative session count for the entry regardless of kind; it is set at
// authoring time and validated against the kind-specific fields.
type CatalogEntry struct {
	ID                  uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                string            `gorm:"column:name;not null"`
	PackageKind         enums.PackageKind `gorm:"column:package_kind;type:package_kind;not null"`
	SessionsFixed       *int              `gorm:"column:sessions_fixed"`
	SessionsPerInterval *int              `gorm:"column:sessions_per_interval"`
	IntervalCount       *int              `gorm:"column:interval_count"`
	TotalSessions       int               `gorm:"column:total_sessions;not null"`
	UnitPrice           decimal.Decimal   `gorm:"column:unit_price;type:numeric(12,2);not null"`
	IsActive            bool              `gorm:"column:is_active;not null;default:true"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (CatalogEntry) TableName() string {
	return "catalog_entries"
}
