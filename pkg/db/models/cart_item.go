package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one catalog selection inside a cart. UnitPriceSnapshot is
// captured when the line is added and never re-read from the catalog, so an
// open cart is shielded from live price changes. Only Quantity may change
// after creation.
type CartItem struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID            uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index"`
	CatalogEntryID    uuid.UUID       `gorm:"column:catalog_entry_id;type:uuid;not null"`
	Quantity          int             `gorm:"column:quantity;not null"`
	UnitPriceSnapshot decimal.Decimal `gorm:"column:unit_price_snapshot;type:numeric(12,2);not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartItem) TableName() string {
	return "cart_items"
}
