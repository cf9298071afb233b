package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/swanstudios/training-storefront/pkg/enums"
)

// Cart is an owner's in-progress selection of catalog packages. Total and
// TotalSessions are a materialized cache over Items, never independent state;
// both stay nullable because externally seeded rows arrive without them and
// the fallback resolver has to be able to tell.
type Cart struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID       uuid.UUID           `gorm:"column:owner_id;type:uuid;not null;index"`
	Status        enums.CartStatus    `gorm:"column:status;type:cart_status;not null;default:'active'"`
	Total         decimal.NullDecimal `gorm:"column:total;type:numeric(12,2)"`
	TotalSessions *int                `gorm:"column:total_sessions"`
	Items         []CartItem          `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Cart) TableName() string {
	return "carts"
}

// HasPersistedTotals reports whether both cached columns are populated.
func (c Cart) HasPersistedTotals() bool {
	return c.Total.Valid && c.TotalSessions != nil
}

// SetTotals populates the cached columns from a recomputation.
func (c *Cart) SetTotals(total decimal.Decimal, totalSessions int) {
	c.Total = decimal.NewNullDecimal(total)
	sessions := totalSessions
	c.TotalSessions = &sessions
}
