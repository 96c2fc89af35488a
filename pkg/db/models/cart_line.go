package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartLine is one row of a user's server-side cart. (OwnerID, ProductKey) is
// unique so a product appears at most once per cart.
type CartLine struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID    uuid.UUID       `gorm:"column:owner_id;type:uuid;not null;uniqueIndex:ux_cart_lines_owner_product,priority:1"`
	ProductKey string          `gorm:"column:product_key;not null;uniqueIndex:ux_cart_lines_owner_product,priority:2"`
	Name       string          `gorm:"column:name;not null"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Quantity   int             `gorm:"column:quantity;not null;default:1"`
	ImageRef   string          `gorm:"column:image_ref;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *CartLine) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
