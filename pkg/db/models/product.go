package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Its name is mirrored onto the paired inventory row.
type Product struct {
	ID        int64            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name      string           `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Price     decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Inventory *InventoryRecord `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string { return "products" }
