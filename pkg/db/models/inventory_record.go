package models

import "time"

// InventoryRecord tracks on-hand quantity against a fixed capacity for exactly
// one product. Stock is always Quantity/Capacity.
type InventoryRecord struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Quantity  int       `gorm:"column:quantity;not null;check:chk_inventory_quantity_bounds,quantity >= 0 AND quantity <= capacity" json:"quantity"`
	Capacity  int       `gorm:"column:capacity;not null;check:chk_inventory_capacity_positive,capacity > 0" json:"capacity"`
	Stock     float64   `gorm:"column:stock;not null" json:"stock"`
	ProductID int64     `gorm:"column:product_id;not null;uniqueIndex" json:"product_id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (InventoryRecord) TableName() string { return "inventory" }
