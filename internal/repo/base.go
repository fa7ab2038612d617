package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is embedded by the catalog and inventory repositories. It knows
// whether its handle belongs to an open transaction.
type Base struct {
	db   *gorm.DB
	inTx bool
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB scopes the handle to ctx. A nil ctx returns the handle as is.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Bind returns a Base over tx. A nil tx keeps the current handle.
func (b Base) Bind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx, inTx: true}
}

// InTx reports whether the handle came from Bind.
func (b Base) InTx() bool {
	return b.inTx
}
