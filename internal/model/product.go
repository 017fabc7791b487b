package model

import "github.com/shopspring/decimal"

// Product is the catalog entry and the single authoritative stock counter.
// Stock is only ever adjusted under a row lock inside a transaction; it must
// never go negative.
type Product struct {
	BaseModel
	Code  string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"code" validate:"required,alphanum"`
	Name  string          `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Price decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"price" validate:"dgte0"`
	Stock int             `gorm:"not null;default:0" json:"stock" validate:"gte=0"`
}
