package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountAmount     DiscountType = "AMOUNT"
)

// TransactionHeader is the invoice. Total is derived from the live details
// and is never settable by a client.
type TransactionHeader struct {
	BaseModel
	InvoiceNumber string          `gorm:"type:varchar(20);uniqueIndex;not null" json:"invoice_number"`
	CustomerID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id" validate:"uuid_required"`
	Customer      *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty" validate:"-"`
	InvoiceDate   time.Time       `gorm:"not null" json:"invoice_date" validate:"required,notfuture"`
	Total         decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"total"`

	Details []TransactionDetail `gorm:"foreignKey:TransactionHeaderID" json:"details,omitempty" validate:"-"`
}

// TransactionDetail is one line item. Price is a snapshot taken at the time
// of sale; NetPrice and Subtotal are derived from the discount stack. A qty
// change is always matched by an equal-and-opposite stock adjustment on the
// referenced product.
type TransactionDetail struct {
	BaseModel
	TransactionHeaderID uuid.UUID          `gorm:"type:uuid;not null;index" json:"transaction_header_id"`
	TransactionHeader   *TransactionHeader `gorm:"foreignKey:TransactionHeaderID" json:"transaction_header,omitempty" validate:"-"`
	ProductID           uuid.UUID          `gorm:"type:uuid;not null;index" json:"product_id" validate:"uuid_required"`
	Product             *Product           `gorm:"foreignKey:ProductID" json:"product,omitempty" validate:"-"`
	Qty                 int                `gorm:"not null" json:"qty" validate:"required,gte=1"`
	Price               decimal.Decimal    `gorm:"type:decimal(15,2);not null" json:"price" validate:"dgte0"`
	NetPrice            decimal.Decimal    `gorm:"type:decimal(15,2);not null;default:0" json:"net_price"`
	Subtotal            decimal.Decimal    `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`

	Discounts []TransactionDiscount `gorm:"foreignKey:TransactionDetailID" json:"discounts,omitempty" validate:"-"`
}

// TransactionDiscount is one step of a detail's discount stack, applied in
// ascending sequence order. Fully owned by its detail and replaced wholesale
// on every detail update.
type TransactionDiscount struct {
	BaseModel
	TransactionDetailID uuid.UUID       `gorm:"type:uuid;not null;index" json:"transaction_detail_id"`
	Sequence            int             `gorm:"not null;default:1" json:"sequence" validate:"required,gte=1"`
	Type                DiscountType    `gorm:"type:varchar(10);not null;default:'PERCENTAGE'" json:"type" validate:"required,oneof=PERCENTAGE AMOUNT"`
	Value               decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"value" validate:"dgte0"`
}
