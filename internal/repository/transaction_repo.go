package repository

import (
	"errors"
	"time"

	"go-pos-backoffice/internal/model"
	"go-pos-backoffice/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionRepository interface {
	// Headers
	CreateHeader(tx *gorm.DB, header *model.TransactionHeader) error
	FindHeaderByID(id uuid.UUID) (*model.TransactionHeader, error)
	FindHeaderForUpdate(tx *gorm.DB, id uuid.UUID) (*model.TransactionHeader, error)
	FindAllHeaders(search string) ([]model.TransactionHeader, error)
	UpdateHeader(header *model.TransactionHeader) error
	SoftDeleteHeaders(ids []uuid.UUID) error
	UpdateHeaderTotal(tx *gorm.DB, headerID uuid.UUID, total decimal.Decimal) error

	// Invoice numbering. AcquireMonthLock serializes number generation for
	// one calendar-month bucket within the enclosing transaction.
	AcquireMonthLock(tx *gorm.DB, yearMonth string) error
	LastInvoiceNumber(tx *gorm.DB, year int, month time.Month) (string, error)

	// Details
	CreateDetail(tx *gorm.DB, detail *model.TransactionDetail) error
	FindDetailByID(id uuid.UUID) (*model.TransactionDetail, error)
	FindDetailsByHeader(headerID uuid.UUID) ([]model.TransactionDetail, error)
	LockDetailsByIDs(tx *gorm.DB, ids []uuid.UUID) ([]model.TransactionDetail, error)
	UpdateDetail(tx *gorm.DB, detail *model.TransactionDetail) error
	UpdateDetailValues(tx *gorm.DB, detailID uuid.UUID, netPrice, subtotal decimal.Decimal) error
	SoftDeleteDetail(tx *gorm.DB, id uuid.UUID) error

	// Discounts
	FindDiscountsByDetail(tx *gorm.DB, detailID uuid.UUID) ([]model.TransactionDiscount, error)
	CreateDiscount(tx *gorm.DB, discount *model.TransactionDiscount) error
	UpdateDiscount(tx *gorm.DB, discount *model.TransactionDiscount) error
	DeleteDiscounts(tx *gorm.DB, ids []uuid.UUID) error

	// Aggregation
	SumDetailSubtotals(tx *gorm.DB, headerID uuid.UUID) (decimal.Decimal, error)

	// Dashboard reads
	RevenueBetween(start, end time.Time) (decimal.Decimal, error)
	CountHeadersBetween(start, end time.Time) (int64, error)
	TopCustomers(start, end time.Time, limit int) ([]TopCustomerRow, error)
	TopProducts(start, end time.Time, limit int) ([]TopProductRow, error)
	MonthlyRevenue(start, end time.Time) ([]MonthlyRevenueRow, error)
}

type TopCustomerRow struct {
	CustomerID        uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	Code              string          `json:"code"`
	TransactionsCount int64           `json:"transactions_count"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
}

type TopProductRow struct {
	ProductID    uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Code         string          `json:"code"`
	TotalQty     int64           `json:"total_qty"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

type MonthlyRevenueRow struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db}
}

func (r *transactionRepo) CreateHeader(tx *gorm.DB, header *model.TransactionHeader) error {
	return tx.Create(header).Error
}

func (r *transactionRepo) FindHeaderByID(id uuid.UUID) (*model.TransactionHeader, error) {
	var header model.TransactionHeader
	err := r.db.Preload("Customer").First(&header, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	return &header, err
}

func (r *transactionRepo) FindHeaderForUpdate(tx *gorm.DB, id uuid.UUID) (*model.TransactionHeader, error) {
	var header model.TransactionHeader
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&header, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &header, nil
}

func (r *transactionRepo) FindAllHeaders(search string) ([]model.TransactionHeader, error) {
	var headers []model.TransactionHeader
	query := r.db.Preload("Customer").Order("invoice_date DESC")
	if search != "" {
		query = query.Where("invoice_number ILIKE ?", "%"+search+"%")
	}
	err := query.Find(&headers).Error
	return headers, err
}

func (r *transactionRepo) UpdateHeader(header *model.TransactionHeader) error {
	return r.db.Save(header).Error
}

func (r *transactionRepo) SoftDeleteHeaders(ids []uuid.UUID) error {
	return r.db.Delete(&model.TransactionHeader{}, "id IN ?", ids).Error
}

func (r *transactionRepo) UpdateHeaderTotal(tx *gorm.DB, headerID uuid.UUID, total decimal.Decimal) error {
	return tx.Model(&model.TransactionHeader{}).
		Where("id = ?", headerID).
		UpdateColumn("total", total).Error
}

func (r *transactionRepo) AcquireMonthLock(tx *gorm.DB, yearMonth string) error {
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "invoice_number:"+yearMonth).Error
}

func (r *transactionRepo) LastInvoiceNumber(tx *gorm.DB, year int, month time.Month) (string, error) {
	var numbers []string
	err := tx.Model(&model.TransactionHeader{}).
		Where("EXTRACT(YEAR FROM invoice_date) = ? AND EXTRACT(MONTH FROM invoice_date) = ?", year, int(month)).
		Order("invoice_number DESC").
		Limit(1).
		Pluck("invoice_number", &numbers).Error
	if err != nil || len(numbers) == 0 {
		return "", err
	}
	return numbers[0], nil
}

func (r *transactionRepo) CreateDetail(tx *gorm.DB, detail *model.TransactionDetail) error {
	return tx.Create(detail).Error
}

func (r *transactionRepo) FindDetailByID(id uuid.UUID) (*model.TransactionDetail, error) {
	var detail model.TransactionDetail
	err := r.db.Preload("Discounts", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence ASC")
	}).Preload("Product").First(&detail, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	return &detail, err
}

func (r *transactionRepo) FindDetailsByHeader(headerID uuid.UUID) ([]model.TransactionDetail, error) {
	var details []model.TransactionDetail
	err := r.db.Preload("Discounts", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence ASC")
	}).Preload("Product").
		Where("transaction_header_id = ?", headerID).
		Order("created_at ASC").
		Find(&details).Error
	return details, err
}

func (r *transactionRepo) LockDetailsByIDs(tx *gorm.DB, ids []uuid.UUID) ([]model.TransactionDetail, error) {
	var details []model.TransactionDetail
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Find(&details).Error
	return details, err
}

func (r *transactionRepo) UpdateDetail(tx *gorm.DB, detail *model.TransactionDetail) error {
	return tx.Model(&model.TransactionDetail{}).
		Where("id = ?", detail.ID).
		Updates(map[string]interface{}{
			"product_id": detail.ProductID,
			"qty":        detail.Qty,
			"price":      detail.Price,
		}).Error
}

func (r *transactionRepo) UpdateDetailValues(tx *gorm.DB, detailID uuid.UUID, netPrice, subtotal decimal.Decimal) error {
	return tx.Model(&model.TransactionDetail{}).
		Where("id = ?", detailID).
		Updates(map[string]interface{}{
			"net_price": netPrice,
			"subtotal":  subtotal,
		}).Error
}

func (r *transactionRepo) SoftDeleteDetail(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&model.TransactionDetail{}, "id = ?", id).Error
}

func (r *transactionRepo) FindDiscountsByDetail(tx *gorm.DB, detailID uuid.UUID) ([]model.TransactionDiscount, error) {
	var discounts []model.TransactionDiscount
	err := tx.Where("transaction_detail_id = ?", detailID).
		Order("sequence ASC").
		Find(&discounts).Error
	return discounts, err
}

func (r *transactionRepo) CreateDiscount(tx *gorm.DB, discount *model.TransactionDiscount) error {
	return tx.Create(discount).Error
}

func (r *transactionRepo) UpdateDiscount(tx *gorm.DB, discount *model.TransactionDiscount) error {
	return tx.Model(&model.TransactionDiscount{}).
		Where("id = ?", discount.ID).
		Updates(map[string]interface{}{
			"sequence": discount.Sequence,
			"type":     discount.Type,
			"value":    discount.Value,
		}).Error
}

func (r *transactionRepo) DeleteDiscounts(tx *gorm.DB, ids []uuid.UUID) error {
	return tx.Delete(&model.TransactionDiscount{}, "id IN ?", ids).Error
}

// SumDetailSubtotals recomputes from the live rows every time. Soft-deleted
// details are excluded by gorm's default scope.
func (r *transactionRepo) SumDetailSubtotals(tx *gorm.DB, headerID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := tx.Model(&model.TransactionDetail{}).
		Where("transaction_header_id = ?", headerID).
		Select("COALESCE(SUM(subtotal), 0)").
		Scan(&total).Error
	if err != nil || !total.Valid {
		return decimal.Zero, err
	}
	return total.Decimal, nil
}

func (r *transactionRepo) RevenueBetween(start, end time.Time) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.Model(&model.TransactionHeader{}).
		Where("invoice_date BETWEEN ? AND ?", start, end).
		Select("COALESCE(SUM(total), 0)").
		Scan(&total).Error
	if err != nil || !total.Valid {
		return decimal.Zero, err
	}
	return total.Decimal, nil
}

func (r *transactionRepo) CountHeadersBetween(start, end time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.TransactionHeader{}).
		Where("invoice_date BETWEEN ? AND ?", start, end).
		Count(&count).Error
	return count, err
}

func (r *transactionRepo) TopCustomers(start, end time.Time, limit int) ([]TopCustomerRow, error) {
	var rows []TopCustomerRow
	err := r.db.Model(&model.TransactionHeader{}).
		Select(`transaction_headers.customer_id,
			customers.name,
			customers.code,
			COUNT(*) as transactions_count,
			SUM(transaction_headers.total) as total_spent`).
		Joins("JOIN customers ON customers.id = transaction_headers.customer_id").
		Where("transaction_headers.invoice_date BETWEEN ? AND ?", start, end).
		Group("transaction_headers.customer_id, customers.name, customers.code").
		Order("total_spent DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *transactionRepo) TopProducts(start, end time.Time, limit int) ([]TopProductRow, error) {
	var rows []TopProductRow
	err := r.db.Model(&model.TransactionDetail{}).
		Select(`transaction_details.product_id,
			products.name,
			products.code,
			SUM(transaction_details.qty) as total_qty,
			SUM(transaction_details.subtotal) as total_revenue`).
		Joins("JOIN products ON products.id = transaction_details.product_id").
		Joins("JOIN transaction_headers ON transaction_headers.id = transaction_details.transaction_header_id").
		Where("transaction_headers.invoice_date BETWEEN ? AND ?", start, end).
		Group("transaction_details.product_id, products.name, products.code").
		Order("total_qty DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *transactionRepo) MonthlyRevenue(start, end time.Time) ([]MonthlyRevenueRow, error) {
	var rows []MonthlyRevenueRow
	err := r.db.Model(&model.TransactionHeader{}).
		Select(`to_char(invoice_date, 'YYYY-MM') as month, SUM(total) as total`).
		Where("invoice_date BETWEEN ? AND ?", start, end).
		Group("to_char(invoice_date, 'YYYY-MM')").
		Order("month ASC").
		Scan(&rows).Error
	return rows, err
}
