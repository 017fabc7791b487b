package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go-pos-backoffice/internal/model"
	"go-pos-backoffice/internal/pricing"
	"go-pos-backoffice/internal/repository"
	"go-pos-backoffice/internal/ws"
	"go-pos-backoffice/pkg/apperror"
	"go-pos-backoffice/pkg/validator"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// HeaderInput is the client-settable part of an invoice. Total is always
// derived and never accepted from a client.
type HeaderInput struct {
	CustomerID  uuid.UUID `json:"customer_id" validate:"uuid_required"`
	InvoiceDate time.Time `json:"invoice_date" validate:"required,notfuture"`
}

// DetailInput carries one line item submission, discounts included. The
// discount list replaces the stored stack wholesale (replace-by-diff).
type DetailInput struct {
	ProductID uuid.UUID       `json:"product_id" validate:"uuid_required"`
	Qty       int             `json:"qty" validate:"required,gte=1"`
	Price     decimal.Decimal `json:"price" validate:"dgte0"`
	Discounts []DiscountInput `json:"discounts" validate:"dive"`
}

type DiscountInput struct {
	ID       *uuid.UUID         `json:"id"`
	Sequence int                `json:"sequence" validate:"required,gte=1"`
	Type     model.DiscountType `json:"type" validate:"required,oneof=PERCENTAGE AMOUNT"`
	Value    decimal.Decimal    `json:"value" validate:"dgte0"`
}

// TransactionService sequences the atomic posting use-cases: it owns the
// transaction boundary and lock order, validates input ahead of the atomic
// scope, and translates failures into the caller-facing taxonomy. Business
// math lives in pricing and the repositories.
type TransactionService interface {
	CreateHeader(ctx context.Context, input HeaderInput) (*model.TransactionHeader, error)
	UpdateHeader(ctx context.Context, id uuid.UUID, input HeaderInput) (*model.TransactionHeader, error)
	DeleteHeader(ctx context.Context, id uuid.UUID) error
	BulkDeleteHeaders(ctx context.Context, ids []uuid.UUID) error
	GetHeader(id uuid.UUID) (*model.TransactionHeader, error)
	ListHeaders(search string) ([]model.TransactionHeader, error)

	CreateDetail(ctx context.Context, headerID uuid.UUID, input DetailInput) (*model.TransactionDetail, error)
	UpdateDetail(ctx context.Context, headerID, detailID uuid.UUID, input DetailInput) (*model.TransactionDetail, error)
	DeleteDetail(ctx context.Context, headerID, detailID uuid.UUID) error
	BulkDeleteDetails(ctx context.Context, headerID uuid.UUID, ids []uuid.UUID) error
	GetDetail(id uuid.UUID) (*model.TransactionDetail, error)
	ListDetails(headerID uuid.UUID) ([]model.TransactionDetail, error)
}

type transactionService struct {
	txRepo       repository.TransactionRepository
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
	runner       repository.TxRunner
	wsHub        *ws.Hub
	log          zerolog.Logger
}

func NewTransactionService(
	txRepo repository.TransactionRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	runner repository.TxRunner,
	hub *ws.Hub,
	log zerolog.Logger,
) TransactionService {
	return &transactionService{
		txRepo:       txRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		runner:       runner,
		wsHub:        hub,
		log:          log,
	}
}

func (s *transactionService) CreateHeader(ctx context.Context, input HeaderInput) (*model.TransactionHeader, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}
	if _, err := s.customerRepo.FindByID(input.CustomerID); err != nil {
		if isAppError(err) {
			return nil, apperror.NewNotFound("Customer")
		}
		return nil, err
	}

	header := &model.TransactionHeader{
		CustomerID:  input.CustomerID,
		InvoiceDate: input.InvoiceDate,
		Total:       decimal.Zero,
	}

	// The invoice number is minted inside the same transaction that creates
	// the header; the month lock keeps two concurrent creations from
	// computing the same next number.
	now := time.Now()
	err := s.runner.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.txRepo.AcquireMonthLock(tx, now.Format("0601")); err != nil {
			return err
		}
		last, err := s.txRepo.LastInvoiceNumber(tx, now.Year(), now.Month())
		if err != nil {
			return err
		}
		header.InvoiceNumber = nextInvoiceNumber(last, now)
		return s.txRepo.CreateHeader(tx, header)
	})
	if err != nil {
		if appErr, ok := asAppError(err); ok {
			return nil, appErr
		}
		s.log.Error().Err(err).Str("customer_id", input.CustomerID.String()).Msg("transaction header create failed")
		return nil, apperror.ErrInternalServer
	}

	s.notify("transaction_created", header)
	return header, nil
}

func (s *transactionService) UpdateHeader(ctx context.Context, id uuid.UUID, input HeaderInput) (*model.TransactionHeader, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}
	header, err := s.txRepo.FindHeaderByID(id)
	if err != nil {
		return nil, err
	}
	if _, err := s.customerRepo.FindByID(input.CustomerID); err != nil {
		if isAppError(err) {
			return nil, apperror.NewNotFound("Customer")
		}
		return nil, err
	}

	header.CustomerID = input.CustomerID
	header.InvoiceDate = input.InvoiceDate
	header.Customer = nil

	if err := s.txRepo.UpdateHeader(header); err != nil {
		s.log.Error().Err(err).Str("header_id", id.String()).Msg("transaction header update failed")
		return nil, apperror.ErrInternalServer
	}
	return header, nil
}

// DeleteHeader soft-deletes the invoice. The details are retained for audit
// and stock is not credited back; removing stock effects requires deleting
// the details themselves.
func (s *transactionService) DeleteHeader(ctx context.Context, id uuid.UUID) error {
	if _, err := s.txRepo.FindHeaderByID(id); err != nil {
		return err
	}
	if err := s.txRepo.SoftDeleteHeaders([]uuid.UUID{id}); err != nil {
		s.log.Error().Err(err).Str("header_id", id.String()).Msg("transaction header delete failed")
		return apperror.ErrInternalServer
	}
	return nil
}

func (s *transactionService) BulkDeleteHeaders(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return apperror.NewValidation([]apperror.FieldError{{Field: "ids", Message: "at least one id is required"}})
	}
	if err := s.txRepo.SoftDeleteHeaders(ids); err != nil {
		s.log.Error().Err(err).Int("count", len(ids)).Msg("bulk transaction header delete failed")
		return apperror.ErrInternalServer
	}
	return nil
}

func (s *transactionService) GetHeader(id uuid.UUID) (*model.TransactionHeader, error) {
	return s.txRepo.FindHeaderByID(id)
}

func (s *transactionService) ListHeaders(search string) ([]model.TransactionHeader, error) {
	return s.txRepo.FindAllHeaders(search)
}

func (s *transactionService) CreateDetail(ctx context.Context, headerID uuid.UUID, input DetailInput) (*model.TransactionDetail, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}
	header, err := s.txRepo.FindHeaderByID(headerID)
	if err != nil {
		return nil, err
	}
	// Stock pre-check outside the lock; re-verified by AdjustStock inside
	// it, which closes the race window this check cannot.
	product, err := s.productRepo.FindByID(input.ProductID)
	if err != nil {
		if isAppError(err) {
			return nil, apperror.NewNotFound("Product")
		}
		return nil, err
	}
	if input.Qty > product.Stock {
		return nil, stockValidationError(product.Stock)
	}

	var detail *model.TransactionDetail
	err = s.runner.Transaction(ctx, func(tx *gorm.DB) error {
		locked, err := s.productRepo.LockByID(tx, input.ProductID)
		if err != nil {
			return err
		}

		detail = &model.TransactionDetail{
			TransactionHeaderID: header.ID,
			ProductID:           locked.ID,
			Qty:                 input.Qty,
			Price:               input.Price,
			NetPrice:            decimal.Zero,
			Subtotal:            decimal.Zero,
		}
		if err := s.txRepo.CreateDetail(tx, detail); err != nil {
			return err
		}
		if err := s.productRepo.AdjustStock(tx, locked, -input.Qty); err != nil {
			return err
		}
		if err := s.syncDiscounts(tx, detail.ID, input.Discounts); err != nil {
			return err
		}
		if err := s.recalculateValues(tx, detail); err != nil {
			return err
		}
		return s.recalculateTotal(tx, header.ID)
	})
	if err != nil {
		if appErr, ok := asAppError(err); ok {
			return nil, appErr
		}
		s.log.Error().Err(err).
			Str("header_id", headerID.String()).
			Str("product_id", input.ProductID.String()).
			Msg("transaction detail create failed")
		return nil, apperror.ErrInternalServer
	}

	s.notify("transaction_detail_created", detail)
	return detail, nil
}

func (s *transactionService) UpdateDetail(ctx context.Context, headerID, detailID uuid.UUID, input DetailInput) (*model.TransactionDetail, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}
	existing, err := s.txRepo.FindDetailByID(detailID)
	if err != nil {
		return nil, err
	}
	if existing.TransactionHeaderID != headerID {
		return nil, apperror.ErrNotFound
	}

	product, err := s.productRepo.FindByID(input.ProductID)
	if err != nil {
		if isAppError(err) {
			return nil, apperror.NewNotFound("Product")
		}
		return nil, err
	}
	available := product.Stock
	if input.ProductID == existing.ProductID {
		available += existing.Qty
	}
	if input.Qty > available {
		return nil, stockValidationError(available)
	}

	updated := &model.TransactionDetail{
		BaseModel:           existing.BaseModel,
		TransactionHeaderID: existing.TransactionHeaderID,
		ProductID:           input.ProductID,
		Qty:                 input.Qty,
		Price:               input.Price,
	}

	err = s.runner.Transaction(ctx, func(tx *gorm.DB) error {
		if input.ProductID == existing.ProductID {
			locked, err := s.productRepo.LockByID(tx, input.ProductID)
			if err != nil {
				return err
			}
			qtyDiff := input.Qty - existing.Qty
			if err := s.productRepo.AdjustStock(tx, locked, -qtyDiff); err != nil {
				return err
			}
		} else {
			// Product swap: credit the old row, debit the new one. Both
			// rows are locked in ascending id order so two concurrent
			// updates swapping the same pair cannot deadlock.
			if err := s.moveStock(tx, existing.ProductID, input.ProductID, existing.Qty, input.Qty); err != nil {
				return err
			}
		}

		if err := s.txRepo.UpdateDetail(tx, updated); err != nil {
			return err
		}
		if err := s.syncDiscounts(tx, updated.ID, input.Discounts); err != nil {
			return err
		}
		if err := s.recalculateValues(tx, updated); err != nil {
			return err
		}
		return s.recalculateTotal(tx, updated.TransactionHeaderID)
	})
	if err != nil {
		if appErr, ok := asAppError(err); ok {
			return nil, appErr
		}
		s.log.Error().Err(err).
			Str("detail_id", detailID.String()).
			Str("product_id", input.ProductID.String()).
			Msg("transaction detail update failed")
		return nil, apperror.ErrInternalServer
	}

	s.notify("transaction_detail_updated", updated)
	return updated, nil
}

// moveStock performs the two ledger operations of a product swap under two
// row locks acquired in a fixed global order (ascending id).
func (s *transactionService) moveStock(tx *gorm.DB, oldID, newID uuid.UUID, oldQty, newQty int) error {
	first, second := oldID, newID
	if second.String() < first.String() {
		first, second = second, first
	}

	lockedFirst, err := s.productRepo.LockByID(tx, first)
	if err != nil {
		return err
	}
	lockedSecond, err := s.productRepo.LockByID(tx, second)
	if err != nil {
		return err
	}

	oldProduct, newProduct := lockedFirst, lockedSecond
	if oldProduct.ID != oldID {
		oldProduct, newProduct = lockedSecond, lockedFirst
	}

	if err := s.productRepo.AdjustStock(tx, oldProduct, oldQty); err != nil {
		return err
	}
	return s.productRepo.AdjustStock(tx, newProduct, -newQty)
}

func (s *transactionService) DeleteDetail(ctx context.Context, headerID, detailID uuid.UUID) error {
	if _, err := s.txRepo.FindHeaderByID(headerID); err != nil {
		return err
	}
	detail, err := s.txRepo.FindDetailByID(detailID)
	if err != nil {
		return err
	}
	if detail.TransactionHeaderID != headerID {
		return apperror.ErrNotFound
	}

	err = s.runner.Transaction(ctx, func(tx *gorm.DB) error {
		locked, err := s.productRepo.LockByID(tx, detail.ProductID)
		if err != nil {
			return err
		}
		// Full remaining qty goes back to stock.
		if err := s.productRepo.AdjustStock(tx, locked, detail.Qty); err != nil {
			return err
		}
		if err := s.txRepo.SoftDeleteDetail(tx, detail.ID); err != nil {
			return err
		}
		return s.recalculateTotal(tx, headerID)
	})
	if err != nil {
		if appErr, ok := asAppError(err); ok {
			return appErr
		}
		s.log.Error().Err(err).Str("detail_id", detailID.String()).Msg("transaction detail delete failed")
		return apperror.ErrInternalServer
	}

	s.notify("transaction_detail_deleted", detail)
	return nil
}

// BulkDeleteDetails credits every product and removes every detail in one
// atomic unit, recomputing the header total exactly once at the end.
func (s *transactionService) BulkDeleteDetails(ctx context.Context, headerID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return apperror.NewValidation([]apperror.FieldError{{Field: "ids", Message: "at least one id is required"}})
	}
	if _, err := s.txRepo.FindHeaderByID(headerID); err != nil {
		return err
	}

	err := s.runner.Transaction(ctx, func(tx *gorm.DB) error {
		details, err := s.txRepo.LockDetailsByIDs(tx, ids)
		if err != nil {
			return err
		}
		if len(details) == 0 {
			return nil
		}

		// Ascending product id keeps the lock order consistent with every
		// other use-case touching multiple products.
		sortDetailsByProductID(details)

		for i := range details {
			detail := &details[i]
			locked, err := s.productRepo.LockByID(tx, detail.ProductID)
			if err != nil {
				return err
			}
			if err := s.productRepo.AdjustStock(tx, locked, detail.Qty); err != nil {
				return err
			}
			if err := s.txRepo.SoftDeleteDetail(tx, detail.ID); err != nil {
				return err
			}
		}

		return s.recalculateTotal(tx, headerID)
	})
	if err != nil {
		if appErr, ok := asAppError(err); ok {
			return appErr
		}
		s.log.Error().Err(err).Str("header_id", headerID.String()).Int("count", len(ids)).Msg("bulk transaction detail delete failed")
		return apperror.ErrInternalServer
	}

	s.notify("transaction_details_deleted", map[string]interface{}{"header_id": headerID, "ids": ids})
	return nil
}

func (s *transactionService) GetDetail(id uuid.UUID) (*model.TransactionDetail, error) {
	return s.txRepo.FindDetailByID(id)
}

func (s *transactionService) ListDetails(headerID uuid.UUID) ([]model.TransactionDetail, error) {
	return s.txRepo.FindDetailsByHeader(headerID)
}

// syncDiscounts replaces the stored discount stack with the submitted one by
// diff: rows whose id is absent from the submission are deleted, submitted
// rows are created or updated in place keyed by id.
func (s *transactionService) syncDiscounts(tx *gorm.DB, detailID uuid.UUID, submitted []DiscountInput) error {
	existing, err := s.txRepo.FindDiscountsByDetail(tx, detailID)
	if err != nil {
		return err
	}

	diff := diffDiscounts(detailID, existing, submitted)

	if len(diff.toDelete) > 0 {
		if err := s.txRepo.DeleteDiscounts(tx, diff.toDelete); err != nil {
			return err
		}
	}
	for i := range diff.toUpdate {
		if err := s.txRepo.UpdateDiscount(tx, &diff.toUpdate[i]); err != nil {
			return err
		}
	}
	for i := range diff.toCreate {
		if err := s.txRepo.CreateDiscount(tx, &diff.toCreate[i]); err != nil {
			return err
		}
	}
	return nil
}

type discountDiff struct {
	toDelete []uuid.UUID
	toUpdate []model.TransactionDiscount
	toCreate []model.TransactionDiscount
}

func diffDiscounts(detailID uuid.UUID, existing []model.TransactionDiscount, submitted []DiscountInput) discountDiff {
	existingByID := make(map[uuid.UUID]bool, len(existing))
	for _, row := range existing {
		existingByID[row.ID] = true
	}

	var diff discountDiff
	kept := make(map[uuid.UUID]bool, len(submitted))

	for _, in := range submitted {
		row := model.TransactionDiscount{
			TransactionDetailID: detailID,
			Sequence:            in.Sequence,
			Type:                in.Type,
			Value:               in.Value,
		}
		if in.ID != nil && existingByID[*in.ID] {
			row.ID = *in.ID
			kept[*in.ID] = true
			diff.toUpdate = append(diff.toUpdate, row)
			continue
		}
		if in.ID != nil {
			row.ID = *in.ID
		}
		diff.toCreate = append(diff.toCreate, row)
	}

	for _, row := range existing {
		if !kept[row.ID] {
			diff.toDelete = append(diff.toDelete, row.ID)
		}
	}
	return diff
}

// recalculateValues derives the detail's net price and subtotal from its
// stored discount stack and persists them.
func (s *transactionService) recalculateValues(tx *gorm.DB, detail *model.TransactionDetail) error {
	discounts, err := s.txRepo.FindDiscountsByDetail(tx, detail.ID)
	if err != nil {
		return err
	}

	steps := make([]pricing.Step, len(discounts))
	for i, row := range discounts {
		steps[i] = pricing.Step{
			Sequence: row.Sequence,
			Type:     pricing.DiscountType(row.Type),
			Value:    row.Value,
		}
	}

	detail.NetPrice = pricing.NetPrice(detail.Price, steps)
	detail.Subtotal = pricing.Subtotal(detail.NetPrice, detail.Qty)

	return s.txRepo.UpdateDetailValues(tx, detail.ID, detail.NetPrice, detail.Subtotal)
}

// recalculateTotal always recomputes the header total from the live detail
// rows; there is no incremental bookkeeping to drift.
func (s *transactionService) recalculateTotal(tx *gorm.DB, headerID uuid.UUID) error {
	total, err := s.txRepo.SumDetailSubtotals(tx, headerID)
	if err != nil {
		return err
	}
	return s.txRepo.UpdateHeaderTotal(tx, headerID, total)
}

func (s *transactionService) notify(action string, payload interface{}) {
	if s.wsHub == nil {
		return
	}
	go func() {
		msg, err := json.Marshal(map[string]interface{}{
			"type":   "transaction_update",
			"action": action,
			"data":   payload,
		})
		if err != nil {
			return
		}
		s.wsHub.Broadcast <- msg
	}()
}

func validateInput(data interface{}) error {
	errs := validator.ValidateStruct(data)
	if len(errs) == 0 {
		return nil
	}
	fields := make([]apperror.FieldError, len(errs))
	for i, e := range errs {
		fields[i] = apperror.FieldError{
			Field:   e.FailedField,
			Message: fmt.Sprintf("failed on rule '%s'", e.Tag),
		}
	}
	return apperror.NewValidation(fields)
}

func stockValidationError(available int) error {
	return apperror.NewValidation([]apperror.FieldError{{
		Field:   "qty",
		Message: fmt.Sprintf("Quantity exceeds available stock (%d)", available),
	}})
}

func sortDetailsByProductID(details []model.TransactionDetail) {
	sort.Slice(details, func(i, j int) bool {
		return details[i].ProductID.String() < details[j].ProductID.String()
	})
}

func asAppError(err error) (*apperror.AppError, bool) {
	var appErr *apperror.AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

func isAppError(err error) bool {
	_, ok := asAppError(err)
	return ok
}
