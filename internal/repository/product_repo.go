package repository

import (
	"errors"

	"go-pos-backoffice/internal/model"
	"go-pos-backoffice/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Create(product *model.Product) error
	FindAll(search string) ([]model.Product, error)
	FindByID(id uuid.UUID) (*model.Product, error)
	FindByCode(code string) (*model.Product, error)
	Update(product *model.Product) error
	Delete(id uuid.UUID) error
	BulkDelete(ids []uuid.UUID) error
	CountLowStock(threshold int) (int64, error)

	// LockByID takes an exclusive row lock on the product for the duration
	// of tx. All stock mutations must go through a row locked this way.
	LockByID(tx *gorm.DB, id uuid.UUID) (*model.Product, error)

	// AdjustStock applies delta to an already-locked product's stock.
	// Fails with apperror.ErrInsufficientStock if the result would be
	// negative. The write is quiet: stock column only, no hooks, no
	// timestamp churn, no cascading recalculation.
	AdjustStock(tx *gorm.DB, product *model.Product, delta int) error
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(product *model.Product) error {
	return r.db.Create(product).Error
}

func (r *productRepo) FindAll(search string) ([]model.Product, error) {
	var products []model.Product
	query := r.db.Order("created_at DESC")
	if search != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	err := query.Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := r.db.First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	return &product, err
}

func (r *productRepo) FindByCode(code string) (*model.Product, error) {
	var product model.Product
	err := r.db.First(&product, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	return &product, err
}

func (r *productRepo) Update(product *model.Product) error {
	return r.db.Save(product).Error
}

func (r *productRepo) Delete(id uuid.UUID) error {
	return r.db.Delete(&model.Product{}, "id = ?", id).Error
}

func (r *productRepo) BulkDelete(ids []uuid.UUID) error {
	return r.db.Delete(&model.Product{}, "id IN ?", ids).Error
}

func (r *productRepo) CountLowStock(threshold int) (int64, error) {
	var count int64
	err := r.db.Model(&model.Product{}).Where("stock <= ?", threshold).Count(&count).Error
	return count, err
}

func (r *productRepo) LockByID(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) AdjustStock(tx *gorm.DB, product *model.Product, delta int) error {
	newStock := product.Stock + delta
	if newStock < 0 {
		return apperror.ErrInsufficientStock
	}

	err := tx.Model(&model.Product{}).
		Where("id = ?", product.ID).
		UpdateColumn("stock", newStock).Error
	if err != nil {
		return err
	}

	product.Stock = newStock
	return nil
}
