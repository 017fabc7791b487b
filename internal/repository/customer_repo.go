package repository

import (
	"errors"
	"time"

	"go-pos-backoffice/internal/model"
	"go-pos-backoffice/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerRepository interface {
	Create(customer *model.Customer) error
	FindAll(search string) ([]model.Customer, error)
	FindByID(id uuid.UUID) (*model.Customer, error)
	FindByCode(code string) (*model.Customer, error)
	Search(q string, limit int) ([]model.Customer, error)
	Update(customer *model.Customer) error
	Delete(id uuid.UUID) error
	BulkDelete(ids []uuid.UUID) error
	CountCreatedBetween(start, end time.Time) (int64, error)
}

type customerRepo struct {
	db *gorm.DB
}

func NewCustomerRepo(db *gorm.DB) CustomerRepository {
	return &customerRepo{db}
}

func (r *customerRepo) Create(customer *model.Customer) error {
	return r.db.Create(customer).Error
}

func (r *customerRepo) FindAll(search string) ([]model.Customer, error) {
	var customers []model.Customer
	query := r.db.Order("created_at DESC")
	if search != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	err := query.Find(&customers).Error
	return customers, err
}

func (r *customerRepo) FindByID(id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.First(&customer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	return &customer, err
}

func (r *customerRepo) FindByCode(code string) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.First(&customer, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrNotFound
	}
	return &customer, err
}

func (r *customerRepo) Search(q string, limit int) ([]model.Customer, error) {
	var customers []model.Customer
	err := r.db.Where("name ILIKE ? OR code ILIKE ?", "%"+q+"%", "%"+q+"%").
		Order("name ASC").
		Limit(limit).
		Find(&customers).Error
	return customers, err
}

func (r *customerRepo) Update(customer *model.Customer) error {
	return r.db.Save(customer).Error
}

func (r *customerRepo) Delete(id uuid.UUID) error {
	return r.db.Delete(&model.Customer{}, "id = ?", id).Error
}

func (r *customerRepo) BulkDelete(ids []uuid.UUID) error {
	return r.db.Delete(&model.Customer{}, "id IN ?", ids).Error
}

func (r *customerRepo) CountCreatedBetween(start, end time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.Customer{}).
		Where("created_at BETWEEN ? AND ?", start, end).
		Count(&count).Error
	return count, err
}
