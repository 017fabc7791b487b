package service

import (
	"go-pos-backoffice/internal/model"
	"go-pos-backoffice/internal/repository"
	"go-pos-backoffice/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type CustomerService interface {
	Create(input *model.Customer) error
	Update(id uuid.UUID, input *model.Customer) (*model.Customer, error)
	Delete(id uuid.UUID) error
	BulkDelete(ids []uuid.UUID) error
	GetByID(id uuid.UUID) (*model.Customer, error)
	List(search string) ([]model.Customer, error)
	Search(q string) ([]model.Customer, error)
}

type customerService struct {
	customerRepo repository.CustomerRepository
	log          zerolog.Logger
}

func NewCustomerService(customerRepo repository.CustomerRepository, log zerolog.Logger) CustomerService {
	return &customerService{customerRepo: customerRepo, log: log}
}

func (s *customerService) Create(input *model.Customer) error {
	if err := validateInput(input); err != nil {
		return err
	}

	if existing, _ := s.customerRepo.FindByCode(input.Code); existing != nil {
		return apperror.NewConflict("Customer code already exists")
	}

	if err := s.customerRepo.Create(input); err != nil {
		s.log.Error().Err(err).Str("code", input.Code).Msg("customer create failed")
		return apperror.ErrInternalServer
	}
	return nil
}

func (s *customerService) Update(id uuid.UUID, input *model.Customer) (*model.Customer, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	existing, err := s.customerRepo.FindByID(id)
	if err != nil {
		return nil, err
	}

	if byCode, _ := s.customerRepo.FindByCode(input.Code); byCode != nil && byCode.ID != existing.ID {
		return nil, apperror.NewConflict("Customer code already exists")
	}

	existing.Code = input.Code
	existing.Name = input.Name
	existing.Province = input.Province
	existing.ProvinceID = input.ProvinceID
	existing.Regency = input.Regency
	existing.RegencyID = input.RegencyID
	existing.District = input.District
	existing.DistrictID = input.DistrictID
	existing.Village = input.Village
	existing.VillageID = input.VillageID
	existing.Address = input.Address
	existing.PostalCode = input.PostalCode

	if err := s.customerRepo.Update(existing); err != nil {
		s.log.Error().Err(err).Str("customer_id", id.String()).Msg("customer update failed")
		return nil, apperror.ErrInternalServer
	}
	return existing, nil
}

func (s *customerService) Delete(id uuid.UUID) error {
	if _, err := s.customerRepo.FindByID(id); err != nil {
		return err
	}
	if err := s.customerRepo.Delete(id); err != nil {
		s.log.Error().Err(err).Str("customer_id", id.String()).Msg("customer delete failed")
		return apperror.ErrInternalServer
	}
	return nil
}

func (s *customerService) BulkDelete(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return apperror.NewValidation([]apperror.FieldError{{Field: "ids", Message: "at least one id is required"}})
	}
	if err := s.customerRepo.BulkDelete(ids); err != nil {
		s.log.Error().Err(err).Int("count", len(ids)).Msg("bulk customer delete failed")
		return apperror.ErrInternalServer
	}
	return nil
}

func (s *customerService) GetByID(id uuid.UUID) (*model.Customer, error) {
	return s.customerRepo.FindByID(id)
}

func (s *customerService) List(search string) ([]model.Customer, error) {
	return s.customerRepo.FindAll(search)
}

func (s *customerService) Search(q string) ([]model.Customer, error) {
	return s.customerRepo.Search(q, 10)
}
