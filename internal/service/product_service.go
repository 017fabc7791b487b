package service

import (
	"encoding/json"

	"go-pos-backoffice/internal/model"
	"go-pos-backoffice/internal/repository"
	"go-pos-backoffice/internal/ws"
	"go-pos-backoffice/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ProductService interface {
	Create(input *model.Product) error
	Update(id uuid.UUID, input *model.Product) (*model.Product, error)
	Delete(id uuid.UUID) error
	BulkDelete(ids []uuid.UUID) error
	GetByID(id uuid.UUID) (*model.Product, error)
	List(search string) ([]model.Product, error)
}

type productService struct {
	productRepo repository.ProductRepository
	wsHub       *ws.Hub
	log         zerolog.Logger
}

func NewProductService(productRepo repository.ProductRepository, hub *ws.Hub, log zerolog.Logger) ProductService {
	return &productService{productRepo: productRepo, wsHub: hub, log: log}
}

func (s *productService) Create(input *model.Product) error {
	if err := validateInput(input); err != nil {
		return err
	}

	if existing, _ := s.productRepo.FindByCode(input.Code); existing != nil {
		return apperror.NewConflict("Product code already exists")
	}

	if err := s.productRepo.Create(input); err != nil {
		s.log.Error().Err(err).Str("code", input.Code).Msg("product create failed")
		return apperror.ErrInternalServer
	}

	s.broadcast("product_created", input)
	return nil
}

func (s *productService) Update(id uuid.UUID, input *model.Product) (*model.Product, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	existing, err := s.productRepo.FindByID(id)
	if err != nil {
		return nil, err
	}

	if byCode, _ := s.productRepo.FindByCode(input.Code); byCode != nil && byCode.ID != existing.ID {
		return nil, apperror.NewConflict("Product code already exists")
	}

	existing.Code = input.Code
	existing.Name = input.Name
	existing.Price = input.Price
	existing.Stock = input.Stock

	if err := s.productRepo.Update(existing); err != nil {
		s.log.Error().Err(err).Str("product_id", id.String()).Msg("product update failed")
		return nil, apperror.ErrInternalServer
	}

	s.broadcast("product_updated", existing)
	return existing, nil
}

func (s *productService) Delete(id uuid.UUID) error {
	if _, err := s.productRepo.FindByID(id); err != nil {
		return err
	}
	if err := s.productRepo.Delete(id); err != nil {
		s.log.Error().Err(err).Str("product_id", id.String()).Msg("product delete failed")
		return apperror.ErrInternalServer
	}
	return nil
}

func (s *productService) BulkDelete(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return apperror.NewValidation([]apperror.FieldError{{Field: "ids", Message: "at least one id is required"}})
	}
	if err := s.productRepo.BulkDelete(ids); err != nil {
		s.log.Error().Err(err).Int("count", len(ids)).Msg("bulk product delete failed")
		return apperror.ErrInternalServer
	}
	return nil
}

func (s *productService) GetByID(id uuid.UUID) (*model.Product, error) {
	return s.productRepo.FindByID(id)
}

func (s *productService) List(search string) ([]model.Product, error) {
	return s.productRepo.FindAll(search)
}

func (s *productService) broadcast(action string, product *model.Product) {
	if s.wsHub == nil {
		return
	}
	go func() {
		msg, err := json.Marshal(map[string]interface{}{
			"type":    "catalog_update",
			"action":  action,
			"product": product,
		})
		if err != nil {
			return
		}
		s.wsHub.Broadcast <- msg
	}()
}
