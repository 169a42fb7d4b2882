package services

import (
	"context"
	"errors"
	"strings"

	"scopehub/internal/caching"
	"scopehub/internal/models"
	"scopehub/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrTenantNotFound = errors.New("tenant not found")

type TenantService interface {
	Create(ctx context.Context, req *CreateTenantRequest) (*models.Tenant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	Update(ctx context.Context, req *UpdateTenantRequest) (*models.Tenant, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*models.Tenant, error)
	SetLogoURL(ctx context.Context, id uuid.UUID, logoURL string, updatedBy uuid.UUID) error
}

type tenantService struct {
	tenantRepo repositories.TenantRepository
	cacheSvc   caching.CacheService
}

func NewTenantService(tenantRepo repositories.TenantRepository, cacheSvc caching.CacheService) TenantService {
	return &tenantService{tenantRepo: tenantRepo, cacheSvc: cacheSvc}
}

type CreateTenantRequest struct {
	Name         string  `json:"name" validate:"required"`
	Type         string  `json:"type" validate:"required"`
	Subdomain    string  `json:"subdomain" validate:"required"`
	Description  *string `json:"description"`
	Website      *string `json:"website"`
	ContactEmail *string `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`
	CreatedBy    uuid.UUID
}

type UpdateTenantRequest struct {
	ID           uuid.UUID
	Name         string  `json:"name" validate:"required"`
	Type         string  `json:"type" validate:"required"`
	Description  *string `json:"description"`
	Website      *string `json:"website"`
	ContactEmail *string `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`
	UpdatedBy    uuid.UUID
}

func (s *tenantService) Create(ctx context.Context, req *CreateTenantRequest) (*models.Tenant, error) {
	if req.Name == "" || req.Subdomain == "" {
		return nil, errors.New("name and subdomain are required")
	}
	if strings.TrimSpace(req.Subdomain) != req.Subdomain {
		return nil, errors.New("subdomain cannot have spaces")
	}
	if !models.ValidTenantType(req.Type) {
		return nil, errors.New("type must be one of: SCHOOL, DISTRICT, TRUST, OTHER")
	}

	tenant := &models.Tenant{
		ID:           uuid.New(),
		Name:         req.Name,
		Type:         req.Type,
		Subdomain:    strings.ToLower(req.Subdomain),
		Description:  req.Description,
		Website:      req.Website,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		CreatedBy:    req.CreatedBy,
		UpdatedBy:    req.CreatedBy,
	}

	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, err
	}

	return tenant, nil
}

// GetByID resolves a tenant, consulting the cache first.
func (s *tenantService) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	if cached, err := s.cacheSvc.GetTenant(ctx, id); err == nil && cached != nil {
		return cached, nil
	}

	tenant, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}

	_ = s.cacheSvc.SetTenant(ctx, tenant, caching.TenantTTL)
	return tenant, nil
}

func (s *tenantService) GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	if subdomain == "" {
		return nil, errors.New("subdomain is required")
	}

	if cached, err := s.cacheSvc.GetTenantBySubdomain(ctx, subdomain); err == nil && cached != nil {
		return cached, nil
	}

	tenant, err := s.tenantRepo.GetBySubdomain(ctx, subdomain)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}

	_ = s.cacheSvc.SetTenant(ctx, tenant, caching.TenantTTL)
	return tenant, nil
}

func (s *tenantService) Update(ctx context.Context, req *UpdateTenantRequest) (*models.Tenant, error) {
	existing, err := s.tenantRepo.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	if !models.ValidTenantType(req.Type) {
		return nil, errors.New("type must be one of: SCHOOL, DISTRICT, TRUST, OTHER")
	}

	existing.Name = req.Name
	existing.Type = req.Type
	existing.Description = req.Description
	existing.Website = req.Website
	existing.ContactEmail = req.ContactEmail
	existing.ContactPhone = req.ContactPhone
	existing.UpdatedBy = req.UpdatedBy

	if err := s.tenantRepo.Update(ctx, existing); err != nil {
		return nil, err
	}

	_ = s.cacheSvc.DeleteTenant(ctx, existing.ID, existing.Subdomain)
	return existing, nil
}

func (s *tenantService) Delete(ctx context.Context, id uuid.UUID) error {
	existing, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTenantNotFound
		}
		return err
	}
	if err := s.tenantRepo.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.cacheSvc.DeleteTenant(ctx, existing.ID, existing.Subdomain)
	return nil
}

func (s *tenantService) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	return s.tenantRepo.List(ctx, limit, offset)
}

func (s *tenantService) SetLogoURL(ctx context.Context, id uuid.UUID, logoURL string, updatedBy uuid.UUID) error {
	existing, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTenantNotFound
		}
		return err
	}
	existing.LogoURL = &logoURL
	existing.UpdatedBy = updatedBy
	if err := s.tenantRepo.Update(ctx, existing); err != nil {
		return err
	}
	_ = s.cacheSvc.DeleteTenant(ctx, existing.ID, existing.Subdomain)
	return nil
}
