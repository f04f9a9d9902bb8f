package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"milorg-admin/apperr"
	"milorg-admin/auth"
	"milorg-admin/models"
	"milorg-admin/repositories"
)

type OrganizationService interface {
	ListOrganizations(ctx context.Context) ([]OrganizationResponse, error)
	GetOrganization(ctx context.Context, id uint) (*OrganizationResponse, error)
	CreateOrganization(ctx context.Context, input *OrganizationInput) (*OrganizationResponse, error)
	UpdateOrganization(ctx context.Context, id uint, input *OrganizationInput) (*OrganizationResponse, error)
	DeleteOrganization(ctx context.Context, id uint) error
}

type OrganizationInput struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Acronym              string `json:"acronym" validate:"required,max=20"`
	Color                string `json:"color" validate:"omitempty,hexcolor"`
	LogoPath             string `json:"logoPath" validate:"omitempty,max=255"`
	ParentOrganizationID *uint  `json:"parentOrganizationId"`
}

type OrganizationResponse struct {
	ID                   uint          `json:"id"`
	Name                 string        `json:"name"`
	Acronym              string        `json:"acronym"`
	Color                string        `json:"color,omitempty"`
	LogoPath             string        `json:"logoPath,omitempty"`
	ParentOrganizationID *uint         `json:"parentOrganizationId,omitempty"`
	ParentOrganization   *auth.OrgRef  `json:"parentOrganization,omitempty"`
	SubOrganizations     []auth.OrgRef `json:"subOrganizations,omitempty"`
	Sections             []auth.OrgRef `json:"sections,omitempty"`
	CreatedAt            time.Time     `json:"createdAt"`
	UpdatedAt            time.Time     `json:"updatedAt"`
}

type organizationService struct {
	repo   repositories.OrganizationRepository
	logger *zap.Logger
}

var _ OrganizationService = (*organizationService)(nil)

func NewOrganizationService(repo repositories.OrganizationRepository, logger *zap.Logger) OrganizationService {
	return &organizationService{repo: repo, logger: logger}
}

func (s *organizationService) ListOrganizations(ctx context.Context) ([]OrganizationResponse, error) {
	orgs, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, dbError(err, "organization")
	}
	out := make([]OrganizationResponse, 0, len(orgs))
	for i := range orgs {
		out = append(out, mapOrganization(&orgs[i]))
	}
	return out, nil
}

func (s *organizationService) GetOrganization(ctx context.Context, id uint) (*OrganizationResponse, error) {
	org, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, dbError(err, "organization")
	}
	resp := mapOrganization(org)
	return &resp, nil
}

func (s *organizationService) CreateOrganization(ctx context.Context, input *OrganizationInput) (*OrganizationResponse, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.ParentOrganizationID != nil {
		if _, err := s.repo.FindByID(ctx, *input.ParentOrganizationID); err != nil {
			return nil, referenceError(err, "parentOrganizationId", "parent organization does not exist")
		}
	}

	org := &models.MilitaryOrganization{}
	applyOrganizationInput(org, input)
	if err := s.repo.Create(ctx, org); err != nil {
		return nil, dbError(err, "organization")
	}
	s.logger.Info("Organization created", zap.Uint("organization_id", org.ID), zap.String("acronym", org.Acronym))
	return s.GetOrganization(ctx, org.ID)
}

// UpdateOrganization rejects any parent that would make the organization its
// own ancestor, walking the whole chain above the new parent.
func (s *organizationService) UpdateOrganization(ctx context.Context, id uint, input *OrganizationInput) (*OrganizationResponse, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	org, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, dbError(err, "organization")
	}
	if input.ParentOrganizationID != nil {
		if err := s.checkAncestry(ctx, id, *input.ParentOrganizationID); err != nil {
			return nil, err
		}
	}

	applyOrganizationInput(org, input)
	if err := s.repo.Update(ctx, org); err != nil {
		return nil, dbError(err, "organization")
	}
	return s.GetOrganization(ctx, org.ID)
}

func (s *organizationService) checkAncestry(ctx context.Context, id, parentID uint) error {
	cycle := apperr.ErrOrganizationCycle.WithField("parentOrganizationId")
	visited := map[uint]struct{}{}
	current := parentID
	for {
		if current == id {
			return cycle
		}
		if _, seen := visited[current]; seen {
			// The stored tree already loops above the new parent.
			return cycle
		}
		visited[current] = struct{}{}

		next, err := s.repo.ParentID(ctx, current)
		if err != nil {
			if current == parentID {
				return referenceError(err, "parentOrganizationId", "parent organization does not exist")
			}
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// A soft-deleted ancestor ends the chain.
				return nil
			}
			return dbError(err, "organization")
		}
		if next == nil {
			return nil
		}
		current = *next
	}
}

// DeleteOrganization soft-deletes the organization with its sections and
// users. Organizations with active sub-organizations are kept.
func (s *organizationService) DeleteOrganization(ctx context.Context, id uint) error {
	org, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dbError(err, "organization")
	}
	if err := s.repo.DeleteCascade(ctx, org); err != nil {
		if errors.Is(err, repositories.ErrHasChildren) {
			return apperr.ErrHasSubOrganizations
		}
		return dbError(err, "organization")
	}
	s.logger.Info("Organization deleted", zap.Uint("organization_id", id))
	return nil
}

func applyOrganizationInput(org *models.MilitaryOrganization, input *OrganizationInput) {
	org.Name = strings.TrimSpace(input.Name)
	org.Acronym = strings.ToUpper(strings.TrimSpace(input.Acronym))
	org.Color = input.Color
	org.LogoPath = input.LogoPath
	org.ParentOrganizationID = input.ParentOrganizationID
	org.ParentOrganization = nil
}

func mapOrganization(org *models.MilitaryOrganization) OrganizationResponse {
	resp := OrganizationResponse{
		ID:                   org.ID,
		Name:                 org.Name,
		Acronym:              org.Acronym,
		Color:                org.Color,
		LogoPath:             org.LogoPath,
		ParentOrganizationID: org.ParentOrganizationID,
		CreatedAt:            org.CreatedAt,
		UpdatedAt:            org.UpdatedAt,
	}
	if org.ParentOrganization != nil {
		ref := orgRef(*org.ParentOrganization)
		resp.ParentOrganization = &ref
	}
	for _, sub := range org.SubOrganizations {
		resp.SubOrganizations = append(resp.SubOrganizations, orgRef(sub))
	}
	for _, sec := range org.Sections {
		resp.Sections = append(resp.Sections, sectionRef(sec))
	}
	return resp
}
