package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"milorg-admin/apperr"
	"milorg-admin/auth"
	"milorg-admin/models"
	"milorg-admin/repositories"
)

type SectionService interface {
	ListSections(ctx context.Context, orgID uint) ([]SectionResponse, error)
	GetSection(ctx context.Context, id uint) (*SectionResponse, error)
	CreateSection(ctx context.Context, input *SectionInput) (*SectionResponse, error)
	UpdateSection(ctx context.Context, id uint, input *SectionInput) (*SectionResponse, error)
	DeleteSection(ctx context.Context, id uint) error
	// AcronymAvailable is the read-only pre-flight check behind the
	// duplicate-acronym rule enforced on write.
	AcronymAvailable(ctx context.Context, orgID uint, acronym string, excludeID uint) (bool, error)
}

type SectionInput struct {
	Name                   string `json:"name" validate:"required,max=255"`
	Acronym                string `json:"acronym" validate:"required,max=20"`
	MilitaryOrganizationID uint   `json:"militaryOrganizationId" validate:"required"`
}

type SectionResponse struct {
	ID                     uint         `json:"id"`
	Name                   string       `json:"name"`
	Acronym                string       `json:"acronym"`
	MilitaryOrganizationID uint         `json:"militaryOrganizationId"`
	MilitaryOrganization   *auth.OrgRef `json:"militaryOrganization,omitempty"`
}

type AcronymCheckResponse struct {
	Available bool `json:"available"`
}

type sectionService struct {
	repo   repositories.SectionRepository
	orgs   repositories.OrganizationRepository
	logger *zap.Logger
}

var _ SectionService = (*sectionService)(nil)

func NewSectionService(repo repositories.SectionRepository, orgs repositories.OrganizationRepository, logger *zap.Logger) SectionService {
	return &sectionService{repo: repo, orgs: orgs, logger: logger}
}

func (s *sectionService) ListSections(ctx context.Context, orgID uint) ([]SectionResponse, error) {
	sections, err := s.repo.FindAll(ctx, orgID)
	if err != nil {
		return nil, dbError(err, "section")
	}
	out := make([]SectionResponse, 0, len(sections))
	for i := range sections {
		out = append(out, mapSection(&sections[i]))
	}
	return out, nil
}

func (s *sectionService) GetSection(ctx context.Context, id uint) (*SectionResponse, error) {
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, dbError(err, "section")
	}
	resp := mapSection(section)
	return &resp, nil
}

func (s *sectionService) CreateSection(ctx context.Context, input *SectionInput) (*SectionResponse, error) {
	if err := s.checkInput(ctx, input, 0); err != nil {
		return nil, err
	}
	section := &models.Section{
		Name:                   strings.TrimSpace(input.Name),
		Acronym:                normalizeAcronym(input.Acronym),
		MilitaryOrganizationID: input.MilitaryOrganizationID,
	}
	if err := s.repo.Create(ctx, section); err != nil {
		return nil, sectionError(err, section.Acronym)
	}
	s.logger.Info("Section created",
		zap.Uint("section_id", section.ID),
		zap.Uint("organization_id", section.MilitaryOrganizationID),
		zap.String("acronym", section.Acronym))
	return s.GetSection(ctx, section.ID)
}

func (s *sectionService) UpdateSection(ctx context.Context, id uint, input *SectionInput) (*SectionResponse, error) {
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, dbError(err, "section")
	}
	if err := s.checkInput(ctx, input, id); err != nil {
		return nil, err
	}
	section.Name = strings.TrimSpace(input.Name)
	section.Acronym = normalizeAcronym(input.Acronym)
	section.MilitaryOrganizationID = input.MilitaryOrganizationID
	section.MilitaryOrganization = nil
	if err := s.repo.Update(ctx, section); err != nil {
		return nil, sectionError(err, section.Acronym)
	}
	return s.GetSection(ctx, id)
}

func (s *sectionService) DeleteSection(ctx context.Context, id uint) error {
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dbError(err, "section")
	}
	if err := s.repo.Delete(ctx, section); err != nil {
		return dbError(err, "section")
	}
	s.logger.Info("Section deleted", zap.Uint("section_id", id))
	return nil
}

func (s *sectionService) AcronymAvailable(ctx context.Context, orgID uint, acronym string, excludeID uint) (bool, error) {
	if orgID == 0 {
		return false, apperr.ErrMissingFields.WithField("organizationId")
	}
	if strings.TrimSpace(acronym) == "" {
		return false, apperr.ErrMissingFields.WithField("acronym")
	}
	exists, err := s.repo.AcronymExists(ctx, orgID, acronym, excludeID)
	if err != nil {
		return false, dbError(err, "section")
	}
	return !exists, nil
}

func (s *sectionService) checkInput(ctx context.Context, input *SectionInput, selfID uint) error {
	if err := validateInput(input); err != nil {
		return err
	}
	if _, err := s.orgs.FindByID(ctx, input.MilitaryOrganizationID); err != nil {
		return referenceError(err, "militaryOrganizationId", "organization does not exist")
	}
	exists, err := s.repo.AcronymExists(ctx, input.MilitaryOrganizationID, input.Acronym, selfID)
	if err != nil {
		return dbError(err, "section")
	}
	if exists {
		return apperr.ErrDuplicateAcronym.WithField("acronym").WithDetail("acronym", normalizeAcronym(input.Acronym))
	}
	return nil
}

// sectionError reports a lost race on the acronym index the same way as the
// pre-check does.
func sectionError(err error, acronym string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.ErrDuplicateAcronym.WithField("acronym").WithDetail("acronym", acronym).Wrap(err)
	}
	return dbError(err, "section")
}

func normalizeAcronym(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func mapSection(section *models.Section) SectionResponse {
	resp := SectionResponse{
		ID:                     section.ID,
		Name:                   section.Name,
		Acronym:                section.Acronym,
		MilitaryOrganizationID: section.MilitaryOrganizationID,
	}
	if section.MilitaryOrganization != nil {
		ref := orgRef(*section.MilitaryOrganization)
		resp.MilitaryOrganization = &ref
	}
	return resp
}
