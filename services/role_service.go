package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"milorg-admin/apperr"
	"milorg-admin/auth"
	"milorg-admin/models"
	"milorg-admin/permissions"
	"milorg-admin/repositories"
)

type RoleService interface {
	ListRoles(ctx context.Context) ([]auth.RoleView, error)
	GetRole(ctx context.Context, id uint) (*auth.RoleView, error)
	CreateRole(ctx context.Context, input *RoleInput) (*auth.RoleView, error)
	UpdateRole(ctx context.Context, id uint, input *RoleInput) (*auth.RoleView, error)
	DeleteRole(ctx context.Context, id uint) error
}

type RoleInput struct {
	Name            string   `json:"name" validate:"required,max=100"`
	Acronym         string   `json:"acronym" validate:"max=20"`
	Permissions     []string `json:"permissions" validate:"required,min=1,dive,required"`
	OrganizationIDs []uint   `json:"militaryOrganizationIds"`
	SectionIDs      []uint   `json:"sectionIds"`
}

type roleService struct {
	repo        repositories.RoleRepository
	permissions repositories.PermissionRepository
	orgs        repositories.OrganizationRepository
	sections    repositories.SectionRepository
	resolver    *permissions.Resolver
	logger      *zap.Logger
}

var _ RoleService = (*roleService)(nil)

func NewRoleService(
	repo repositories.RoleRepository,
	perms repositories.PermissionRepository,
	orgs repositories.OrganizationRepository,
	sections repositories.SectionRepository,
	resolver *permissions.Resolver,
	logger *zap.Logger,
) RoleService {
	return &roleService{repo: repo, permissions: perms, orgs: orgs, sections: sections, resolver: resolver, logger: logger}
}

func (s *roleService) ListRoles(ctx context.Context) ([]auth.RoleView, error) {
	roles, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, dbError(err, "role")
	}
	out := make([]auth.RoleView, 0, len(roles))
	for i := range roles {
		out = append(out, *roleView(&roles[i], s.resolver))
	}
	return out, nil
}

func (s *roleService) GetRole(ctx context.Context, id uint) (*auth.RoleView, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, dbError(err, "role")
	}
	return roleView(role, s.resolver), nil
}

// CreateRole writes the role and all of its links atomically.
func (s *roleService) CreateRole(ctx context.Context, input *RoleInput) (*auth.RoleView, error) {
	links, err := s.links(ctx, input)
	if err != nil {
		return nil, err
	}
	role := &models.Role{Name: strings.TrimSpace(input.Name), Acronym: strings.ToUpper(strings.TrimSpace(input.Acronym))}
	if err := s.repo.Create(ctx, role, links); err != nil {
		return nil, dbError(err, "role")
	}
	s.warnInconsistent(role, links)
	s.logger.Info("Role created", zap.Uint("role_id", role.ID), zap.Strings("permissions", input.Permissions))
	return s.GetRole(ctx, role.ID)
}

// UpdateRole replaces the role's fields and links atomically.
func (s *roleService) UpdateRole(ctx context.Context, id uint, input *RoleInput) (*auth.RoleView, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, dbError(err, "role")
	}
	links, err := s.links(ctx, input)
	if err != nil {
		return nil, err
	}
	role.Name = strings.TrimSpace(input.Name)
	role.Acronym = strings.ToUpper(strings.TrimSpace(input.Acronym))
	if err := s.repo.Update(ctx, role, links); err != nil {
		return nil, dbError(err, "role")
	}
	s.warnInconsistent(role, links)
	s.logger.Info("Role updated", zap.Uint("role_id", role.ID))
	return s.GetRole(ctx, role.ID)
}

func (s *roleService) DeleteRole(ctx context.Context, id uint) error {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dbError(err, "role")
	}
	if err := s.repo.Delete(ctx, role); err != nil {
		return dbError(err, "role")
	}
	s.logger.Info("Role deleted", zap.Uint("role_id", id))
	return nil
}

// links validates the input and loads every referenced record.
func (s *roleService) links(ctx context.Context, input *RoleInput) (repositories.RoleLinks, error) {
	var links repositories.RoleLinks
	if err := validateInput(input); err != nil {
		return links, err
	}

	slugs, err := permissions.ParseAll(input.Permissions)
	if err != nil {
		return links, apperr.ErrInvalidInput.WithField("permissions").WithMessage(err.Error())
	}
	raw := dedupe(permissions.Strings(slugs))
	perms, err := s.permissions.FindBySlugs(ctx, raw)
	if err != nil {
		return links, dbError(err, "permission")
	}
	if len(perms) != len(raw) {
		return links, apperr.ErrInvalidInput.WithField("permissions").WithMessage("permission is not provisioned")
	}
	links.Permissions = perms

	orgIDs := dedupe(input.OrganizationIDs)
	orgs, err := s.orgs.FindByIDs(ctx, orgIDs)
	if err != nil {
		return links, dbError(err, "organization")
	}
	if len(orgs) != len(orgIDs) {
		return links, apperr.ErrInvalidInput.WithField("militaryOrganizationIds").WithMessage("organization does not exist")
	}
	links.Organizations = orgs

	sectionIDs := dedupe(input.SectionIDs)
	sections, err := s.sections.FindByIDs(ctx, sectionIDs)
	if err != nil {
		return links, dbError(err, "section")
	}
	if len(sections) != len(sectionIDs) {
		return links, apperr.ErrInvalidInput.WithField("sectionIds").WithMessage("section does not exist")
	}
	links.Sections = sections
	return links, nil
}

// warnInconsistent flags global roles that still carry organization links.
// The role stays global; the links are reported as a data-entry issue.
func (s *roleService) warnInconsistent(role *models.Role, links repositories.RoleLinks) {
	held := make([]permissions.Slug, 0, len(links.Permissions))
	for _, p := range links.Permissions {
		held = append(held, permissions.Slug(p.Slug))
	}
	if s.resolver.IsGlobalRole(held) && (len(links.Organizations) > 0 || len(links.Sections) > 0) {
		s.logger.Warn("Global role carries organization links",
			zap.Uint("role_id", role.ID),
			zap.Int("organizations", len(links.Organizations)),
			zap.Int("sections", len(links.Sections)))
	}
}

func dedupe[T comparable](in []T) []T {
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
