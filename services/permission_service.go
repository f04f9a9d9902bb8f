package services

import (
	"context"

	"milorg-admin/repositories"
)

// PermissionService lists the provisioned permissions for role editing.
type PermissionService interface {
	ListGrouped(ctx context.Context) ([]PermissionGroup, error)
}

type PermissionResponse struct {
	ID   uint   `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type PermissionGroup struct {
	Category    string               `json:"category"`
	Permissions []PermissionResponse `json:"permissions"`
}

type permissionService struct {
	repo repositories.PermissionRepository
}

var _ PermissionService = (*permissionService)(nil)

func NewPermissionService(repo repositories.PermissionRepository) PermissionService {
	return &permissionService{repo: repo}
}

// ListGrouped returns permissions grouped by category, in category order.
func (s *permissionService) ListGrouped(ctx context.Context) ([]PermissionGroup, error) {
	perms, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, dbError(err, "permission")
	}
	groups := []PermissionGroup{}
	for _, p := range perms {
		if n := len(groups); n == 0 || groups[n-1].Category != p.Category {
			groups = append(groups, PermissionGroup{Category: p.Category})
		}
		g := &groups[len(groups)-1]
		g.Permissions = append(g.Permissions, PermissionResponse{ID: p.ID, Slug: p.Slug, Name: p.Name})
	}
	return groups, nil
}
