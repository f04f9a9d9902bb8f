package services

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"milorg-admin/auth"
	"milorg-admin/permissions"
	"milorg-admin/repositories"
)

// Set groups every service built over one database.
type Set struct {
	Auth          AuthService
	Users         UserService
	Roles         RoleService
	Organizations OrganizationService
	Sections      SectionService
	Ranks         RankService
	Permissions   PermissionService
}

func NewSet(db *gorm.DB, tokens *auth.Tokens, resolver *permissions.Resolver, logger *zap.Logger) Set {
	userRepo := repositories.NewUserRepository(db)
	roleRepo := repositories.NewRoleRepository(db)
	orgRepo := repositories.NewOrganizationRepository(db)
	sectionRepo := repositories.NewSectionRepository(db)
	rankRepo := repositories.NewRankRepository(db)
	permRepo := repositories.NewPermissionRepository(db)

	return Set{
		Auth:          NewAuthService(userRepo, tokens, resolver, logger.Named("auth")),
		Users:         NewUserService(userRepo, rankRepo, roleRepo, orgRepo, sectionRepo, logger.Named("users")),
		Roles:         NewRoleService(roleRepo, permRepo, orgRepo, sectionRepo, resolver, logger.Named("roles")),
		Organizations: NewOrganizationService(orgRepo, logger.Named("organizations")),
		Sections:      NewSectionService(sectionRepo, orgRepo, logger.Named("sections")),
		Ranks:         NewRankService(rankRepo, logger.Named("ranks")),
		Permissions:   NewPermissionService(permRepo),
	}
}
