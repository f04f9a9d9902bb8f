package database

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"milorg-admin/models"
	"milorg-admin/permissions"
)

// Seeded credentials of the development administrator.
const (
	SeedAdminEmail    = "teste@teste.com"
	SeedAdminPassword = "123456"
)

var seedRanks = []models.Rank{
	{Name: "Soldado", Acronym: "SD", Order: 1},
	{Name: "Cabo", Acronym: "CB", Order: 2},
	{Name: "Sargento", Acronym: "SGT", Order: 3},
	{Name: "Tenente", Acronym: "TEN", Order: 4},
	{Name: "Capitão", Acronym: "CAP", Order: 5},
	{Name: "Major", Acronym: "MAJ", Order: 6},
	{Name: "Coronel", Acronym: "CEL", Order: 7},
}

var seedRoles = []struct {
	Role        models.Role
	Permissions []permissions.Slug
}{
	{
		Role:        models.Role{Name: "Administrador", Acronym: "ADM"},
		Permissions: []permissions.Slug{permissions.SystemManage},
	},
	{
		Role:        models.Role{Name: "Gestor de Usuários", Acronym: "GU"},
		Permissions: []permissions.Slug{permissions.UsersManagement},
	},
}

// Seed inserts reference data and the development administrator when missing.
// It is idempotent.
func Seed(db *gorm.DB, lg *zap.Logger) error {
	for _, def := range permissions.All() {
		var p models.Permission
		err := db.Where(models.Permission{Slug: string(def.Slug)}).
			Attrs(models.Permission{Name: def.Name, Category: def.Category}).
			FirstOrCreate(&p).Error
		if err != nil {
			return fmt.Errorf("seed permission %s: %w", def.Slug, err)
		}
	}

	for _, r := range seedRanks {
		var rank models.Rank
		err := db.Where(models.Rank{Acronym: r.Acronym}).
			Attrs(models.Rank{Name: r.Name, Order: r.Order}).
			FirstOrCreate(&rank).Error
		if err != nil {
			return fmt.Errorf("seed rank %s: %w", r.Acronym, err)
		}
	}

	var adminRole models.Role
	for _, rData := range seedRoles {
		role := rData.Role
		err := db.Where("name = ?", role.Name).First(&role).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			var perms []models.Permission
			if err := db.Where("slug IN ?", permissions.Strings(rData.Permissions)).Find(&perms).Error; err != nil {
				return fmt.Errorf("find permissions for role %s: %w", role.Name, err)
			}
			role.Permissions = perms
			if err := db.Create(&role).Error; err != nil {
				return fmt.Errorf("seed role %s: %w", role.Name, err)
			}
			lg.Info("Seeded role", zap.String("role", role.Name), zap.Int("permissions", len(perms)))
		} else if err != nil {
			return fmt.Errorf("check role %s: %w", role.Name, err)
		}
		if adminRole.ID == 0 {
			adminRole = role
		}
	}

	var root models.MilitaryOrganization
	if err := db.Where(models.MilitaryOrganization{Acronym: "CG"}).
		Attrs(models.MilitaryOrganization{Name: "Comando Geral", Color: "#1B4D3E"}).
		FirstOrCreate(&root).Error; err != nil {
		return fmt.Errorf("seed root organization: %w", err)
	}

	var admin models.User
	err := db.Where("email = ?", SeedAdminEmail).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hashed, err := bcrypt.GenerateFromPassword([]byte(SeedAdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}
		var rank models.Rank
		if err := db.Where("acronym = ?", "CEL").First(&rank).Error; err != nil {
			return fmt.Errorf("find seed rank: %w", err)
		}
		admin = models.User{
			Name:                   "Usuário de Teste",
			ServiceName:            "Teste",
			Email:                  SeedAdminEmail,
			NationalID:             "00000000000",
			Password:               string(hashed),
			RankID:                 rank.ID,
			RoleID:                 &adminRole.ID,
			MilitaryOrganizationID: &root.ID,
		}
		if err := db.Create(&admin).Error; err != nil {
			return fmt.Errorf("create seed user: %w", err)
		}
		lg.Info("Created initial admin user", zap.String("email", SeedAdminEmail))
	} else if err != nil {
		return fmt.Errorf("check seed user: %w", err)
	}
	return nil
}
