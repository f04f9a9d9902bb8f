package repositories_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"milorg-admin/models"
	"milorg-admin/repositories"
	"milorg-admin/testutil"
)

func createOrg(t *testing.T, db *gorm.DB, acronym string, parent *uint) *models.MilitaryOrganization {
	t.Helper()
	org := &models.MilitaryOrganization{Name: acronym + " org", Acronym: acronym, ParentOrganizationID: parent}
	require.NoError(t, db.Create(org).Error)
	return org
}

func createUser(t *testing.T, db *gorm.DB, n int, orgID *uint) *models.User {
	t.Helper()
	rank := models.Rank{Name: "Soldado", Acronym: "SD"}
	require.NoError(t, db.FirstOrCreate(&rank, models.Rank{Acronym: "SD"}).Error)
	u := &models.User{
		Name:                   fmt.Sprintf("user %d", n),
		ServiceName:            fmt.Sprintf("U%d", n),
		Email:                  fmt.Sprintf("user%d@example.com", n),
		NationalID:             fmt.Sprintf("%011d", n),
		Password:               "x",
		RankID:                 rank.ID,
		MilitaryOrganizationID: orgID,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestOrganizationDeleteCascade(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewOrganizationRepository(db)
	ctx := context.Background()

	org := createOrg(t, db, "BPM", nil)
	other := createOrg(t, db, "OTR", nil)
	require.NoError(t, db.Create(&models.Section{Name: "Pessoal", Acronym: "P1", MilitaryOrganizationID: org.ID}).Error)
	require.NoError(t, db.Create(&models.Section{Name: "Pessoal", Acronym: "P1", MilitaryOrganizationID: other.ID}).Error)
	createUser(t, db, 1, &org.ID)
	createUser(t, db, 2, &other.ID)

	require.NoError(t, repo.DeleteCascade(ctx, org))

	var sections, users int64
	db.Model(&models.Section{}).Where("military_organization_id = ?", org.ID).Count(&sections)
	db.Model(&models.User{}).Where("military_organization_id = ?", org.ID).Count(&users)
	assert.Zero(t, sections)
	assert.Zero(t, users)

	// Soft-deleted rows are retained.
	db.Unscoped().Model(&models.User{}).Where("military_organization_id = ?", org.ID).Count(&users)
	assert.EqualValues(t, 1, users)

	db.Model(&models.User{}).Where("military_organization_id = ?", other.ID).Count(&users)
	assert.EqualValues(t, 1, users)

	_, err := repo.FindByID(ctx, org.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOrganizationDeleteRejectsActiveChildren(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewOrganizationRepository(db)
	ctx := context.Background()

	parent := createOrg(t, db, "CMD", nil)
	child := createOrg(t, db, "BTL", &parent.ID)
	require.NoError(t, db.Create(&models.Section{Name: "Pessoal", Acronym: "P1", MilitaryOrganizationID: parent.ID}).Error)

	assert.ErrorIs(t, repo.DeleteCascade(ctx, parent), repositories.ErrHasChildren)

	// Nothing was deleted.
	var sections int64
	db.Model(&models.Section{}).Where("military_organization_id = ?", parent.ID).Count(&sections)
	assert.EqualValues(t, 1, sections)

	require.NoError(t, repo.DeleteCascade(ctx, child))
	assert.NoError(t, repo.DeleteCascade(ctx, parent))
}

func TestOrganizationParentID(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewOrganizationRepository(db)
	ctx := context.Background()

	root := createOrg(t, db, "ROOT", nil)
	child := createOrg(t, db, "CHILD", &root.ID)

	parent, err := repo.ParentID(ctx, child.ID)
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, root.ID, *parent)

	parent, err = repo.ParentID(ctx, root.ID)
	require.NoError(t, err)
	assert.Nil(t, parent)
}

func TestSectionAcronymExists(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewSectionRepository(db)
	ctx := context.Background()

	org := createOrg(t, db, "BPM", nil)
	other := createOrg(t, db, "OTR", nil)
	section := &models.Section{Name: "Operações", Acronym: "P3", MilitaryOrganizationID: org.ID}
	require.NoError(t, repo.Create(ctx, section))

	exists, err := repo.AcronymExists(ctx, org.ID, "p3", 0)
	require.NoError(t, err)
	assert.True(t, exists, "comparison is case-insensitive")

	exists, err = repo.AcronymExists(ctx, org.ID, "P3", section.ID)
	require.NoError(t, err)
	assert.False(t, exists, "excluded id is ignored")

	exists, err = repo.AcronymExists(ctx, other.ID, "P3", 0)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Delete(ctx, section))
	exists, err = repo.AcronymExists(ctx, org.ID, "P3", 0)
	require.NoError(t, err)
	assert.False(t, exists, "deleted sections free their acronym")
}

func TestRoleLinksReplacedTogether(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewRoleRepository(db)
	ctx := context.Background()

	perms := []models.Permission{
		{Slug: "users.management", Name: "Users", Category: "users"},
		{Slug: "roles.management", Name: "Roles", Category: "roles"},
	}
	require.NoError(t, db.Create(&perms).Error)
	org := createOrg(t, db, "BPM", nil)

	role := &models.Role{Name: "Gestor", Acronym: "GST"}
	require.NoError(t, repo.Create(ctx, role, repositories.RoleLinks{
		Permissions:   perms,
		Organizations: []models.MilitaryOrganization{*org},
	}))

	got, err := repo.FindByID(ctx, role.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"users.management", "roles.management"}, got.PermissionSlugs())
	assert.Len(t, got.MilitaryOrganizations, 1)

	role.Name = "Gestor de Usuários"
	require.NoError(t, repo.Update(ctx, role, repositories.RoleLinks{Permissions: perms[:1]}))

	got, err = repo.FindByID(ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gestor de Usuários", got.Name)
	assert.Equal(t, []string{"users.management"}, got.PermissionSlugs())
	assert.Empty(t, got.MilitaryOrganizations)
}

func TestRoleDeleteDetachesUsers(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewRoleRepository(db)
	users := repositories.NewUserRepository(db)
	ctx := context.Background()

	role := &models.Role{Name: "Operador"}
	require.NoError(t, repo.Create(ctx, role, repositories.RoleLinks{}))
	u := createUser(t, db, 1, nil)
	require.NoError(t, users.UpdateRole(ctx, u.ID, &role.ID))

	require.NoError(t, repo.Delete(ctx, role))

	got, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RoleID)
}

func TestUserFindAllPaginates(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewUserRepository(db)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		createUser(t, db, i, nil)
	}

	page, total, err := repo.FindAll(ctx, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "user 3", page[0].Name)
}

func TestUserUpdateRoleMissingUser(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewUserRepository(db)

	err := repo.UpdateRole(context.Background(), 999, nil)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSectionAcronymIndex(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewSectionRepository(db)
	ctx := context.Background()

	org := createOrg(t, db, "BPM", nil)
	first := &models.Section{Name: "Operações", Acronym: "P3", MilitaryOrganizationID: org.ID}
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, &models.Section{Name: "Outra", Acronym: "P3", MilitaryOrganizationID: org.ID})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey, "live sections share the index")

	require.NoError(t, repo.Delete(ctx, first))
	second := &models.Section{Name: "Operações", Acronym: "P3", MilitaryOrganizationID: org.ID}
	require.NoError(t, repo.Create(ctx, second), "deleted section released the acronym")
	require.NoError(t, repo.Delete(ctx, second))
	assert.NoError(t, repo.Create(ctx, &models.Section{Name: "Operações", Acronym: "P3", MilitaryOrganizationID: org.ID}))

	var deleted int64
	db.Unscoped().Model(&models.Section{}).Where("acronym = ? AND deleted_at IS NOT NULL", "P3").Count(&deleted)
	assert.EqualValues(t, 2, deleted)
}
