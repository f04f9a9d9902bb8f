package services_test

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"milorg-admin/apperr"
	"milorg-admin/auth"
	"milorg-admin/database"
	"milorg-admin/models"
	"milorg-admin/permissions"
	"milorg-admin/repositories"
	"milorg-admin/services"
	"milorg-admin/testutil"
)

const testSecret = "test-secret"

type fixture struct {
	db            *gorm.DB
	tokens        *auth.Tokens
	auth          services.AuthService
	users         services.UserService
	roles         services.RoleService
	organizations services.OrganizationService
	sections      services.SectionService
	ranks         services.RankService
	permissions   services.PermissionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	require.NoError(t, database.Seed(db, zap.NewNop()))

	tokens, err := auth.NewTokens([]byte(testSecret), time.Hour, "milorg-admin")
	require.NoError(t, err)
	resolver, err := permissions.NewResolver(permissions.SystemManage, permissions.DefaultGlobalSet)
	require.NoError(t, err)

	set := services.NewSet(db, tokens, resolver, zap.NewNop())
	return &fixture{
		db:            db,
		tokens:        tokens,
		auth:          set.Auth,
		users:         set.Users,
		roles:         set.Roles,
		organizations: set.Organizations,
		sections:      set.Sections,
		ranks:         set.Ranks,
		permissions:   set.Permissions,
	}
}

func (f *fixture) org(t *testing.T, acronym string, parent *uint) uint {
	t.Helper()
	resp, err := f.organizations.CreateOrganization(context.Background(), &services.OrganizationInput{
		Name: acronym + " org", Acronym: acronym, ParentOrganizationID: parent,
	})
	require.NoError(t, err)
	return resp.ID
}

func (f *fixture) rankID(t *testing.T) uint {
	t.Helper()
	var rank models.Rank
	require.NoError(t, f.db.Where("acronym = ?", "SD").First(&rank).Error)
	return rank.ID
}

func TestLoginSeededAdmin(t *testing.T) {
	f := newFixture(t)

	result, err := f.auth.Login(context.Background(), &services.LoginInput{
		Email:    database.SeedAdminEmail,
		Password: database.SeedAdminPassword,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	require.NotNil(t, result.User.Role)
	assert.Contains(t, result.User.Role.Permissions, string(permissions.SystemManage))
	assert.True(t, result.User.Role.IsGlobal)

	raw, err := json.Marshal(result.User)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "assword")
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Login(ctx, &services.LoginInput{Email: database.SeedAdminEmail, Password: "wrong"})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, &services.LoginInput{Email: "nobody@example.com", Password: "123456"})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, &services.LoginInput{Email: database.SeedAdminEmail})
	assert.ErrorIs(t, err, apperr.ErrMissingFields)
	assert.Equal(t, "password", apperr.From(err).Field)
}

func TestVerifyRejectsSoftDeletedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.auth.Login(ctx, &services.LoginInput{Email: database.SeedAdminEmail, Password: database.SeedAdminPassword})
	require.NoError(t, err)

	identity, err := f.auth.Verify(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, identity.ID)

	require.NoError(t, f.db.Delete(&models.User{}, identity.ID).Error)

	_, err = f.auth.Verify(ctx, result.Token)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	f := newFixture(t)

	var admin models.User
	require.NoError(t, f.db.Where("email = ?", database.SeedAdminEmail).First(&admin).Error)

	issued := time.Now().Add(-2 * time.Hour)
	id := strconv.FormatUint(uint64(admin.ID), 10)
	stale, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.CustomClaims{
		UserID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = f.auth.Verify(context.Background(), stale)
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)
}

func TestSectionAcronymUniquePerOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgA := f.org(t, "BPM", nil)
	orgB := f.org(t, "BPC", nil)

	created, err := f.sections.CreateSection(ctx, &services.SectionInput{Name: "Operações", Acronym: "p3", MilitaryOrganizationID: orgA})
	require.NoError(t, err)
	assert.Equal(t, "P3", created.Acronym)

	_, err = f.sections.CreateSection(ctx, &services.SectionInput{Name: "Outra", Acronym: "P3 ", MilitaryOrganizationID: orgA})
	assert.ErrorIs(t, err, apperr.ErrDuplicateAcronym)
	assert.Equal(t, "acronym", apperr.From(err).Field)

	var count int64
	f.db.Model(&models.Section{}).Where("military_organization_id = ?", orgA).Count(&count)
	assert.EqualValues(t, 1, count)

	_, err = f.sections.CreateSection(ctx, &services.SectionInput{Name: "Operações", Acronym: "P3", MilitaryOrganizationID: orgB})
	assert.NoError(t, err)

	available, err := f.sections.AcronymAvailable(ctx, orgA, "P3", created.ID)
	require.NoError(t, err)
	assert.True(t, available)

	_, err = f.sections.UpdateSection(ctx, created.ID, &services.SectionInput{Name: "Renamed", Acronym: "P3", MilitaryOrganizationID: orgA})
	assert.NoError(t, err, "a section keeps its own acronym")
}

func TestSectionValidation(t *testing.T) {
	f := newFixture(t)
	orgID := f.org(t, "BPM", nil)

	_, err := f.sections.CreateSection(context.Background(), &services.SectionInput{Name: "Sem sigla", MilitaryOrganizationID: orgID})
	assert.ErrorIs(t, err, apperr.ErrMissingFields)
	assert.Equal(t, "acronym", apperr.From(err).Field)

	_, err = f.sections.CreateSection(context.Background(), &services.SectionInput{Name: "X", Acronym: "X", MilitaryOrganizationID: 9999})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestOrganizationReparentCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.org(t, "A", nil)
	b := f.org(t, "B", &a)
	c := f.org(t, "C", &b)

	_, err := f.organizations.UpdateOrganization(ctx, a, &services.OrganizationInput{Name: "A", Acronym: "A", ParentOrganizationID: &a})
	assert.ErrorIs(t, err, apperr.ErrOrganizationCycle, "self parent")

	_, err = f.organizations.UpdateOrganization(ctx, a, &services.OrganizationInput{Name: "A", Acronym: "A", ParentOrganizationID: &c})
	assert.ErrorIs(t, err, apperr.ErrOrganizationCycle, "descendant as parent")

	missing := uint(9999)
	_, err = f.organizations.UpdateOrganization(ctx, c, &services.OrganizationInput{Name: "C", Acronym: "C", ParentOrganizationID: &missing})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	moved, err := f.organizations.UpdateOrganization(ctx, c, &services.OrganizationInput{Name: "C", Acronym: "C", ParentOrganizationID: &a})
	require.NoError(t, err)
	require.NotNil(t, moved.ParentOrganizationID)
	assert.Equal(t, a, *moved.ParentOrganizationID)
}

func TestOrganizationDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parent := f.org(t, "CMD", nil)
	child := f.org(t, "BTL", &parent)
	_, err := f.sections.CreateSection(ctx, &services.SectionInput{Name: "Pessoal", Acronym: "P1", MilitaryOrganizationID: child})
	require.NoError(t, err)
	user, err := f.users.CreateUser(ctx, &services.CreateUserInput{
		Name: "Fulano", ServiceName: "Sd Fulano", Email: "fulano@example.com", NationalID: "12345678901",
		Password: "secret1", RankID: f.rankID(t), MilitaryOrganizationID: &child,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, f.organizations.DeleteOrganization(ctx, parent), apperr.ErrHasSubOrganizations)

	require.NoError(t, f.organizations.DeleteOrganization(ctx, child))
	_, err = f.users.GetUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	sections, err := f.sections.ListSections(ctx, child)
	require.NoError(t, err)
	assert.Empty(t, sections)

	assert.NoError(t, f.organizations.DeleteOrganization(ctx, parent))
}

func TestRoleCreateAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID := f.org(t, "BPM", nil)

	_, err := f.roles.CreateRole(ctx, &services.RoleInput{Name: "Typo", Permissions: []string{"users.managment"}})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Equal(t, "permissions", apperr.From(err).Field)

	_, err = f.roles.CreateRole(ctx, &services.RoleInput{Name: "Empty"})
	assert.ErrorIs(t, err, apperr.ErrMissingFields)

	role, err := f.roles.CreateRole(ctx, &services.RoleInput{
		Name:            "Gestor local",
		Acronym:         "gl",
		Permissions:     []string{"users.management", "sections.management"},
		OrganizationIDs: []uint{orgID},
	})
	require.NoError(t, err)
	assert.Equal(t, "GL", role.Acronym)
	assert.False(t, role.IsGlobal)
	assert.ElementsMatch(t, []string{"users.management", "sections.management"}, role.Permissions)
	require.Len(t, role.MilitaryOrganizations, 1)

	updated, err := f.roles.UpdateRole(ctx, role.ID, &services.RoleInput{
		Name:        "Gestor geral",
		Permissions: []string{"organizations.management"},
	})
	require.NoError(t, err)
	assert.True(t, updated.IsGlobal)
	assert.Equal(t, []string{"organizations.management"}, updated.Permissions)
	assert.Empty(t, updated.MilitaryOrganizations)
}

func TestUserAdministration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rankID := f.rankID(t)

	input := &services.CreateUserInput{
		Name: "Beltrano", ServiceName: "Cb Beltrano", Email: "Beltrano@Example.com", NationalID: "10987654321",
		Password: "secret1", RankID: rankID,
	}
	user, err := f.users.CreateUser(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "beltrano@example.com", user.Email)
	require.NotNil(t, user.Rank)

	dup := *input
	dup.NationalID = "11111111111"
	_, err = f.users.CreateUser(ctx, &dup)
	assert.ErrorIs(t, err, apperr.ErrDuplicateEntry)
	assert.Equal(t, "email", apperr.From(err).Field)

	roles, err := f.roles.ListRoles(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, roles)
	withRole, err := f.users.AssignRole(ctx, user.ID, &roles[0].ID)
	require.NoError(t, err)
	require.NotNil(t, withRole.Role)

	page, err := f.users.ListUsers(ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	assert.ErrorIs(t, f.users.DeleteUser(ctx, user.ID, user.ID), apperr.ErrInvalidInput)
	assert.NoError(t, f.users.DeleteUser(ctx, user.ID, 1))
}

func TestRankDeleteInUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var cel models.Rank
	require.NoError(t, f.db.Where("acronym = ?", "CEL").First(&cel).Error)
	assert.ErrorIs(t, f.ranks.DeleteRank(ctx, cel.ID), apperr.ErrInUse)

	rank, err := f.ranks.CreateRank(ctx, &services.RankInput{Name: "Aspirante", Acronym: "asp", Order: 4})
	require.NoError(t, err)
	assert.Equal(t, "ASP", rank.Acronym)
	assert.NoError(t, f.ranks.DeleteRank(ctx, rank.ID))
}

func TestPermissionsGroupedByCategory(t *testing.T) {
	f := newFixture(t)

	groups, err := f.permissions.ListGrouped(context.Background())
	require.NoError(t, err)

	total := 0
	seen := map[string]bool{}
	for _, g := range groups {
		assert.False(t, seen[g.Category], "category %s appears once", g.Category)
		seen[g.Category] = true
		total += len(g.Permissions)
	}
	assert.Equal(t, len(permissions.All()), total)
}

// staleAcronymCheck answers that every acronym is free, as a concurrent
// request could before the other insert lands.
type staleAcronymCheck struct {
	repositories.SectionRepository
}

func (staleAcronymCheck) AcronymExists(context.Context, uint, string, uint) (bool, error) {
	return false, nil
}

func TestSectionCreateLosingRaceReportsDuplicateAcronym(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID := f.org(t, "BPM", nil)

	sections := services.NewSectionService(
		staleAcronymCheck{repositories.NewSectionRepository(f.db)},
		repositories.NewOrganizationRepository(f.db),
		zap.NewNop(),
	)
	_, err := sections.CreateSection(ctx, &services.SectionInput{Name: "Operações", Acronym: "P3", MilitaryOrganizationID: orgID})
	require.NoError(t, err)

	_, err = sections.CreateSection(ctx, &services.SectionInput{Name: "Outra", Acronym: "p3", MilitaryOrganizationID: orgID})
	assert.ErrorIs(t, err, apperr.ErrDuplicateAcronym)
	assert.Equal(t, "acronym", apperr.From(err).Field)
}
