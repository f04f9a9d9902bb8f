package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"milorg-admin/apperr"
	"milorg-admin/auth"
	"milorg-admin/controllers"
	"milorg-admin/database"
	"milorg-admin/i18n"
	"milorg-admin/models"
	"milorg-admin/permissions"
	"milorg-admin/services"
	"milorg-admin/testutil"
)

// newLiveServer serves the real HTTP API over a seeded in-memory database.
func newLiveServer(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	require.NoError(t, database.Seed(db, zap.NewNop()))

	tokens, err := auth.NewTokens([]byte("client-test-secret"), time.Hour, "milorg-admin")
	require.NoError(t, err)
	resolver, err := permissions.NewResolver(permissions.SystemManage, permissions.DefaultGlobalSet)
	require.NoError(t, err)

	container := controllers.NewContainer(controllers.RouterConfig{
		DB:         db,
		Services:   services.NewSet(db, tokens, resolver, zap.NewNop()),
		Cookies:    auth.NewCookieStore(false, auth.DefaultCookieMaxAge),
		Resolver:   resolver,
		Translator: i18n.New("en"),
		Logger:     zap.NewNop(),
	})
	srv := httptest.NewServer(container)
	t.Cleanup(srv.Close)
	return srv, db
}

func loggedInAPI(t *testing.T, baseURL string) *API {
	t.Helper()
	api, err := NewAPI(baseURL, nil)
	require.NoError(t, err)
	_, err = api.Login(context.Background(), Credentials{Email: database.SeedAdminEmail, Password: database.SeedAdminPassword})
	require.NoError(t, err)
	return api
}

func TestAPISessionRoundTrip(t *testing.T) {
	srv, _ := newLiveServer(t)
	api := loggedInAPI(t, srv.URL)
	ctx := context.Background()
	require.True(t, api.HasSessionCookie())

	user, err := api.VerifyToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, database.SeedAdminEmail, user.Email)

	ok, err := api.CheckAccess(ctx, string(permissions.RolesManagement))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = api.CheckAccess(ctx, "roles.everything")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	require.NoError(t, api.Logout(ctx))
	assert.False(t, api.HasSessionCookie())

	_, err = api.VerifyToken(ctx)
	assert.ErrorIs(t, err, apperr.ErrTokenMissing)
	assert.NoError(t, api.Logout(ctx), "logout without a session still succeeds")
}

func TestAPILoginFailure(t *testing.T) {
	srv, _ := newLiveServer(t)
	api, err := NewAPI(srv.URL, nil)
	require.NoError(t, err)

	_, err = api.Login(context.Background(), Credentials{Email: database.SeedAdminEmail, Password: "wrong"})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.False(t, apperr.Retryable(err))
	assert.False(t, api.HasSessionCookie())
}

func TestAPICreateSectionDuplicateAcronym(t *testing.T) {
	srv, db := newLiveServer(t)
	api := loggedInAPI(t, srv.URL)
	ctx := context.Background()

	var org models.MilitaryOrganization
	require.NoError(t, db.Where("acronym = ?", "CG").First(&org).Error)

	section, err := api.CreateSection(ctx, SectionInput{Name: "Seção de Pessoal", Acronym: "S1", MilitaryOrganizationID: org.ID})
	require.NoError(t, err)
	assert.NotZero(t, section.ID)

	available, err := api.CheckSectionAcronym(ctx, org.ID, "s1", 0)
	require.NoError(t, err)
	assert.False(t, available)

	available, err = api.CheckSectionAcronym(ctx, org.ID, "s1", section.ID)
	require.NoError(t, err)
	assert.True(t, available, "the section being edited does not clash with itself")

	_, err = api.CreateSection(ctx, SectionInput{Name: "Outra", Acronym: " s1 ", MilitaryOrganizationID: org.ID})
	assert.ErrorIs(t, err, apperr.ErrDuplicateAcronym)
}

func TestAPICreateSectionServerConflict(t *testing.T) {
	srv := newStubServer(t)
	srv.sectionConflict.Store(true)
	api := srv.api(t)

	_, err := api.CreateSection(context.Background(), SectionInput{Name: "Seção", Acronym: "S1", MilitaryOrganizationID: 1})
	assert.ErrorIs(t, err, apperr.ErrDuplicateAcronym)
	assert.Equal(t, "acronym", apperr.From(err).Field)
	assert.Equal(t, int32(1), srv.checkCalls.Load())
	assert.Equal(t, int32(1), srv.createSections.Load())

	srv.sectionConflict.Store(false)
	srv.acronymTaken.Store(true)
	_, err = api.CreateSection(context.Background(), SectionInput{Name: "Seção", Acronym: "S1", MilitaryOrganizationID: 1})
	assert.ErrorIs(t, err, apperr.ErrDuplicateAcronym)
	assert.Equal(t, int32(1), srv.createSections.Load(), "pre-flight clash skips the create call")
}

func TestGuardAgainstLiveServer(t *testing.T) {
	srv, _ := newLiveServer(t)
	api := loggedInAPI(t, srv.URL)

	s := newTestSession(api)
	require.NoError(t, s.Init(context.Background()))
	require.Equal(t, Authenticated, s.State())

	g := newTestGuard(t, s)
	assert.True(t, g.Navigate(context.Background(), "/admin/roles").Allow, "global permission passes every route")
	assert.Equal(t, AdminLanding, g.Navigate(context.Background(), "/").Redirect)
}

func TestAPILogoutSendsJSONContentType(t *testing.T) {
	srv := newStubServer(t)
	api := srv.api(t)

	require.NoError(t, api.Logout(context.Background()))
	assert.Equal(t, int32(1), srv.logoutCalls.Load())
}
