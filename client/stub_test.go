package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"milorg-admin/auth"
	"milorg-admin/permissions"
)

// stubServer answers the auth endpoints without a database and counts calls.
type stubServer struct {
	*httptest.Server

	user            *auth.Identity
	logoutStatus    int
	acronymTaken    atomic.Bool
	sectionConflict atomic.Bool
	verifyEntered   chan struct{}
	verifyRelease   chan struct{}
	verifyCalls     atomic.Int32
	logoutCalls     atomic.Int32
	checkCalls      atomic.Int32
	createSections  atomic.Int32
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data, "statusCode": http.StatusOK})
}

func writeFail(w http.ResponseWriter, status int, code, field string) {
	writeJSON(w, status, map[string]any{"success": false, "error": map[string]any{
		"message": code, "code": code, "statusCode": status, "field": field,
	}})
}

// newStubServer applies opts before the server starts serving.
func newStubServer(t *testing.T, opts ...func(*stubServer)) *stubServer {
	t.Helper()
	s := &stubServer{
		user: &auth.Identity{ID: 7, Name: "Gestor", Email: "gestor@example.com",
			Permissions: []string{string(permissions.UsersManagement)}},
		logoutStatus: http.StatusOK,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: auth.SessionCookieName, Value: "token", Path: "/", HttpOnly: true})
		writeOK(w, map[string]any{"user": s.user, "message": "Login successful"})
	})
	mux.HandleFunc("/api/auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		s.verifyCalls.Add(1)
		if s.verifyEntered != nil {
			select {
			case s.verifyEntered <- struct{}{}:
			default:
			}
		}
		if s.verifyRelease != nil {
			<-s.verifyRelease
		}
		c, err := r.Cookie(auth.SessionCookieName)
		if err != nil || c.Value == "" {
			writeFail(w, http.StatusUnauthorized, "TOKEN_MISSING", "")
			return
		}
		if c.Value == "expired" {
			http.SetCookie(w, &http.Cookie{Name: auth.SessionCookieName, Value: "", Path: "/", MaxAge: -1})
			writeFail(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "")
			return
		}
		writeOK(w, map[string]any{"user": s.user})
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		s.logoutCalls.Add(1)
		if r.Header.Get("Content-Type") != "application/json" {
			writeFail(w, http.StatusUnsupportedMediaType, "INVALID_INPUT", "")
			return
		}
		if s.logoutStatus != http.StatusOK {
			writeFail(w, s.logoutStatus, "NETWORK_ERROR", "")
			return
		}
		writeOK(w, map[string]any{"message": "Logout successful"})
	})
	mux.HandleFunc("/api/admin/sections/check-acronym", func(w http.ResponseWriter, r *http.Request) {
		s.checkCalls.Add(1)
		writeOK(w, map[string]any{"available": !s.acronymTaken.Load()})
	})
	mux.HandleFunc("/api/admin/sections", func(w http.ResponseWriter, r *http.Request) {
		s.createSections.Add(1)
		if s.sectionConflict.Load() {
			writeFail(w, http.StatusConflict, "DUPLICATE_ACRONYM", "acronym")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]any{
			"id": 3, "name": "Seção", "acronym": "S1", "militaryOrganizationId": 1,
		}})
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func blockingVerify(s *stubServer) {
	s.verifyEntered = make(chan struct{}, 1)
	s.verifyRelease = make(chan struct{})
}

func (s *stubServer) api(t *testing.T) *API {
	t.Helper()
	api, err := NewAPI(s.URL, nil)
	require.NoError(t, err)
	return api
}

func setCookie(t *testing.T, api *API, value string) {
	t.Helper()
	api.http.Jar.SetCookies(api.base, []*http.Cookie{{Name: auth.SessionCookieName, Value: value, Path: "/"}})
}
