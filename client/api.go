// Package client is a Go SDK for the admin API: session calls, retry and the
// navigation guard used by front ends.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"milorg-admin/apperr"
	"milorg-admin/auth"
)

const defaultTimeout = 10 * time.Second

// API talks to the server over HTTP. The session cookie lives in the client's
// cookie jar.
type API struct {
	base *url.URL
	http *http.Client
}

// NewAPI creates a client for baseURL. A nil httpClient gets a fresh cookie jar.
func NewAPI(baseURL string, httpClient *http.Client) (*API, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		httpClient = &http.Client{Jar: jar, Timeout: defaultTimeout}
	}
	return &API{base: base, http: httpClient}, nil
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginData struct {
	User    *auth.Identity `json:"user"`
	Message string         `json:"message"`
}

type verifyData struct {
	User *auth.Identity `json:"user"`
}

type accessData struct {
	HasAccess bool `json:"hasAccess"`
}

type acronymData struct {
	Available bool `json:"available"`
}

// SectionInput creates a section.
type SectionInput struct {
	Name                   string `json:"name"`
	Acronym                string `json:"acronym"`
	MilitaryOrganizationID uint   `json:"militaryOrganizationId"`
}

type Section struct {
	ID                     uint   `json:"id"`
	Name                   string `json:"name"`
	Acronym                string `json:"acronym"`
	MilitaryOrganizationID uint   `json:"militaryOrganizationId"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message    string         `json:"message"`
		Code       string         `json:"code"`
		StatusCode int            `json:"statusCode"`
		Field      string         `json:"field"`
		Details    map[string]any `json:"details"`
	} `json:"error"`
}

// Login posts credentials; on success the jar holds the session cookie.
func (a *API) Login(ctx context.Context, creds Credentials) (*auth.Identity, error) {
	var out loginData
	if err := a.do(ctx, http.MethodPost, "/api/auth/login", nil, creds, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Logout asks the server to clear the session cookie.
func (a *API) Logout(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)
}

// VerifyToken re-hydrates the identity behind the current session cookie.
func (a *API) VerifyToken(ctx context.Context) (*auth.Identity, error) {
	var out verifyData
	if err := a.do(ctx, http.MethodGet, "/api/auth/verify-token", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// CheckAccess reports whether the session holds any of slugs. A denial is
// returned as apperr.ErrForbidden.
func (a *API) CheckAccess(ctx context.Context, slugs ...string) (bool, error) {
	q := url.Values{}
	if len(slugs) > 0 {
		q.Set("permissions", strings.Join(slugs, ","))
	}
	var out accessData
	if err := a.do(ctx, http.MethodGet, "/api/auth/check-access", q, nil, &out); err != nil {
		return false, err
	}
	return out.HasAccess, nil
}

// CheckSectionAcronym reports whether acronym is free in the organization.
// excludeID is the section being edited, or 0.
func (a *API) CheckSectionAcronym(ctx context.Context, orgID uint, acronym string, excludeID uint) (bool, error) {
	q := url.Values{}
	q.Set("organizationId", strconv.FormatUint(uint64(orgID), 10))
	q.Set("acronym", acronym)
	if excludeID != 0 {
		q.Set("excludeId", strconv.FormatUint(uint64(excludeID), 10))
	}
	var out acronymData
	if err := a.do(ctx, http.MethodGet, "/api/admin/sections/check-acronym", q, nil, &out); err != nil {
		return false, err
	}
	return out.Available, nil
}

// CreateSection checks the acronym first so the caller gets the same
// ErrDuplicateAcronym whether the clash is caught here or by the server.
func (a *API) CreateSection(ctx context.Context, in SectionInput) (*Section, error) {
	available, err := a.CheckSectionAcronym(ctx, in.MilitaryOrganizationID, in.Acronym, 0)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, apperr.ErrDuplicateAcronym.WithField("acronym")
	}

	var out Section
	if err := a.do(ctx, http.MethodPost, "/api/admin/sections", nil, in, &out); err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.StatusCode == http.StatusConflict && appErr.Field == "acronym" {
			return nil, apperr.ErrDuplicateAcronym.WithField("acronym").WithMessage(appErr.Message)
		}
		return nil, err
	}
	return &out, nil
}

// HasSessionCookie reports whether the jar holds a non-empty session cookie.
func (a *API) HasSessionCookie() bool {
	if a.http.Jar == nil {
		return false
	}
	for _, c := range a.http.Jar.Cookies(a.base) {
		if c.Name == auth.SessionCookieName && c.Value != "" {
			return true
		}
	}
	return false
}

// ClearSessionCookie drops the session cookie from the jar.
func (a *API) ClearSessionCookie() {
	if a.http.Jar == nil {
		return
	}
	a.http.Jar.SetCookies(a.base, []*http.Cookie{{Name: auth.SessionCookieName, Path: "/", MaxAge: -1}})
}

func (a *API) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *a.base
	u.Path = a.base.Path + path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body == nil && method != http.MethodGet {
		body = struct{}{}
	}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return apperr.System("encode request", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return apperr.System("build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return apperr.Network(method+" "+path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 500 {
			return apperr.Network(fmt.Sprintf("%s %s: status %d", method, path, resp.StatusCode), err)
		}
		return apperr.System("decode response", err)
	}
	if !env.Success {
		if env.Error == nil {
			return apperr.Decode("", resp.StatusCode, "", "", nil)
		}
		status := env.Error.StatusCode
		if status == 0 {
			status = resp.StatusCode
		}
		return apperr.Decode(env.Error.Code, status, env.Error.Message, env.Error.Field, env.Error.Details)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return apperr.System("decode response data", err)
		}
	}
	return nil
}
