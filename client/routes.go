package client

import (
	"fmt"
	"sort"
	"strings"

	"milorg-admin/permissions"
)

// Landing routes used by the guard's redirects.
const (
	PublicLanding = "/"
	AdminLanding  = "/admin"
)

// Route declares what a front-end path needs. AccessLevel is OR-ed; empty
// means any authenticated session.
type Route struct {
	Path         string
	RequiresAuth bool
	AccessLevel  []string
}

type route struct {
	path         string
	requiresAuth bool
	accessLevel  []permissions.Slug
}

// RouteTable matches paths to their declarations by longest prefix.
type RouteTable struct {
	routes []route
}

// NewRouteTable validates every access level against the permission registry.
func NewRouteTable(routes []Route) (*RouteTable, error) {
	t := &RouteTable{routes: make([]route, 0, len(routes))}
	seen := make(map[string]bool, len(routes))
	for _, r := range routes {
		p := cleanPath(r.Path)
		if seen[p] {
			return nil, fmt.Errorf("route %q declared twice", p)
		}
		seen[p] = true

		level, err := permissions.ParseAll(r.AccessLevel)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", p, err)
		}
		if len(level) > 0 && !r.RequiresAuth {
			return nil, fmt.Errorf("route %q has an access level but does not require auth", p)
		}
		t.routes = append(t.routes, route{path: p, requiresAuth: r.RequiresAuth, accessLevel: level})
	}
	sort.Slice(t.routes, func(i, j int) bool { return len(t.routes[i].path) > len(t.routes[j].path) })
	return t, nil
}

// DefaultRoutes mirrors the admin front end's pages.
func DefaultRoutes() []Route {
	return []Route{
		{Path: PublicLanding},
		{Path: "/login"},
		{Path: AdminLanding, RequiresAuth: true},
		{Path: "/admin/organizations", RequiresAuth: true, AccessLevel: []string{string(permissions.OrganizationsManage)}},
		{Path: "/admin/sections", RequiresAuth: true, AccessLevel: []string{string(permissions.SectionsManagement)}},
		{Path: "/admin/ranks", RequiresAuth: true, AccessLevel: []string{string(permissions.RanksManagement)}},
		{Path: "/admin/roles", RequiresAuth: true, AccessLevel: []string{string(permissions.RolesManagement)}},
		{Path: "/admin/permissions", RequiresAuth: true, AccessLevel: []string{string(permissions.RolesManagement)}},
		{Path: "/admin/users", RequiresAuth: true, AccessLevel: []string{string(permissions.UsersManagement), string(permissions.UsersManage)}},
	}
}

// match returns the most specific route declared for path.
func (t *RouteTable) match(path string) (route, bool) {
	p := cleanPath(path)
	for _, r := range t.routes {
		if r.path == p || r.path != "/" && strings.HasPrefix(p, r.path+"/") {
			return r, true
		}
	}
	return route{}, false
}

func cleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return "/" + strings.Trim(p, "/")
}
