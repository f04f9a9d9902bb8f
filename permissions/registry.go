// Package permissions defines the closed set of permission slugs known to the
// application and the resolver that decides access from them.
package permissions

import (
	"fmt"
	"sort"
	"strings"
)

// Slug is a dot-separated capability identifier, e.g. "users.management".
type Slug string

const (
	SystemManage        Slug = "admin.system.manage"
	UsersManage         Slug = "admin.users.manage"
	UsersManagement     Slug = "users.management"
	RolesManagement     Slug = "roles.management"
	OrganizationsManage Slug = "organizations.management"
	SectionsManagement  Slug = "sections.management"
	RanksManagement     Slug = "ranks.management"
)

// Definition describes a registered slug.
type Definition struct {
	Slug     Slug
	Name     string
	Category string
}

var registry = []Definition{
	{Slug: SystemManage, Name: "Manage the whole system", Category: "system"},
	{Slug: UsersManage, Name: "Manage users (administration)", Category: "users"},
	{Slug: UsersManagement, Name: "Manage users", Category: "users"},
	{Slug: RolesManagement, Name: "Manage roles and permissions", Category: "roles"},
	{Slug: OrganizationsManage, Name: "Manage military organizations", Category: "organizations"},
	{Slug: SectionsManagement, Name: "Manage sections", Category: "organizations"},
	{Slug: RanksManagement, Name: "Manage ranks", Category: "ranks"},
}

var known = func() map[Slug]Definition {
	m := make(map[Slug]Definition, len(registry))
	for _, d := range registry {
		m[d.Slug] = d
	}
	return m
}()

// All returns every registered permission, sorted by category then slug.
func All() []Definition {
	out := make([]Definition, len(registry))
	copy(out, registry)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}

// Known reports whether s is in the registry.
func Known(s Slug) bool {
	_, ok := known[s]
	return ok
}

// Parse validates a raw slug against the registry.
func Parse(raw string) (Slug, error) {
	s := Slug(strings.TrimSpace(raw))
	if !Known(s) {
		return "", fmt.Errorf("unknown permission slug %q", raw)
	}
	return s, nil
}

// ParseAll validates every raw slug, failing on the first unknown one.
func ParseAll(raw []string) ([]Slug, error) {
	out := make([]Slug, 0, len(raw))
	for _, r := range raw {
		s, err := Parse(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// FromStored converts slugs read from the database. Slugs no longer in the
// registry are dropped rather than granted.
func FromStored(raw []string) []Slug {
	out := make([]Slug, 0, len(raw))
	for _, r := range raw {
		if s := Slug(r); Known(s) {
			out = append(out, s)
		}
	}
	return out
}

// Strings converts slugs back to plain strings.
func Strings(slugs []Slug) []string {
	out := make([]string, len(slugs))
	for i, s := range slugs {
		out[i] = string(s)
	}
	return out
}
