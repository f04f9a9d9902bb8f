package permissions

import "fmt"

// DefaultGlobalSet lists the slugs that make a role organization-independent.
var DefaultGlobalSet = []Slug{SystemManage, OrganizationsManage}

// Resolver decides access purely from already-loaded permission slugs.
type Resolver struct {
	global    Slug
	globalSet map[Slug]struct{}
}

// NewResolver builds a resolver whose override slug is global. Both the
// override and the global set must be registered slugs.
func NewResolver(global Slug, globalSet []Slug) (*Resolver, error) {
	if !Known(global) {
		return nil, fmt.Errorf("global override permission %q is not registered", global)
	}
	set := make(map[Slug]struct{}, len(globalSet)+1)
	set[global] = struct{}{}
	for _, s := range globalSet {
		if !Known(s) {
			return nil, fmt.Errorf("global permission %q is not registered", s)
		}
		set[s] = struct{}{}
	}
	return &Resolver{global: global, globalSet: set}, nil
}

// Global returns the override slug.
func (r *Resolver) Global() Slug {
	return r.global
}

// HasPermission grants access when required is empty, when held contains the
// global override, or when held and required share at least one slug.
func (r *Resolver) HasPermission(held []Slug, required []Slug) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[Slug]struct{}, len(held))
	for _, h := range held {
		set[h] = struct{}{}
	}
	if _, ok := set[r.global]; ok {
		return true
	}
	for _, req := range required {
		if _, ok := set[req]; ok {
			return true
		}
	}
	return false
}

// IsGlobalRole reports whether a role holding held is global. Organization
// links on such a role are ignored.
func (r *Resolver) IsGlobalRole(held []Slug) bool {
	for _, h := range held {
		if _, ok := r.globalSet[h]; ok {
			return true
		}
	}
	return false
}
