package auth

import "milorg-admin/permissions"

// Identity is the sanitized view of an authenticated user. It has no
// password or secret field at all.
type Identity struct {
	ID                     uint      `json:"id"`
	Name                   string    `json:"name"`
	ServiceName            string    `json:"serviceName"`
	Email                  string    `json:"email"`
	NationalID             string    `json:"nationalId"`
	Rank                   *RankRef  `json:"rank,omitempty"`
	Role                   *RoleView `json:"role,omitempty"`
	MilitaryOrganizationID *uint     `json:"militaryOrganizationId,omitempty"`
	SectionID              *uint     `json:"sectionId,omitempty"`
	Permissions            []string  `json:"permissions"`
}

type RankRef struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Acronym string `json:"acronym"`
}

type RoleView struct {
	ID                    uint     `json:"id"`
	Name                  string   `json:"name"`
	Acronym               string   `json:"acronym"`
	IsGlobal              bool     `json:"isGlobal"`
	Permissions           []string `json:"permissions"`
	MilitaryOrganizations []OrgRef `json:"militaryOrganizations"`
	Sections              []OrgRef `json:"sections"`
}

// OrgRef references an organization or section linked to a role.
type OrgRef struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Acronym string `json:"acronym"`
}

// Slugs returns the identity's permissions as registered slugs.
func (i *Identity) Slugs() []permissions.Slug {
	if i == nil {
		return nil
	}
	return permissions.FromStored(i.Permissions)
}
