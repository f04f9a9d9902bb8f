package services

import (
	"milorg-admin/auth"
	"milorg-admin/models"
	"milorg-admin/permissions"
)

func orgRef(o models.MilitaryOrganization) auth.OrgRef {
	return auth.OrgRef{ID: o.ID, Name: o.Name, Acronym: o.Acronym}
}

func sectionRef(s models.Section) auth.OrgRef {
	return auth.OrgRef{ID: s.ID, Name: s.Name, Acronym: s.Acronym}
}

// roleView flattens a role with preloaded associations.
func roleView(role *models.Role, resolver *permissions.Resolver) *auth.RoleView {
	if role == nil {
		return nil
	}
	slugs := role.PermissionSlugs()
	view := &auth.RoleView{
		ID:                    role.ID,
		Name:                  role.Name,
		Acronym:               role.Acronym,
		IsGlobal:              resolver.IsGlobalRole(permissions.FromStored(slugs)),
		Permissions:           slugs,
		MilitaryOrganizations: make([]auth.OrgRef, 0, len(role.MilitaryOrganizations)),
		Sections:              make([]auth.OrgRef, 0, len(role.Sections)),
	}
	for _, o := range role.MilitaryOrganizations {
		view.MilitaryOrganizations = append(view.MilitaryOrganizations, orgRef(o))
	}
	for _, s := range role.Sections {
		view.Sections = append(view.Sections, sectionRef(s))
	}
	return view
}

// identityFromUser builds the sanitized session identity.
func identityFromUser(user *models.User, resolver *permissions.Resolver) *auth.Identity {
	identity := &auth.Identity{
		ID:                     user.ID,
		Name:                   user.Name,
		ServiceName:            user.ServiceName,
		Email:                  user.Email,
		NationalID:             user.NationalID,
		MilitaryOrganizationID: user.MilitaryOrganizationID,
		SectionID:              user.SectionID,
		Permissions:            []string{},
	}
	if user.Rank.ID != 0 {
		identity.Rank = &auth.RankRef{ID: user.Rank.ID, Name: user.Rank.Name, Acronym: user.Rank.Acronym}
	}
	if user.Role != nil {
		identity.Role = roleView(user.Role, resolver)
		identity.Permissions = permissions.Strings(permissions.FromStored(user.Role.PermissionSlugs()))
	}
	return identity
}
