package models

import "strings"

const (
	defaultDisplayName = "User"
	unassignedLead     = "Unassigned"
)

// DisplayName resolves a human label for a member:
// full name, then the prettified local part of the email (member's, then
// fallbackEmail), then "User".
func DisplayName(m *Member, fallbackEmail string) string {
	if m != nil && m.FullName != nil && strings.TrimSpace(*m.FullName) != "" {
		return *m.FullName
	}
	email := fallbackEmail
	if m != nil && m.Email != "" {
		email = m.Email
	}
	if email == "" {
		return defaultDisplayName
	}
	local, _, _ := strings.Cut(email, "@")
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	words := strings.Split(local, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// LeadName resolves a project lead label: full name, email, "Unassigned".
func LeadName(lead *MemberRef) string {
	if lead == nil {
		return unassignedLead
	}
	if lead.FullName != nil && strings.TrimSpace(*lead.FullName) != "" {
		return *lead.FullName
	}
	if lead.Email != "" {
		return lead.Email
	}
	return unassignedLead
}
