package domain

import "strings"

// Role is the membership level of an identity. It is never taken from client
// input without validation; the authoritative value comes from the directory.
type Role string

const (
	// RoleSuperuser is the single accepting authority.
	RoleSuperuser Role = "superuser"
	// RoleAdmin can be applied for; admins are reviewer-eligible.
	RoleAdmin Role = "admin"
	// RoleEmployee can be applied for; employees may be assigned a schedule file.
	RoleEmployee Role = "employee"
)

// Roles lists every known role.
var Roles = []Role{RoleSuperuser, RoleAdmin, RoleEmployee}

// ApplicableRoles lists the roles an applicant may request, in menu order.
var ApplicableRoles = []Role{RoleEmployee, RoleAdmin}

// ParseRole validates a raw role value.
func ParseRole(raw string) (Role, error) {
	for _, r := range Roles {
		if string(r) == raw {
			return r, nil
		}
	}
	return "", &InvalidRoleError{Value: raw}
}

// Valid reports whether r belongs to the fixed role set.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Applicable reports whether an applicant may request r.
func (r Role) Applicable() bool {
	for _, a := range ApplicableRoles {
		if a == r {
			return true
		}
	}
	return false
}

// FileBearing reports whether acceptance into r may pin a document.
func (r Role) FileBearing() bool {
	return r == RoleEmployee
}

// Title returns the capitalized role name used in prompts.
func (r Role) Title() string {
	if r == "" {
		return ""
	}
	s := string(r)
	return strings.ToUpper(s[:1]) + s[1:]
}
