package auth

import (
	"errors"
	"strings"
)

// Role is assigned by the backend; the client only reads it.
type Role string

const (
	RoleStudent          Role = "STUDENT"
	RoleInstructor       Role = "INSTRUCTOR"
	RoleCertificateAdmin Role = "CERTIFICATE_ADMIN"
	RoleInstitutionAdmin Role = "INSTITUTION_ADMIN"
	RoleSystemAdmin      Role = "SYSTEM_ADMIN"
	RoleVerifier         Role = "VERIFIER"
)

var ErrUnknownRole = errors.New("unknown_role")

// Roles lists every role in the order the registration form offers them.
var Roles = []Role{
	RoleStudent,
	RoleInstructor,
	RoleCertificateAdmin,
	RoleInstitutionAdmin,
	RoleSystemAdmin,
	RoleVerifier,
}

func ParseRole(value string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(value)))
	if !role.Valid() {
		return "", ErrUnknownRole
	}
	return role, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleCertificateAdmin, RoleInstitutionAdmin, RoleSystemAdmin, RoleVerifier:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

func (r Role) Label() string {
	switch r {
	case RoleStudent:
		return "Student"
	case RoleInstructor:
		return "Instructor"
	case RoleCertificateAdmin:
		return "Certificate Admin"
	case RoleInstitutionAdmin:
		return "Institution Admin"
	case RoleSystemAdmin:
		return "System Admin"
	case RoleVerifier:
		return "Verifier"
	}
	return string(r)
}

// Color is the badge colour used in the users table.
func (r Role) Color() string {
	switch r {
	case RoleStudent:
		return "#3498db"
	case RoleInstructor:
		return "#9b59b6"
	case RoleCertificateAdmin:
		return "#e67e22"
	case RoleInstitutionAdmin:
		return "#f39c12"
	case RoleSystemAdmin:
		return "#e74c3c"
	case RoleVerifier:
		return "#27ae60"
	}
	return "#95a5a6"
}
