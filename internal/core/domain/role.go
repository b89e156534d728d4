package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Role enumerates the closed set of application roles.
type Role string

const (
	RolePatient       Role = "PATIENT"
	RoleDoctor        Role = "DOCTOR"
	RoleNurse         Role = "NURSE"
	RoleAdmin         Role = "ADMIN"
	RoleLabTechnician Role = "LAB_TECHNICIAN"
)

// ErrUnknownRole is returned by ParseRole for values outside the closed set.
var ErrUnknownRole = errors.New("unknown role")

// Roles lists every valid role.
func Roles() []Role {
	return []Role{RolePatient, RoleDoctor, RoleNurse, RoleAdmin, RoleLabTechnician}
}

// ParseRole converts raw input into a Role, rejecting anything outside the closed set.
func ParseRole(raw string) (Role, error) {
	candidate := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if candidate.Valid() {
		return candidate, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleNurse, RoleAdmin, RoleLabTechnician:
		return true
	default:
		return false
	}
}

// RequiresStepUp reports whether the role is subject to OTP step-up verification.
func (r Role) RequiresStepUp() bool {
	return r == RoleDoctor || r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}
