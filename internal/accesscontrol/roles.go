package accesscontrol

import (
	"fmt"
	"net/url"
	"strings"
)

type Role string

const (
	RoleSuperSuperAdmin Role = "super_super_admin"
	RoleSuperAdmin      Role = "super_admin"
	RoleSchoolAdmin     Role = "school_admin"
	RoleTeacher         Role = "teacher"
	RoleClassTeacher    Role = "class_teacher"
	RoleBursar          Role = "bursar"
	RoleStudent         Role = "student"
	RoleParent          Role = "parent"

	// Anything the API sends that isn't one of the above
	RoleUnknown Role = ""
)

const DefaultDestination = "/dashboard"

var AllRoles = []Role{
	RoleSuperSuperAdmin,
	RoleSuperAdmin,
	RoleSchoolAdmin,
	RoleTeacher,
	RoleClassTeacher,
	RoleBursar,
	RoleStudent,
	RoleParent,
}

var destinations = map[Role]string{
	RoleSuperSuperAdmin: "/super-admin/dashboard",
	RoleSuperAdmin:      "/super-admin/dashboard",
	RoleSchoolAdmin:     "/admin/dashboard",
	RoleTeacher:         "/teacher/dashboard",
	RoleClassTeacher:    "/teacher/dashboard",
	RoleBursar:          "/bursar/dashboard",
	RoleStudent:         "/student/dashboard",
	RoleParent:          "/parent/dashboard",
	RoleUnknown:         DefaultDestination,
}

// ParseRole maps a raw role string onto the closed set, returning RoleUnknown for anything else
func ParseRole(s string) Role {
	r := Role(s)
	if _, ok := destinations[r]; ok {
		return r
	}
	return RoleUnknown
}

func (r Role) Known() bool {
	return r != RoleUnknown && ParseRole(string(r)) == r
}

// Router resolves a role to the dashboard it lands on after login.
// Overrides replace the built in destination for individual roles.
type Router struct {
	overrides map[Role]string
}

// NewRouter rejects overrides for roles outside AllRoles and destinations that leave the site
func NewRouter(overrides map[string]string) (*Router, error) {
	router := &Router{overrides: make(map[Role]string)}

	for name, dest := range overrides {
		role := ParseRole(name)
		if !role.Known() {
			return nil, fmt.Errorf("unknown role %q", name)
		}
		if !IsLocalPath(dest) {
			return nil, fmt.Errorf("destination for %s (%s) must be a path on this site", name, dest)
		}
		router.overrides[role] = dest
	}

	return router, nil
}

// IsLocalPath reports whether dest can only redirect within this host.
// Browsers treat //host and /\host as protocol relative
func IsLocalPath(dest string) bool {
	if !strings.HasPrefix(dest, "/") || strings.HasPrefix(dest, "//") || strings.HasPrefix(dest, "/\\") {
		return false
	}

	u, err := url.Parse(dest)
	return err == nil && u.Scheme == "" && u.Host == ""
}

func (r *Router) Destination(role Role) string {
	if r != nil {
		if dest, ok := r.overrides[role]; ok {
			return dest
		}
	}

	if dest, ok := destinations[role]; ok {
		return dest
	}
	return DefaultDestination
}

func (r *Router) RedirectBasedOnRole(role string) string {
	return r.Destination(ParseRole(role))
}

// RedirectBasedOnRole uses the built in table only
func RedirectBasedOnRole(role string) string {
	var r *Router
	return r.RedirectBasedOnRole(role)
}
