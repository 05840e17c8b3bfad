package accesscontrol

import (
	"fmt"
)

func contains(s []Role, val Role) bool {
	for _, v := range s {
		if v == val {
			return true
		}
	}

	return false
}

// CheckAccess returns nil when role may view a page restricted to allowed.
// An empty allowed list means any authenticated user may view the page.
func CheckAccess(email string, role Role, allowed []Role) error {
	if len(allowed) == 0 {
		return nil
	}

	if !contains(allowed, role) {
		return fmt.Errorf("user (%s) with role %q tried to access a page restricted to %v", email, role, allowed)
	}

	return nil
}
