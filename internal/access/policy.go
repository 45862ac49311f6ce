// Package access holds the owner-or-admin authorization rule.
//
// Every handler that reads a single record, mutates a record or lists
// records consults this package; the rule is not repeated anywhere else.
package access

import (
	"github.com/and161185/universal-api/internal/errs"
	"github.com/and161185/universal-api/internal/model"
)

// Branch names the rule that decided an access check.
type Branch string

// Decision branches, recorded in audit logs and metrics.
const (
	BranchOwner  Branch = "owner"
	BranchSelf   Branch = "self"
	BranchAdmin  Branch = "admin"
	BranchDenied Branch = "denied"
)

// Decision is the outcome of an access check.
type Decision struct {
	Allowed bool
	Branch  Branch
}

// Err returns errs.ErrForbidden for a denied decision and nil otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return errs.ErrForbidden
}

func allow(b Branch) Decision { return Decision{Allowed: true, Branch: b} }

var denied = Decision{Branch: BranchDenied}

// Record decides access to a single record owned by ownerID.
// Ownership is evaluated before the admin role.
func Record(caller model.Identity, ownerID string) Decision {
	if caller.Subject != "" && caller.Subject == ownerID {
		return allow(BranchOwner)
	}
	if caller.IsAdmin() {
		return allow(BranchAdmin)
	}
	return denied
}

// ListAll decides access to the unscoped listing. Admin only.
func ListAll(caller model.Identity) Decision {
	if caller.IsAdmin() {
		return allow(BranchAdmin)
	}
	return denied
}

// ListUser decides access to the listing scoped to target.
// Callers may always list their own records.
func ListUser(caller model.Identity, target string) Decision {
	if caller.Subject != "" && caller.Subject == target {
		return allow(BranchSelf)
	}
	if caller.IsAdmin() {
		return allow(BranchAdmin)
	}
	return denied
}
