package domain

// Role is the caller's role name as issued by the excluded auth layer.
type Role string

const (
	RoleCEO         Role = "CEO"
	RoleCTO         Role = "CTO"
	RoleAdmin       Role = "Admin"
	RoleLoanOfficer Role = "Loan Officer"
	RoleBorrower    Role = "Borrower"
)

// Actor is the authenticated caller identity consumed from the excluded
// authentication layer.
type Actor struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
}

// reviewRoles may override categories and approve/reject documents.
var reviewRoles = map[Role]bool{
	RoleCEO:         true,
	RoleCTO:         true,
	RoleAdmin:       true,
	RoleLoanOfficer: true,
}

// adminRoles may delete regardless of approval state.
var adminRoles = map[Role]bool{
	RoleCEO:   true,
	RoleCTO:   true,
	RoleAdmin: true,
}

func (a Actor) IsReviewer() bool {
	return reviewRoles[a.Role]
}

func (a Actor) IsAdmin() bool {
	return adminRoles[a.Role]
}

// CanOverrideCategory: reviewer roles, or the entry's owner.
func CanOverrideCategory(actor Actor, entry *LedgerEntry) bool {
	return actor.IsReviewer() || actor.ID == entry.OwnerID
}

// CanDecide: approve/reject requires a reviewer role.
func CanDecide(actor Actor) bool {
	return actor.IsReviewer()
}

// CanDeleteEntry: admin roles always; the owner only while the entry has not
// been approved.
func CanDeleteEntry(actor Actor, entry *LedgerEntry) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.ID == entry.OwnerID && entry.ApprovalStatus() != ApprovalApproved
}
