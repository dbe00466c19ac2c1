package authz

type Action string

const (
	ActionProductsRead   Action = "products:read"
	ActionProductsWrite  Action = "products:write"
	ActionProductsDelete Action = "products:delete"
	ActionPricesWrite    Action = "prices:write"
	ActionUploadsRead    Action = "uploads:read"
	ActionUploadsWrite   Action = "uploads:write"
	ActionUploadsDelete  Action = "uploads:delete"
)

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleManager    = "manager"
)

// Principal is the caller as resolved for a single request. Role is read
// from the user profile at request time, not from the token.
type Principal struct {
	UserID string
	Name   string
	Role   string
}

func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

var grants = map[string]map[Action]bool{
	RoleManager: {
		ActionProductsRead: true,
		ActionUploadsRead:  true,
		ActionUploadsWrite: true,
	},
}

// Authorize reports whether principal may perform action.
func Authorize(principal Principal, action Action) bool {
	if !principal.Authenticated() {
		return false
	}

	switch principal.Role {
	case RoleSuperAdmin, RoleAdmin:
		return true
	}

	return grants[principal.Role][action]
}
