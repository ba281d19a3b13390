package models

// Roles recognized by the service. Identity resolution happens upstream at
// the gateway; this service only consumes the resolved id and role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the authenticated caller forwarded by the gateway.
type Identity struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// IsAdmin reports whether the caller has the administrator role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
