package access

import "strings"

type Permission string

const (
	ManageSettings     Permission = "novac_manage_settings"
	ViewTransactions   Permission = "novac_view_transactions"
	RefundTransactions Permission = "novac_refund_transactions"
	ExportTransactions Permission = "novac_export_transactions"
)

type Role string

const (
	RoleAdministrator  Role = "administrator"
	RolePaymentManager Role = "payment_manager"
	RoleFinanceAnalyst Role = "finance_analyst"
)

var allPermissions = []Permission{ManageSettings, ViewTransactions, RefundTransactions, ExportTransactions}

var grants = map[Role][]Permission{
	RoleAdministrator:  allPermissions,
	RolePaymentManager: allPermissions,
	RoleFinanceAnalyst: {ViewTransactions, ExportTransactions},
}

// ParseRole accepts a role name with or without the novac_ prefix.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "novac_"))
	_, ok := grants[r]
	return r, ok
}

func (r Role) Permissions() []Permission {
	return append([]Permission(nil), grants[r]...)
}

func (r Role) Has(p Permission) bool {
	for _, g := range grants[r] {
		if g == p {
			return true
		}
	}
	return false
}

// Principal is the authenticated caller of the admin API.
type Principal struct {
	Subject string
	Role    Role
}

func (p Principal) Can(perm Permission) bool {
	return p.Role.Has(perm)
}
