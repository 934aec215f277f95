package enums

import "fmt"

// ActorRole identifies who performed an order mutation. The same values are
// recorded verbatim in the order status history.
type ActorRole string

const (
	ActorRoleBuyer         ActorRole = "BUYER"
	ActorRoleShop          ActorRole = "SHOP"
	ActorRoleRunner        ActorRole = "RUNNER"
	ActorRoleAdmin         ActorRole = "ADMIN"
	ActorRoleSystemWebhook ActorRole = "SYSTEM_WEBHOOK"
)

var validActorRoles = []ActorRole{
	ActorRoleBuyer,
	ActorRoleShop,
	ActorRoleRunner,
	ActorRoleAdmin,
	ActorRoleSystemWebhook,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
