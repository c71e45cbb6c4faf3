package domain

import dErrors "escrowd/pkg/domain-errors"

// Caller is the authenticated session passed explicitly into every engine
// operation. The engine never reads a current address from ambient state.
type Caller struct {
	Address Address
	Admin   bool
}

// ActorID identifies the caller in history rows and audit events.
func (c Caller) ActorID() string {
	switch {
	case !c.Address.IsNil():
		return c.Address.String()
	case c.Admin:
		return "admin"
	default:
		return "anonymous"
	}
}

// Is reports whether the caller acts as the given address.
func (c Caller) Is(a Address) bool {
	return !c.Address.IsNil() && c.Address == a
}

// Role selects which side of an escrow an address is on.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// ParseRole validates a role from external input.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleBuyer, RoleSeller:
		return Role(s), nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "role must be buyer or seller")
	}
}

func (r Role) String() string {
	return string(r)
}
