package ledger

import "multiverse.land/internal/protocol"

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleDev      Role = "DEV"
	RoleMinter   Role = "MINTER"
	RoleManager  Role = "MANAGER"
	RoleContract Role = "CONTRACT"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleDev, RoleMinter, RoleManager, RoleContract:
		return Role(s), true
	}
	return "", false
}

func (l *Ledger) grant(role Role, addr Address) {
	set := l.roles[role]
	if set == nil {
		set = map[Address]struct{}{}
		l.roles[role] = set
	}
	set[addr] = struct{}{}
}

// HasRole reports whether addr holds role. There is no implicit role
// inheritance; each gated operation names the exact roles it accepts.
func (l *Ledger) HasRole(role Role, addr Address) bool {
	_, ok := l.roles[role][addr]
	return ok
}

// anyRole is the capability-set check: the caller passes when its roles
// intersect the required set.
func (l *Ledger) anyRole(addr Address, roles ...Role) bool {
	for _, r := range roles {
		if l.HasRole(r, addr) {
			return true
		}
	}
	return false
}

func (l *Ledger) GrantRole(actor Address, role Role, addr Address) (Receipt, error) {
	if !l.HasRole(RoleAdmin, actor) {
		return Receipt{}, l.reject(protocol.OpGrantRole, actor,
			errf(protocol.ErrUnauthorized, "%s lacks ADMIN", actor))
	}
	if _, ok := ParseRole(string(role)); !ok {
		return Receipt{}, l.reject(protocol.OpGrantRole, actor,
			errf(protocol.ErrBadRequest, "unknown role %q", role))
	}
	if !addr.Valid() {
		return Receipt{}, l.reject(protocol.OpGrantRole, actor,
			errf(protocol.ErrBadRequest, "bad address %q", addr))
	}
	l.grant(role, addr)
	return l.commit(protocol.OpGrantRole, actor, map[string]any{
		"role": role, "addr": addr,
	}), nil
}

func (l *Ledger) RevokeRole(actor Address, role Role, addr Address) (Receipt, error) {
	if !l.HasRole(RoleAdmin, actor) {
		return Receipt{}, l.reject(protocol.OpRevokeRole, actor,
			errf(protocol.ErrUnauthorized, "%s lacks ADMIN", actor))
	}
	if _, ok := ParseRole(string(role)); !ok {
		return Receipt{}, l.reject(protocol.OpRevokeRole, actor,
			errf(protocol.ErrBadRequest, "unknown role %q", role))
	}
	delete(l.roles[role], addr)
	return l.commit(protocol.OpRevokeRole, actor, map[string]any{
		"role": role, "addr": addr,
	}), nil
}
