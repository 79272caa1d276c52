package auth

import (
	"log/slog"

	"github.com/openlearn/learning-management/internal/core/datamodel/identity"
)

// Decision is the outcome of an access check. The zero value is a denial so a
// forgotten assignment never grants access.
type Decision int

const (
	// DeniedUnauthenticated means there is no principal; the caller should be
	// sent to the login page.
	DeniedUnauthenticated Decision = iota
	// DeniedNotFound means the principal lacks the role or grant. It is
	// presented as a missing page so gated routes cannot be enumerated.
	DeniedNotFound
	Allowed
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case DeniedUnauthenticated:
		return "denied_unauthenticated"
	case DeniedNotFound:
		return "denied_not_found"
	}
	return "unknown"
}

// GateRepositoryAPI resolves permission grants. Lookups return (nil, nil)
// when the row does not exist.
type GateRepositoryAPI interface {
	GetPermissionByCodename(codename string) (*identity.Permission, error)
	HasGrant(userID, permissionID int64) (bool, error)
}

// Gate evaluates every access rule in one place so handlers never hand-roll
// permission checks.
type Gate struct {
	repo   GateRepositoryAPI
	logger *slog.Logger
}

func NewGate(repo GateRepositoryAPI, logger *slog.Logger) *Gate {
	return &Gate{repo: repo, logger: logger}
}

func (g *Gate) CheckAuthenticated(user *User) Decision {
	if user == nil || !user.IsActive {
		return DeniedUnauthenticated
	}
	return Allowed
}

func (g *Gate) CheckStaff(user *User) Decision {
	if d := g.CheckAuthenticated(user); d != Allowed {
		return d
	}
	if !user.IsStaff {
		return DeniedNotFound
	}
	return Allowed
}

func (g *Gate) CheckSuperuser(user *User) Decision {
	if d := g.CheckAuthenticated(user); d != Allowed {
		return d
	}
	if !user.IsSuperuser {
		return DeniedNotFound
	}
	return Allowed
}

// CheckPermission resolves the codename against the catalog and looks for a
// direct grant. Superusers pass every check. A codename missing from the
// catalog is a provisioning bug; it is logged loudly but surfaced to the
// caller exactly like an absent grant.
func (g *Gate) CheckPermission(user *User, codename string) Decision {
	if d := g.CheckAuthenticated(user); d != Allowed {
		return d
	}
	if user.IsSuperuser {
		return Allowed
	}

	perm, err := g.repo.GetPermissionByCodename(codename)
	if err != nil {
		g.logger.Error("permission lookup failed, denying", "codename", codename, "error", err)
		return DeniedNotFound
	}
	if perm == nil {
		g.logger.Error("permission codename not provisioned", "codename", codename)
		return DeniedNotFound
	}

	granted, err := g.repo.HasGrant(user.ID, perm.ID)
	if err != nil {
		g.logger.Error("grant lookup failed, denying", "codename", codename, "user_id", user.ID, "error", err)
		return DeniedNotFound
	}
	if !granted {
		return DeniedNotFound
	}
	return Allowed
}
