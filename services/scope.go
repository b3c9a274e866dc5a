package services

import (
	"gorm.io/gorm"

	"github.com/meinhoongagan/carenest/models"
)

// Actor is the authenticated caller.
type Actor struct {
	ID   uint
	Role models.Role
}

func (a Actor) Can(c models.Capability) bool { return a.Role.Can(c) }

func (a Actor) require(c models.Capability, msg string) error {
	if !a.Can(c) {
		return forbidden("%s", msg)
	}
	return nil
}

type scopeFunc func(q *gorm.DB, userID uint) *gorm.DB

func byColumn(column string) scopeFunc {
	return func(q *gorm.DB, userID uint) *gorm.DB {
		return q.Where(column+" = ?", userID)
	}
}

func unscoped(q *gorm.DB, _ uint) *gorm.DB { return q }

func denyAll(q *gorm.DB, _ uint) *gorm.DB { return q.Where("1 = 0") }

// Row visibility per role, keyed by resource.
var (
	bookingScopes = map[models.Role]scopeFunc{
		models.RoleClient:    byColumn("client_id"),
		models.RoleCaregiver: byColumn("caregiver_id"),
		models.RoleAdmin:     unscoped,
	}
	requestScopes = map[models.Role]scopeFunc{
		models.RoleClient:    byColumn("client_id"),
		models.RoleCaregiver: byColumn("caregiver_id"),
		models.RoleAdmin:     unscoped,
	}
	reviewScopes = map[models.Role]scopeFunc{
		models.RoleClient:    byColumn("reviewer_id"),
		models.RoleCaregiver: byColumn("caregiver_id"),
		models.RoleAdmin:     unscoped,
	}
)

// scoped applies the actor's row filter from table; unknown roles see nothing.
func scoped(table map[models.Role]scopeFunc, q *gorm.DB, a Actor) *gorm.DB {
	fn, ok := table[a.Role]
	if !ok {
		fn = denyAll
	}
	return fn(q, a.ID)
}

// counterpart returns the other party of a client/caregiver pair.
func counterpart(actorID, clientID, caregiverID uint) uint {
	if actorID == clientID {
		return caregiverID
	}
	return clientID
}
