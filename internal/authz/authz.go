// Package authz is the single enforcement point for every data operation.
// Handlers ask Can before touching a row; nothing outside this package may
// resolve role membership directly.
package authz

import (
	"sweetshop/internal/domain" // Role grant model

	"gorm.io/gorm" // GORM ORM library
)

// Action names a data operation being attempted.
type Action string

// Actions gated by the policy table.
const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Resource names the kind of row an action targets.
type Resource string

// Resources covered by the policy table.
const (
	ResourceProfile   Resource = "profile"
	ResourceRoleGrant Resource = "rolegrant"
	ResourceSweet     Resource = "sweet"
	ResourcePurchase  Resource = "purchase"
)

// Anonymous is the caller ID of an unauthenticated request. It owns nothing
// and holds no roles, so only unconditional rules ever admit it.
const Anonymous uint = 0

// Authorizer evaluates the policy table against the role_grants table.
type Authorizer struct {
	db *gorm.DB
}

// New returns an Authorizer backed by the given database handle.
func New(db *gorm.DB) *Authorizer {
	return &Authorizer{db: db}
}

// hasRole reports whether a role grant exists for the (user, role) pair.
// Pure membership lookup, no side effects. It runs outside the ownership
// rules it helps enforce and must stay unexported: request handlers go
// through Can, never through role resolution itself.
func (a *Authorizer) hasRole(userID uint, role string) (bool, error) {
	if userID == Anonymous {
		return false, nil
	}
	var count int64
	err := a.db.Model(&domain.RoleGrant{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error
	return count > 0, err
}

// Can decides whether callerID may perform action on a resource owned by
// ownerID. ownerID is the row's owning user (profile owner, grant holder,
// purchase buyer); for sweets, which have no owner, it is ignored. An
// ownerID of Anonymous means "rows of all users" and only admins pass.
// Every rule is evaluated per request, nothing is cached.
func (a *Authorizer) Can(callerID uint, action Action, resource Resource, ownerID uint) (bool, error) {
	switch resource {
	case ResourceSweet:
		if action == ActionRead {
			return true, nil // Catalog is public, anonymous included
		}
		return a.hasRole(callerID, domain.RoleAdmin)
	case ResourceProfile:
		switch action {
		case ActionRead, ActionUpdate:
			return a.isOwner(callerID, ownerID), nil
		}
		return false, nil // Profiles are created by registration, deleted with the user
	case ResourceRoleGrant:
		if action == ActionRead {
			return a.isOwner(callerID, ownerID), nil
		}
		return false, nil // Grants are never written through the API
	case ResourcePurchase:
		switch action {
		case ActionCreate:
			// A purchase may only name the caller as its buyer.
			return a.isOwner(callerID, ownerID), nil
		case ActionRead:
			if a.isOwner(callerID, ownerID) {
				return true, nil
			}
			return a.hasRole(callerID, domain.RoleAdmin)
		}
		return false, nil // Purchases are immutable
	}
	return false, nil
}

// isOwner reports whether the caller is the authenticated owner of the row.
func (a *Authorizer) isOwner(callerID, ownerID uint) bool {
	return callerID != Anonymous && callerID == ownerID
}
