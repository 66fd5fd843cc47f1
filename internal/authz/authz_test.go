package authz

import (
	"testing"

	"sweetshop/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// newAuthorizer builds an Authorizer over an in-memory database with one
// admin (ID returned first) and one plain user.
func newAuthorizer(t *testing.T) (*Authorizer, uint, uint) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&domain.User{}, &domain.Profile{}, &domain.RoleGrant{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	admin := domain.User{Email: "admin@example.com", Password: "x"}
	user := domain.User{Email: "user@example.com", Password: "x"}
	if err := db.Create(&admin).Error; err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	grants := []domain.RoleGrant{
		{UserID: admin.ID, Role: domain.RoleUser},
		{UserID: admin.ID, Role: domain.RoleAdmin},
		{UserID: user.ID, Role: domain.RoleUser},
	}
	if err := db.Create(&grants).Error; err != nil {
		t.Fatalf("create grants: %v", err)
	}
	return New(db), admin.ID, user.ID
}

func TestCan_PolicyTable(t *testing.T) {
	a, adminID, userID := newAuthorizer(t)
	otherID := userID + 100 // A user that owns the row under test

	cases := []struct {
		name     string
		caller   uint
		action   Action
		resource Resource
		owner    uint
		want     bool
	}{
		// Sweets: public read, admin-only writes
		{"anonymous reads sweets", Anonymous, ActionRead, ResourceSweet, Anonymous, true},
		{"user reads sweets", userID, ActionRead, ResourceSweet, Anonymous, true},
		{"user cannot create sweets", userID, ActionCreate, ResourceSweet, Anonymous, false},
		{"user cannot update sweets", userID, ActionUpdate, ResourceSweet, Anonymous, false},
		{"user cannot delete sweets", userID, ActionDelete, ResourceSweet, Anonymous, false},
		{"admin creates sweets", adminID, ActionCreate, ResourceSweet, Anonymous, true},
		{"admin updates sweets", adminID, ActionUpdate, ResourceSweet, Anonymous, true},
		{"admin deletes sweets", adminID, ActionDelete, ResourceSweet, Anonymous, true},
		{"anonymous cannot write sweets", Anonymous, ActionCreate, ResourceSweet, Anonymous, false},

		// Profiles: strictly owner-gated, admins get no special access
		{"owner reads own profile", userID, ActionRead, ResourceProfile, userID, true},
		{"owner updates own profile", userID, ActionUpdate, ResourceProfile, userID, true},
		{"user cannot read foreign profile", userID, ActionRead, ResourceProfile, otherID, false},
		{"admin cannot update foreign profile", adminID, ActionUpdate, ResourceProfile, otherID, false},
		{"nobody deletes profiles", userID, ActionDelete, ResourceProfile, userID, false},
		{"anonymous cannot read profiles", Anonymous, ActionRead, ResourceProfile, Anonymous, false},

		// Role grants: readable by holder, never writable
		{"holder reads own grants", userID, ActionRead, ResourceRoleGrant, userID, true},
		{"user cannot read foreign grants", userID, ActionRead, ResourceRoleGrant, otherID, false},
		{"nobody creates grants", adminID, ActionCreate, ResourceRoleGrant, adminID, false},

		// Purchases: buyer-gated insert, buyer-or-admin read, immutable
		{"buyer inserts own purchase", userID, ActionCreate, ResourcePurchase, userID, true},
		{"buyer cannot insert for other", userID, ActionCreate, ResourcePurchase, otherID, false},
		{"buyer reads own purchases", userID, ActionRead, ResourcePurchase, userID, true},
		{"user cannot read foreign purchases", userID, ActionRead, ResourcePurchase, otherID, false},
		{"admin reads any purchases", adminID, ActionRead, ResourcePurchase, otherID, true},
		{"admin reads all purchases", adminID, ActionRead, ResourcePurchase, Anonymous, true},
		{"user cannot read all purchases", userID, ActionRead, ResourcePurchase, Anonymous, false},
		{"nobody updates purchases", adminID, ActionUpdate, ResourcePurchase, adminID, false},
		{"nobody deletes purchases", adminID, ActionDelete, ResourcePurchase, adminID, false},
	}
	for _, tc := range cases {
		got, err := a.Can(tc.caller, tc.action, tc.resource, tc.owner)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: Can = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestHasRole_MembershipLookup(t *testing.T) {
	a, adminID, userID := newAuthorizer(t)

	ok, err := a.hasRole(adminID, domain.RoleAdmin)
	if err != nil || !ok {
		t.Fatalf("admin should hold admin role: ok=%v err=%v", ok, err)
	}
	ok, err = a.hasRole(userID, domain.RoleAdmin)
	if err != nil || ok {
		t.Fatalf("user should not hold admin role: ok=%v err=%v", ok, err)
	}
	ok, err = a.hasRole(Anonymous, domain.RoleAdmin)
	if err != nil || ok {
		t.Fatalf("anonymous holds no roles: ok=%v err=%v", ok, err)
	}
}

func TestCan_RevokedGrantTakesEffectImmediately(t *testing.T) {
	a, adminID, _ := newAuthorizer(t)

	ok, err := a.Can(adminID, ActionCreate, ResourceSweet, Anonymous)
	if err != nil || !ok {
		t.Fatalf("admin should pass before revocation: ok=%v err=%v", ok, err)
	}
	// Nothing is cached: dropping the grant flips the next decision
	if err := a.db.Where("user_id = ? AND role = ?", adminID, domain.RoleAdmin).Delete(&domain.RoleGrant{}).Error; err != nil {
		t.Fatalf("revoke grant: %v", err)
	}
	ok, err = a.Can(adminID, ActionCreate, ResourceSweet, Anonymous)
	if err != nil || ok {
		t.Fatalf("revoked admin should be denied: ok=%v err=%v", ok, err)
	}
}
