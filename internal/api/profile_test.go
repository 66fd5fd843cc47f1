package api

import (
	"net/http"
	"testing"
	"time"

	"sweetshop/internal/domain"

	"github.com/gin-gonic/gin"
)

func TestGetProfile_OwnProfileAndRoles(t *testing.T) {
	r, _ := newTestEnv(t)
	token := registerAndLogin(t, r, "me@example.com", "dollymixture")

	w := doJSON(t, r, http.MethodGet, "/profile", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get profile: status %d body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Profile domain.Profile     `json:"profile"`
		Roles   []domain.RoleGrant `json:"roles"`
	}
	decodeBody(t, w, &resp)
	if resp.Profile.Email != "me@example.com" {
		t.Fatalf("profile mismatch: %+v", resp.Profile)
	}
	if len(resp.Roles) != 1 || resp.Roles[0].Role != domain.RoleUser {
		t.Fatalf("expected single user grant, got %+v", resp.Roles)
	}
}

func TestGetProfile_RequiresAuthentication(t *testing.T) {
	r, _ := newTestEnv(t)
	w := doJSON(t, r, http.MethodGet, "/profile", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestUpdateProfile_RefreshesTimestamp(t *testing.T) {
	r, db := newTestEnv(t)
	token := registerAndLogin(t, r, "rename@example.com", "strawberry1")

	var profile domain.Profile
	if err := db.Where("email = ?", "rename@example.com").First(&profile).Error; err != nil {
		t.Fatalf("fetch profile: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	if err := db.Model(&domain.Profile{}).Where("id = ?", profile.ID).UpdateColumn("updated_at", old).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}

	w := doJSON(t, r, http.MethodPut, "/profile", token, gin.H{"display_name": "Candy Fan"})
	if w.Code != http.StatusOK {
		t.Fatalf("update profile: status %d body %s", w.Code, w.Body.String())
	}
	var after domain.Profile
	db.First(&after, profile.ID)
	if after.DisplayName != "Candy Fan" {
		t.Fatalf("display name not updated: %+v", after)
	}
	if !after.UpdatedAt.After(old.Add(30 * time.Minute)) {
		t.Fatalf("updated_at not refreshed: %v", after.UpdatedAt)
	}
}

func TestUpdateProfile_InvalidJSON(t *testing.T) {
	r, _ := newTestEnv(t)
	token := registerAndLogin(t, r, "badjson@example.com", "rhubarbrock")

	w := doJSON(t, r, http.MethodPut, "/profile", token, "not-an-object")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
