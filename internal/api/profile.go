package api

import (
	"net/http" // HTTP status codes

	"sweetshop/internal/authz"  // Authorization layer
	"sweetshop/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// UpdateProfileRequest carries the fields a user may change on their own
// profile. Timestamps are never accepted from the caller.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"` // Pointer so "" is an explicit value
}

// GetProfileHandler returns the caller's own profile and role grants.
// Both reads are owner-gated by the policy table.
func GetProfileHandler(db *gorm.DB, authorizer *authz.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		uid := userID.(uint)
		ok, err := authorizer.Can(uid, authz.ActionRead, authz.ResourceProfile, uid)
		if err != nil || !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Operation not permitted"})
			return
		}
		var profile domain.Profile
		if err := db.Where("user_id = ?", uid).First(&profile).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		// Role grants are readable by their holder only
		ok, err = authorizer.Can(uid, authz.ActionRead, authz.ResourceRoleGrant, uid)
		if err != nil || !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Operation not permitted"})
			return
		}
		var grants []domain.RoleGrant
		if err := db.Where("user_id = ?", uid).Find(&grants).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch roles"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"profile": profile, "roles": grants})
	}
}

// UpdateProfileHandler updates the caller's own profile. The update
// timestamp is refreshed by the write itself regardless of payload.
func UpdateProfileHandler(db *gorm.DB, authorizer *authz.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		uid := userID.(uint)
		ok, err := authorizer.Can(uid, authz.ActionUpdate, authz.ResourceProfile, uid)
		if err != nil || !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Operation not permitted"})
			return
		}
		var req UpdateProfileRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var profile domain.Profile
		if err := db.Where("user_id = ?", uid).First(&profile).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		updates := map[string]any{} // Only supplied fields are written
		if req.DisplayName != nil {
			updates["display_name"] = *req.DisplayName
		}
		if len(updates) > 0 {
			// Updates also refreshes updated_at as part of the same write
			if err := db.Model(&profile).Updates(updates).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
				return
			}
		}
		// Re-read so the response carries the stored values
		if err := db.Where("user_id = ?", uid).First(&profile).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "profile": profile})
	}
}
