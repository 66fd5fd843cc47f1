package api

import (
	"context"  // Context for Redis operations
	"errors"   // Sentinel errors
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Time durations

	"sweetshop/internal/authz"  // Authorization layer
	"sweetshop/internal/domain" // Importing domain models
	"sweetshop/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// CreateSweetRequest is the admin create payload. ID and timestamps are
// server-generated; the image falls back to a placeholder.
type CreateSweetRequest struct {
	Name        string `json:"name" binding:"required"`              // Product name
	Category    string `json:"category" binding:"required"`          // Category
	PriceCents  *int64 `json:"price_cents" binding:"required,gte=0"` // Unit price in cents, non-negative
	Quantity    *int64 `json:"quantity" binding:"required,gte=0"`    // Initial stock, non-negative
	Description string `json:"description"`                          // Optional description
	ImageURL    string `json:"image_url"`                            // Optional image reference
}

// UpdateSweetRequest is the admin partial-update payload. Pointers so that
// omitted fields are left untouched.
type UpdateSweetRequest struct {
	Name        *string `json:"name"`        // New name
	Category    *string `json:"category"`    // New category
	PriceCents  *int64  `json:"price_cents"` // New price in cents
	Description *string `json:"description"` // New description
	ImageURL    *string `json:"image_url"`   // New image reference
}

// RestockRequest carries the new absolute stock level (not a delta)
type RestockRequest struct {
	Quantity *int64 `json:"quantity" binding:"required,gte=0"` // Absolute quantity, non-negative
}

// invalidateCatalogCache drops cached catalog pages after a mutation
func invalidateCatalogCache(c *gin.Context) {
	if rdb, ok := c.MustGet("redisClient").(*redis.Client); ok {
		utils.DeleteCachePages(context.Background(), rdb, sweetsCachePrefix)
	}
}

// sweetWriteAllowed runs the policy check shared by all inventory writes.
// The admin middleware has already gated the route group; the handler-level
// check keeps the policy enforced at the data operation itself.
func sweetWriteAllowed(c *gin.Context, authorizer *authz.Authorizer, action authz.Action) (uint, bool) {
	userID, exists := c.Get("userID") // Get userID from context
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	uid := userID.(uint)
	ok, err := authorizer.Can(uid, action, authz.ResourceSweet, authz.Anonymous)
	if err != nil || !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Operation not permitted"})
		return 0, false
	}
	return uid, true
}

// CreateSweetHandler adds a sweet to the catalog (admin only)
func CreateSweetHandler(db *gorm.DB, authorizer *authz.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := sweetWriteAllowed(c, authorizer, authz.ActionCreate)
		if !ok {
			return
		}
		var req CreateSweetRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		imageURL := req.ImageURL
		if imageURL == "" {
			imageURL = domain.DefaultImageURL // Placeholder when omitted
		}
		sweet := domain.Sweet{
			Name:        req.Name,
			Category:    req.Category,
			PriceCents:  *req.PriceCents,
			Quantity:    *req.Quantity,
			Description: req.Description,
			ImageURL:    imageURL,
		}
		if err := db.Create(&sweet).Error; err != nil {
			logrus.WithFields(logrus.Fields{
				"admin_id": uid,         // Acting admin
				"error":    err.Error(), // Error message
			}).Error("Failed to create sweet")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create sweet"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"admin_id": uid,        // Acting admin
			"sweet_id": sweet.ID,   // New sweet ID
			"name":     sweet.Name, // Sweet name
		}).Info("Sweet created")
		invalidateCatalogCache(c)
		c.JSON(http.StatusCreated, gin.H{"message": "Sweet created", "sweet": sweet})
	}
}

// UpdateSweetHandler applies a partial update to a sweet (admin only).
// updated_at is refreshed by the write regardless of which fields changed.
func UpdateSweetHandler(db *gorm.DB, authorizer *authz.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := sweetWriteAllowed(c, authorizer, authz.ActionUpdate)
		if !ok {
			return
		}
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sweet ID"})
			return
		}
		var req UpdateSweetRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.PriceCents != nil && *req.PriceCents < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Price must be non-negative"})
			return
		}
		var sweet domain.Sweet
		if err := db.First(&sweet, uint(id)).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Sweet not found"})
			return
		}
		updates := map[string]any{} // Only supplied fields are written
		if req.Name != nil {
			updates["name"] = *req.Name
		}
		if req.Category != nil {
			updates["category"] = *req.Category
		}
		if req.PriceCents != nil {
			updates["price_cents"] = *req.PriceCents
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.ImageURL != nil {
			updates["image_url"] = *req.ImageURL
		}
		if len(updates) > 0 {
			// Updates refreshes updated_at as part of the same write
			if err := db.Model(&sweet).Updates(updates).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update sweet"})
				return
			}
		}
		if err := db.First(&sweet, uint(id)).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sweet"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"admin_id": uid,      // Acting admin
			"sweet_id": sweet.ID, // Updated sweet
		}).Info("Sweet updated")
		invalidateCatalogCache(c)
		c.JSON(http.StatusOK, gin.H{"message": "Sweet updated", "sweet": sweet})
	}
}

// DeleteSweetHandler removes a sweet (admin only). Deletion is restricted
// when purchase history exists: silently cascading away purchase records
// would destroy the audit trail, so those deletes are rejected instead.
func DeleteSweetHandler(db *gorm.DB, authorizer *authz.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := sweetWriteAllowed(c, authorizer, authz.ActionDelete)
		if !ok {
			return
		}
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sweet ID"})
			return
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			var sweet domain.Sweet
			if err := tx.First(&sweet, uint(id)).Error; err != nil {
				return err
			}
			var purchases int64 // Outstanding purchase history for this sweet
			if err := tx.Model(&domain.Purchase{}).Where("sweet_id = ?", sweet.ID).Count(&purchases).Error; err != nil {
				return err
			}
			if purchases > 0 {
				return errSweetHasHistory // Restrict, do not cascade
			}
			return tx.Delete(&sweet).Error
		})
		switch {
		case errors.Is(err, errSweetHasHistory):
			c.JSON(http.StatusConflict, gin.H{"error": "Sweet has purchase history and cannot be deleted"})
			return
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Sweet not found"})
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete sweet"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"admin_id": uid, // Acting admin
			"sweet_id": id,  // Deleted sweet
		}).Info("Sweet deleted")
		invalidateCatalogCache(c)
		c.JSON(http.StatusOK, gin.H{"message": "Sweet deleted"})
	}
}

// errSweetHasHistory marks a delete rejected because purchases reference the sweet
var errSweetHasHistory = errors.New("sweet has purchase history")

// RestockHandler sets a sweet's stock to a new absolute value (admin only).
// Malformed or negative quantities are rejected before any write happens.
func RestockHandler(db *gorm.DB, authorizer *authz.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := sweetWriteAllowed(c, authorizer, authz.ActionUpdate)
		if !ok {
			return
		}
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sweet ID"})
			return
		}
		var req RestockRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be a non-negative integer"})
			return
		}
		var sweet domain.Sweet
		if err := db.First(&sweet, uint(id)).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Sweet not found"})
			return
		}
		// Update refreshes updated_at as part of the same write
		if err := db.Model(&sweet).Update("quantity", *req.Quantity).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to restock sweet"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"admin_id": uid,           // Acting admin
			"sweet_id": sweet.ID,      // Restocked sweet
			"quantity": *req.Quantity, // New absolute stock level
		}).Info("Sweet restocked")
		invalidateCatalogCache(c)
		c.JSON(http.StatusOK, gin.H{"message": "Sweet restocked", "sweet": sweet})
	}
}

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID      uint               `json:"id"`      // User ID
	Email   string             `json:"email"`   // Login email
	Profile domain.Profile     `json:"profile"` // Associated profile
	Roles   []domain.RoleGrant `json:"roles"`   // Role grants
}

// ListUsersHandler returns all users with their profiles and role grants
func ListUsersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background() // Use background context for Redis
		page, pageSize := pagination(c)
		// Create a cache key based on pagination parameters
		cacheKey := "admin:users:page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		var cached struct {
			Users      []UserAdminResponse `json:"users"`       // List of users
			Page       int                 `json:"page"`        // Current page
			PageSize   int                 `json:"page_size"`   // Page size
			Total      int64               `json:"total"`       // Total number of users
			TotalPages int                 `json:"total_pages"` // Total pages
		}
		// If cached data found, return it
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"users":       cached.Users,
				"page":        cached.Page,
				"page_size":   cached.PageSize,
				"total":       cached.Total,
				"total_pages": cached.TotalPages,
				"cached":      true, // Indicate response is from cache
			})
			return
		}
		offset := (page - 1) * pageSize // Calculate offset for pagination
		var total int64                 // Total user count
		if err := db.Model(&domain.User{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
			return
		}
		var users []domain.User // Slice to hold users
		// Preload Profile and Roles relations, apply offset and limit
		if err := db.Preload("Profile").Preload("Roles").Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
			return
		}
		totalPages := (int(total) + pageSize - 1) / pageSize // Calculate total pages
		resp := make([]UserAdminResponse, len(users))
		for i, u := range users {
			resp[i] = UserAdminResponse{
				ID:      u.ID,      // User ID
				Email:   u.Email,   // Login email
				Profile: u.Profile, // Associated profile
				Roles:   u.Roles,   // Role grants
			}
		}
		respData := gin.H{
			"users":       resp,       // List of users
			"page":        page,       // Current page
			"page_size":   pageSize,   // Page size
			"total":       total,      // Total number of users
			"total_pages": totalPages, // Total pages
			"cached":      false,      // Indicate response is not from cache
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second) // Cache the response
		c.JSON(http.StatusOK, respData)
	}
}

// ListPurchasesHandler returns all purchases, with optional filtering by
// buyer, sweet, or date range. Reading all buyers' rows requires the admin
// grant, checked through the policy table.
func ListPurchasesHandler(db *gorm.DB, rdb *redis.Client, authorizer *authz.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Owner Anonymous means "rows of all users": only admins pass
		ok, err := authorizer.Can(userID.(uint), authz.ActionRead, authz.ResourcePurchase, authz.Anonymous)
		if err != nil || !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Operation not permitted"})
			return
		}
		ctx := context.Background()
		// Build cache key from all query params
		var keyParts []string
		for _, k := range []string{"user_id", "sweet_id", "from", "to", "page", "page_size"} {
			keyParts = append(keyParts, k+"="+c.DefaultQuery(k, ""))
		}
		cacheKey := "admin:purchases:" + strings.Join(keyParts, ":")
		var cached struct {
			Purchases  []domain.Purchase `json:"purchases"`   // List of purchases
			Page       int               `json:"page"`        // Current page
			PageSize   int               `json:"page_size"`   // Page size
			Total      int64             `json:"total"`       // Total number of purchases
			TotalPages int               `json:"total_pages"` // Total pages
		}
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"purchases":   cached.Purchases,
				"page":        cached.Page,
				"page_size":   cached.PageSize,
				"total":       cached.Total,
				"total_pages": cached.TotalPages,
				"cached":      true, // Indicate response is from cache
			})
			return
		}
		page, pageSize := pagination(c)
		offset := (page - 1) * pageSize       // Calculate offset for pagination
		query := db.Model(&domain.Purchase{}) // Start building the query
		if buyer := c.Query("user_id"); buyer != "" {
			query = query.Where("user_id = ?", buyer) // Filter by buyer
		}
		if sweetID := c.Query("sweet_id"); sweetID != "" {
			query = query.Where("sweet_id = ?", sweetID) // Filter by sweet
		}
		if from := c.Query("from"); from != "" {
			query = query.Where("created_at >= ?", from) // Filter by start date
		}
		if to := c.Query("to"); to != "" {
			query = query.Where("created_at <= ?", to) // Filter by end date
		}
		var total int64 // Total purchase count
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count purchases"})
			return
		}
		var purchases []domain.Purchase
		if err := query.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&purchases).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch purchases"})
			return
		}
		totalPages := (int(total) + pageSize - 1) / pageSize
		respData := gin.H{
			"purchases":   purchases,  // List of purchases
			"page":        page,       // Current page
			"page_size":   pageSize,   // Page size
			"total":       total,      // Total number of purchases
			"total_pages": totalPages, // Total pages
			"cached":      false,      // Indicate response is not from cache
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second) // Cache the response
		c.JSON(http.StatusOK, respData)
	}
}
