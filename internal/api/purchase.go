package api

import (
	"context"  // Context for Redis operations
	"errors"   // Sentinel errors
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"sweetshop/internal/authz"  // Authorization layer
	"sweetshop/internal/domain" // Importing domain models
	"sweetshop/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// ErrSweetUnavailable covers both "no such sweet" and "zero stock": either
// way the purchase short-circuits with no row written.
var ErrSweetUnavailable = errors.New("sweet unavailable")

// PurchaseHandler buys one unit of a sweet for the authenticated caller.
// The whole flow is one transaction: the stock decrement is conditional
// ("quantity - 1 where quantity > 0") and the purchase row is inserted only
// when exactly one row matched, so concurrent buyers of the last unit get
// one success and the rest "unavailable", and stock can never go negative.
// A failed insert rolls the decrement back; partial application cannot occur.
func PurchaseHandler(db *gorm.DB, authorizer *authz.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		buyerID := userID.(uint)
		sweetID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sweet ID"})
			return
		}
		// A purchase may only be inserted with the caller as its buyer
		ok, err := authorizer.Can(buyerID, authz.ActionCreate, authz.ResourcePurchase, buyerID)
		if err != nil || !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Operation not permitted"})
			return
		}
		var purchase domain.Purchase
		err = db.Transaction(func(tx *gorm.DB) error {
			var sweet domain.Sweet // Price snapshot for the purchase total
			if err := tx.First(&sweet, uint(sweetID)).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrSweetUnavailable
				}
				return err
			}
			// Conditional decrement, succeeds only while stock remains.
			// Update (not UpdateColumn) so updated_at is refreshed too.
			res := tx.Model(&domain.Sweet{}).
				Where("id = ? AND quantity > 0", sweet.ID).
				Update("quantity", gorm.Expr("quantity - 1"))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrSweetUnavailable // Sold out, nothing written
			}
			purchase = domain.Purchase{
				UserID:     buyerID,          // Buyer is always the caller
				SweetID:    sweet.ID,         // Purchased sweet
				Quantity:   1,                // Single-unit purchase
				TotalCents: sweet.PriceCents, // Price at time of purchase
			}
			return tx.Create(&purchase).Error // Rolls back the decrement on failure
		})
		if errors.Is(err, ErrSweetUnavailable) {
			c.JSON(http.StatusConflict, gin.H{"error": "Sweet unavailable"})
			return
		}
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"user_id":  buyerID,     // Buyer user ID
				"sweet_id": sweetID,     // Sweet ID
				"error":    err.Error(), // Error message
			}).Error("Purchase failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Purchase failed"})
			return
		}
		// Log successful purchase
		logrus.WithFields(logrus.Fields{
			"user_id":     buyerID,                         // Buyer user ID
			"sweet_id":    sweetID,                         // Sweet ID
			"total_cents": purchase.TotalCents,             // Price charged
			"timestamp":   time.Now().Format(time.RFC3339), // Current timestamp
		}).Info("Purchase completed")
		// Invalidate catalog and purchase history caches
		if rdb, ok := c.MustGet("redisClient").(*redis.Client); ok {
			ctx := context.Background()
			utils.DeleteCachePages(ctx, rdb, sweetsCachePrefix)
			utils.DeleteCachePages(ctx, rdb, "purchases:user:"+strconv.Itoa(int(buyerID)))
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Purchase successful", "purchase": purchase})
	}
}

// GetPurchaseHistoryHandler returns the authenticated caller's own
// purchases, newest first, paginated and cached.
func GetPurchaseHistoryHandler(db *gorm.DB, rdb *redis.Client, authorizer *authz.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		buyerID := userID.(uint)
		// Callers may read their own purchase rows
		ok, err := authorizer.Can(buyerID, authz.ActionRead, authz.ResourcePurchase, buyerID)
		if err != nil || !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Operation not permitted"})
			return
		}
		page, pageSize := pagination(c)
		offset := (page - 1) * pageSize
		ctx := context.Background()
		cacheKey := "purchases:user:" + strconv.Itoa(int(buyerID)) + ":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
		var cached struct {
			Purchases  []domain.Purchase `json:"purchases"`   // Page of purchases
			Page       int               `json:"page"`        // Current page
			PageSize   int               `json:"page_size"`   // Page size
			Total      int64             `json:"total"`       // Total purchases
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
		var total int64 // Total purchases for this buyer
		if err := db.Model(&domain.Purchase{}).Where("user_id = ?", buyerID).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count purchases"})
			return
		}
		var purchases []domain.Purchase
		if err := db.Where("user_id = ?", buyerID).
			Order("created_at desc").
			Offset(offset).
			Limit(pageSize).
			Find(&purchases).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch purchases"})
			return
		}
		totalPages := (int(total) + pageSize - 1) / pageSize
		resp := gin.H{
			"purchases":   purchases,  // Page of purchases
			"page":        page,       // Current page
			"page_size":   pageSize,   // Page size
			"total":       total,      // Total purchases
			"total_pages": totalPages, // Total pages
			"cached":      false,      // Not from cache
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second) // Cache for 60 seconds
		c.JSON(http.StatusOK, resp)
	}
}
