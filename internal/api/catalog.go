package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"sweetshop/internal/domain" // Importing domain models
	"sweetshop/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// sweetsCachePrefix keys the cached unfiltered catalog pages. Filtered
// queries bypass the cache and hit the database directly.
const sweetsCachePrefix = "sweets"

// pagination reads page/page_size query params with the usual bounds
func pagination(c *gin.Context) (page, pageSize int) {
	page = 1      // Default page number
	pageSize = 20 // Default page size
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size if valid
		}
	}
	return page, pageSize
}

// sweetListResponse is the paginated catalog payload, also the cache shape
type sweetListResponse struct {
	Sweets     []domain.Sweet `json:"sweets"`      // Page of sweets
	Page       int            `json:"page"`        // Current page
	PageSize   int            `json:"page_size"`   // Page size
	Total      int64          `json:"total"`       // Total matching sweets
	TotalPages int            `json:"total_pages"` // Total pages
}

// ListSweetsHandler returns the catalog. Public: no token required, the
// policy for reading sweets is unconditional. Supports name/category
// substring and price range filters plus pagination.
func ListSweetsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pagination(c)
		name := c.Query("name")          // Optional name substring filter
		category := c.Query("category")  // Optional exact category filter
		minPrice := c.Query("min_price") // Optional lower price bound, cents
		maxPrice := c.Query("max_price") // Optional upper price bound, cents
		filtered := name != "" || category != "" || minPrice != "" || maxPrice != ""

		ctx := context.Background() // Context for Redis operations
		cacheKey := sweetsCachePrefix + ":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
		// Unfiltered pages are served from cache when possible
		if !filtered {
			var cached sweetListResponse
			found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
			if err == nil && found {
				c.JSON(http.StatusOK, gin.H{
					"sweets":      cached.Sweets,     // Page of sweets
					"page":        cached.Page,       // Current page
					"page_size":   cached.PageSize,   // Page size
					"total":       cached.Total,      // Total sweets
					"total_pages": cached.TotalPages, // Total pages
					"cached":      true,              // Indicate response is from cache
				})
				return
			}
		}

		query := db.Model(&domain.Sweet{}) // Start building the query
		if name != "" {
			query = query.Where("name LIKE ?", "%"+name+"%") // Filter by name substring
		}
		if category != "" {
			query = query.Where("category = ?", category) // Filter by category
		}
		if minPrice != "" {
			if v, err := strconv.ParseInt(minPrice, 10, 64); err == nil {
				query = query.Where("price_cents >= ?", v) // Lower price bound
			}
		}
		if maxPrice != "" {
			if v, err := strconv.ParseInt(maxPrice, 10, 64); err == nil {
				query = query.Where("price_cents <= ?", v) // Upper price bound
			}
		}
		var total int64 // Total matching count
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count sweets"})
			return
		}
		var sweets []domain.Sweet // Page of sweets
		offset := (page - 1) * pageSize
		if err := query.Order("name asc").Offset(offset).Limit(pageSize).Find(&sweets).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sweets"})
			return
		}
		totalPages := (int(total) + pageSize - 1) / pageSize
		resp := sweetListResponse{
			Sweets:     sweets,
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		}
		if !filtered {
			_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second) // Cache for 60 seconds
		}
		c.JSON(http.StatusOK, gin.H{
			"sweets":      resp.Sweets,
			"page":        resp.Page,
			"page_size":   resp.PageSize,
			"total":       resp.Total,
			"total_pages": resp.TotalPages,
			"cached":      false, // Indicate response is not from cache
		})
	}
}

// GetSweetHandler returns a single sweet by ID. Public read.
func GetSweetHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sweet ID"})
			return
		}
		var sweet domain.Sweet
		if err := db.First(&sweet, uint(id)).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Sweet not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sweet": sweet})
	}
}
