package api

import (
	"sweetshop/internal/authz"      // Authorization layer
	"sweetshop/internal/config"     // Application configuration
	"sweetshop/internal/middleware" // JWT and admin middleware

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// NewRouter builds the full route tree with middleware wired in. The server
// entry point and the handler tests share this construction.
func NewRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	r := gin.Default()                    // Gin router instance
	authorizer := authz.New(db)           // Single policy enforcement point
	injectRedis := func(c *gin.Context) { // Inject Redis client into context
		c.Set("redisClient", rdb)
		c.Next()
	}

	// Auth routes
	r.POST("/auth/register", RegisterHandler(db))          // Registration endpoint
	r.POST("/auth/login", LoginHandler(db, cfg.JWTSecret)) // Login endpoint

	// Public catalog routes: reading sweets requires no identity
	r.GET("/sweets", ListSweetsHandler(db, rdb)) // List/search endpoint
	r.GET("/sweets/:id", GetSweetHandler(db))    // Single sweet endpoint

	// Authenticated routes (protected by JWT)
	authed := r.Group("")
	authed.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), injectRedis)
	authed.POST("/sweets/:id/purchase", PurchaseHandler(db, authorizer))     // Purchase endpoint
	authed.GET("/purchases", GetPurchaseHistoryHandler(db, rdb, authorizer)) // Own purchase history
	authed.GET("/profile", GetProfileHandler(db, authorizer))                // Own profile and roles
	authed.PUT("/profile", UpdateProfileHandler(db, authorizer))             // Own profile update

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), injectRedis, middleware.AdminOnlyMiddleware(authorizer))
	adminGroup.POST("/sweets", CreateSweetHandler(db, authorizer))          // Create sweet endpoint
	adminGroup.PUT("/sweets/:id", UpdateSweetHandler(db, authorizer))       // Update sweet endpoint
	adminGroup.DELETE("/sweets/:id", DeleteSweetHandler(db, authorizer))    // Delete sweet endpoint
	adminGroup.POST("/sweets/:id/restock", RestockHandler(db, authorizer))  // Restock endpoint
	adminGroup.GET("/purchases", ListPurchasesHandler(db, rdb, authorizer)) // List all purchases endpoint
	adminGroup.GET("/users", ListUsersHandler(db, rdb))                     // List users endpoint

	return r
}
