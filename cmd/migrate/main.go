package main

import (
	"sweetshop/internal/config" // Custom import path (Config)
	"sweetshop/internal/db"     // Custom import path (Database)
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	db.Migrate(cfg.DSN())      // Apply schema migrations
}
