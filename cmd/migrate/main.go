package main

import (
	"log"

	"mnp-assistant-be/internal/config"
	"mnp-assistant-be/internal/model"
	"mnp-assistant-be/pkg/database"
)

func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	poolCfg := database.DefaultPoolConfig()
	poolCfg.Verbose = cfg.Database.Verbose
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, poolCfg)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting migration...")
	if err := model.Migrate(db); err != nil {
		log.Fatalf("Error: migration failed: %v", err)
	}
	log.Println("Migration completed")
}
