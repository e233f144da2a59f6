package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/user/nudge/backend/internal/config"
	"github.com/user/nudge/backend/internal/database"
)

// index is created after the schema exists. Failures are reported but do
// not abort the run, since a missing index only costs query speed.
type index struct {
	name string
	sql  string
}

var indexes = []index{
	{
		name: "pending reminders",
		sql:  "CREATE INDEX IF NOT EXISTS idx_reminders_pending ON reminders(user_id, trigger_type) WHERE notified = false AND deleted_at IS NULL",
	},
	{
		name: "reminder owners",
		sql:  "CREATE INDEX IF NOT EXISTS idx_reminders_live_user ON reminders(user_id) WHERE deleted_at IS NULL",
	},
	{
		name: "due schedules",
		sql:  "CREATE INDEX IF NOT EXISTS idx_scheduled_notifications_due ON scheduled_notifications(fire_at, reminder_id)",
	},
	{
		name: "device identity",
		sql:  "CREATE UNIQUE INDEX IF NOT EXISTS idx_devices_user_identifier ON devices(user_id, device_identifier) WHERE deleted_at IS NULL",
	},
	{
		name: "device positions",
		sql:  "CREATE INDEX IF NOT EXISTS idx_devices_user_location ON devices(user_id, location_at) WHERE latitude IS NOT NULL AND deleted_at IS NULL",
	},
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	log.Println("Migrating tables...")
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("  ✓ users, devices, reminders, scheduled_notifications")

	log.Println("Creating indexes...")
	failed := 0
	for _, idx := range indexes {
		if err := db.Exec(idx.sql).Error; err != nil {
			log.Printf("  Warning: Could not create %s index: %v", idx.name, err)
			failed++
			continue
		}
		log.Printf("  ✓ %s index", idx.name)
	}

	if failed > 0 {
		log.Printf("Migrations completed with %d index warnings", failed)
		return
	}
	log.Println("Migrations completed successfully!")
}
