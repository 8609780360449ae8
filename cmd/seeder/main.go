// cmd/seeder/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/unclebandit/pushleopard-backend/internal/config"
	"github.com/unclebandit/pushleopard-backend/internal/db"
)

var seedFiles = []string{
	"seed/domains.sql",
	"seed/subscribers.sql",
	"seed/campaigns.sql",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	applied, err := db.RunMigrations(ctx, conn, cfg.MigrationsDir)
	if err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}
	for _, v := range applied {
		fmt.Printf("Migrated: %s\n", v)
	}

	for _, file := range seedFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("failed to read %s: %v", file, err)
		}

		if _, err := conn.ExecContext(ctx, string(content)); err != nil {
			log.Fatalf("failed to execute %s: %v", file, err)
		}
		fmt.Printf("Seeded: %s\n", file)
	}

	fmt.Println("Database seeding completed successfully!")
}
