package main

import (
	"flag"
	"log"

	"github.com/rulehub/rulehub-backend/internal/config"
	"github.com/rulehub/rulehub-backend/internal/database"
	"github.com/rulehub/rulehub-backend/internal/migration"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "config file path (default configs/config.<APP_ENV>.yaml)")
	reset := flag.Bool("reset", false, "drop catalog tables before migrating (refused in production)")
	verify := flag.Bool("verify", false, "verify catalog data integrity and exit")
	verbose := flag.Bool("verbose", false, "verbose SQL logging")
	flag.Parse()

	files := config.LoadDotEnv()
	log.Printf("Loaded env files: %v", files)

	path := *configPath
	if path == "" {
		path = config.Path(config.Env())
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Open(cfg.Database, *verbose)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get underlying DB: %v", err)
	}
	defer sqlDB.Close()

	if *verify {
		stats, err := migration.Verify(db)
		log.Printf("rules=%d published=%d categories=%d links=%d",
			stats.Rules, stats.PublishedRules, stats.Categories, stats.Links)
		if err != nil {
			log.Fatalf("Verification failed: %v", err)
		}
		log.Println("Verification passed")
		return
	}

	if *reset {
		if cfg.App.Env == "production" {
			log.Fatal("Refusing to reset a production database")
		}
		if err := migration.Reset(db); err != nil {
			log.Fatalf("Reset failed: %v", err)
		}
		log.Println("Dropped catalog tables")
	}

	if err := migration.Run(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration completed")
}
