package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/config"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/database"
)

func main() {
	configPath := flag.String("config", "", "path to the config file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-config path] <up|down|version>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	command := flag.Arg(0)

	log := logrus.New()

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	path := cfg.Database.MigrationsPath
	switch command {
	case "up":
		if err := database.Migrate(db.DB, path); err != nil {
			log.Fatalf("An error occurred while migrating up: %v", err)
		}
		log.Info("Migrations applied successfully.")
	case "down":
		if err := database.MigrateDown(db.DB, path); err != nil {
			log.Fatalf("An error occurred while migrating down: %v", err)
		}
		log.Info("Migrations rolled back successfully.")
	case "version":
		version, dirty, ok, err := database.MigrationVersion(db.DB, path)
		if err != nil {
			log.Fatalf("Failed to read schema version: %v", err)
		}
		if !ok {
			log.Info("No migrations applied.")
			return
		}
		log.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("Current schema version")
	default:
		log.Fatalf("Unknown command: %s. Use `up`, `down` or `version`.", command)
	}
}
