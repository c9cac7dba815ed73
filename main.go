package main

import (
	"flag"
	"log"

	"github.com/yinkev/Americano-sub009/internal/app"
	"github.com/yinkev/Americano-sub009/internal/config"
	"github.com/yinkev/Americano-sub009/pkg/configwatcher"
	"github.com/yinkev/Americano-sub009/pkg/logger"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "run database migrations and exit")
	migrate := flag.Bool("migrate", false, "force database migrations on startup")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if *migrateOnly {
		log.Println("Database migration complete, exiting")
		return
	}

	// Mission tuning is hot-reloadable so the time bands can be adjusted
	// without restarting the API.
	go configwatcher.WatchConfig("configs/config.yaml", func(newCfg *config.Config) {
		application.ApplyConfig(newCfg)
	})

	application.Run()
}
