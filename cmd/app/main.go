package main

import (
	"flag"
	"os"

	"github.com/XW123-ART/smart-test-platform/internal/api"
	"github.com/XW123-ART/smart-test-platform/internal/config"
	"github.com/XW123-ART/smart-test-platform/internal/logging"
	"github.com/XW123-ART/smart-test-platform/internal/service"
	"github.com/XW123-ART/smart-test-platform/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Init(logging.ParseLevel("info"), "text")
		logging.New("main").Error("load config", "error", err)
		os.Exit(1)
	}

	logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)
	log := logging.New("main")

	// 1. Storage layer
	db, err := storage.Open(cfg.Database)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	repo := storage.NewRepository(db)

	// 2. Service layer
	manager := service.NewManager(repo)

	// 3. HTTP layer
	handler := api.NewHandler(manager, cfg.AI)
	router := api.SetupRouter(handler, cfg.Server.SessionSecret)

	log.Info("starting server", "port", cfg.Server.Port, "driver", cfg.Database.Driver)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
