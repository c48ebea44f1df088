package main

import (
	"context"
	"log"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"

	"taxnexy/config"
	"taxnexy/drip"
	"taxnexy/middleware"
	"taxnexy/routes"
	"taxnexy/utils"
	"taxnexy/worker"
)

func main() {
	logger := log.New(os.Stdout, "TAXNEXY: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry init failed: %v", err)
		}
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage, err := utils.NewS3Store(ctx)
	if err != nil {
		logger.Fatalf("Failed to initialize object storage: %v", err)
	}

	// Create Fiber app. Body limit sits just above the largest upload
	// policy so policy checks, not the transport, reject oversize files.
	app := fiber.New(fiber.Config{
		BodyLimit: 26 << 20,
	})

	app.Use(middleware.CORS())

	mail := utils.NewMailService(log.New(os.Stdout, "MAIL: ", log.LstdFlags))
	seq := drip.NewSequencer(drip.NewGormStore(config.DB), mail, log.New(os.Stdout, "DRIP: ", log.LstdFlags))

	// Background sequencer ticks share the run lock with the HTTP trigger
	dripWorker := worker.NewDripWorker(seq, log.New(os.Stdout, "DRIP-WORKER: ", log.LstdFlags))
	go dripWorker.Start(ctx)

	routes.SetupRoutes(app, config.DB, storage, mail, seq)

	logger.Printf("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
