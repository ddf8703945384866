package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"

	"github.com/ManuelReschke/ImmoFox/app/controllers"
	"github.com/ManuelReschke/ImmoFox/app/models"
	"github.com/ManuelReschke/ImmoFox/app/repository"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/cache"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/database"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/env"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/photos"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/realtime"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	// Live updates for listing events, backed by Redis pub/sub
	realtime.SetupHub()

	// Batch pending view counters into the properties table
	counter.StartFlusher(context.Background(), 5*time.Minute)

	setupPhotoPipeline()

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/immofox to project root
		"../../../", // Fallback
	}

	// Find the correct base path
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "views"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	if basePath == "" {
		panic("Could not find project root directory")
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		Views:     html.New(basePath+"views", ".html"),
		BodyLimit: 104857600, // 100 MiB
	})

	// ignore and cache favicon
	app.Use(favicon.New(favicon.Config{
		File:         basePath + "public/assets/icons/favicon.ico",
		URL:          "/favicon.ico",
		CacheControl: "public, max-age=604800",
	}))

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			"admin": env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// static files
	app.Static("/", basePath+"public/assets", fiber.Static{
		CacheDuration: 15 * time.Second,
		Compress:      true,
	})

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app)

	return app
}

// setupPhotoPipeline starts the background photo workers when S3 storage
// is configured. Without credentials photo uploads answer 503 and the rest
// of the app keeps working.
func setupPhotoPipeline() {
	cfg, err := photos.LoadConfig()
	if err != nil {
		log.Printf("[Photos] Speicher nicht konfiguriert: %v", err)
		return
	}

	client, err := photos.NewClient(cfg)
	if err != nil {
		log.Printf("[Photos] S3-Client konnte nicht erstellt werden: %v", err)
		return
	}

	processor := photos.GetProcessor(client)
	processor.SetCompletionHook(func(img *models.PropertyImage, procErr error) {
		if procErr != nil {
			log.Printf("[Photos] Verarbeitung von %s fehlgeschlagen: %v", img.UUID, procErr)
			return
		}
		repo := repository.GetGlobalFactory().GetPropertyRepository()
		if err := repo.UpdateImage(img); err != nil {
			log.Printf("[Photos] Bild %s konnte nicht gespeichert werden: %v", img.UUID, err)
		}
	})
	processor.Start()
	controllers.SetPhotoProcessor(processor)
}
