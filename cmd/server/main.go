// Package main is the entry point for the StyleLights server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/stylelights/stylelights-go/internal/api"
	"github.com/stylelights/stylelights-go/internal/config"
	"github.com/stylelights/stylelights-go/internal/database"
	"github.com/stylelights/stylelights-go/internal/database/models"
	"github.com/stylelights/stylelights-go/internal/database/repositories"
	"github.com/stylelights/stylelights-go/internal/fixture"
	"github.com/stylelights/stylelights-go/internal/services/animation"
	"github.com/stylelights/stylelights-go/internal/services/dmx"
	"github.com/stylelights/stylelights-go/internal/services/mapping"
	"github.com/stylelights/stylelights-go/internal/services/player"
	"github.com/stylelights/stylelights-go/internal/services/pubsub"
	"github.com/stylelights/stylelights-go/internal/services/render"
	"github.com/stylelights/stylelights-go/internal/services/stylesheet"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	printBanner(cfg)

	db, err := database.Connect(database.Config{
		URL:         cfg.DatabaseURL,
		MaxIdleConn: 5,
		MaxOpenConn: 10,
		Debug:       cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close() }()

	log.Println("Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migrations complete")

	ps := pubsub.New()
	sheet := stylesheet.NewStore(ps)
	registry := fixture.DefaultRegistry()

	// A saved broadcast address overrides the environment.
	settingRepo := repositories.NewSettingRepository(db)
	broadcastAddr, err := settingRepo.Get(context.Background(), "artnet_broadcast", cfg.ArtNetBroadcast)
	if err != nil {
		log.Printf("Warning: reading artnet_broadcast setting: %v", err)
	}

	dmxService := dmx.NewService(dmx.Config{
		Enabled:          cfg.ArtNetEnabled,
		BroadcastAddr:    broadcastAddr,
		Port:             cfg.ArtNetPort,
		UniverseCount:    cfg.DMXUniverseCount,
		RefreshRateHz:    cfg.DMXRefreshRate,
		IdleRateHz:       cfg.DMXIdleRate,
		HighRateDuration: cfg.DMXHighRateDuration,
	}, ps)
	if err := dmxService.Initialize(); err != nil {
		log.Printf("Warning: DMX service initialization failed: %v", err)
		// Continue anyway; DMX may be disabled or the broadcast address unavailable
	}

	renderer := render.NewRenderer(registry, sheet, dmxService)
	animations := animation.NewStore()

	if err := loadState(db, renderer, animations); err != nil {
		log.Fatalf("Failed to load persisted state: %v", err)
	}

	dispatcher := mapping.NewDispatcher(sheet, func(deviceID string, values map[string]fixture.Value) {
		// Mapping targets name devices by CSS id; fall back to the raw id.
		if d, ok := renderer.DeviceByCSSID(deviceID); ok {
			renderer.ApplyValues(d.ID, values)
			return
		}
		renderer.ApplyValues(deviceID, values)
	})

	mappingRepo := repositories.NewMappingRepository(db)
	mappings, err := mappingRepo.FindAll(context.Background())
	if err != nil {
		log.Fatalf("Failed to load mappings: %v", err)
	}
	dispatcher.SetMappings(mappings)
	log.Printf("Loaded %d device(s), %d animation(s), %d mapping(s)",
		len(renderer.Devices()), len(animations.All()), len(mappings))

	animationPlayer := player.NewPlayer(renderer)
	animationPlayer.Start()

	server := api.NewServer(api.Options{
		Registry:   registry,
		Renderer:   renderer,
		Sheet:      sheet,
		DMX:        dmxService,
		Animations: animations,
		Dispatcher: dispatcher,
		PubSub:     ps,
		Player:     animationPlayer,
		DB:         db,
	})
	api.Version = Version

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Router(cfg.CORSOrigin, cfg.IsDevelopment()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on http://localhost:%s\n", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cleanup services in reverse order
	animationPlayer.Stop()
	dispatcher.Stop()
	dmxService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// loadState hydrates the renderer and animation store from the database.
// Devices are registered first, then linked, so link targets always exist.
func loadState(db *gorm.DB, renderer *render.Renderer, animations *animation.Store) error {
	ctx := context.Background()

	deviceRepo := repositories.NewDeviceRepository(db)
	records, err := deviceRepo.FindAll(ctx)
	if err != nil {
		return err
	}
	for i := range records {
		if err := registerDevice(renderer, &records[i]); err != nil {
			log.Printf("Warning: skipping device %q: %v", records[i].Name, err)
		}
	}
	for i := range records {
		record := &records[i]
		if record.LinkedTo == nil {
			continue
		}
		controls, err := repositories.SyncedControls(record)
		if err != nil {
			log.Printf("Warning: bad synced controls for %q: %v", record.Name, err)
			continue
		}
		if err := renderer.Link(record.ID, *record.LinkedTo, controls); err != nil {
			log.Printf("Warning: cannot link %q: %v", record.Name, err)
		}
	}

	animationRepo := repositories.NewAnimationRepository(db)
	stored, err := animationRepo.FindAll(ctx)
	if err != nil {
		return err
	}
	for _, anim := range stored {
		animations.Put(anim)
	}
	return nil
}

func registerDevice(renderer *render.Renderer, record *models.Device) error {
	device, err := renderer.NewDevice(record.ID, record.Name, record.TypeID, record.Universe, record.StartChannel)
	if err != nil {
		return err
	}
	defaults, err := repositories.DefaultValues(record)
	if err != nil {
		return err
	}
	return renderer.AddDevice(device, defaults)
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println("============================================")
	fmt.Println("  StyleLights Server")
	fmt.Printf("  Version: %s\n", Version)
	fmt.Printf("  Build:   %s\n", BuildTime)
	fmt.Printf("  Commit:  %s\n", GitCommit)
	fmt.Println("============================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  Port:        %s\n", cfg.Port)
	fmt.Printf("  Database:    %s\n", cfg.DatabaseURL)
	fmt.Printf("  Art-Net:     %v\n", cfg.ArtNetEnabled)
	fmt.Println("============================================")
}
