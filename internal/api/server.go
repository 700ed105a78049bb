// Package api exposes the REST and websocket surface of the server.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"gorm.io/gorm"

	"github.com/stylelights/stylelights-go/internal/database/repositories"
	"github.com/stylelights/stylelights-go/internal/fixture"
	"github.com/stylelights/stylelights-go/internal/services/animation"
	"github.com/stylelights/stylelights-go/internal/services/dmx"
	"github.com/stylelights/stylelights-go/internal/services/mapping"
	"github.com/stylelights/stylelights-go/internal/services/player"
	"github.com/stylelights/stylelights-go/internal/services/pubsub"
	"github.com/stylelights/stylelights-go/internal/services/render"
	"github.com/stylelights/stylelights-go/internal/services/showfile"
	"github.com/stylelights/stylelights-go/internal/services/stylesheet"
)

// Version is set at build time.
var Version = "0.1.0"

// Server holds the service dependencies behind the HTTP handlers.
type Server struct {
	registry   *fixture.Registry
	renderer   *render.Renderer
	sheet      *stylesheet.Store
	dmx        *dmx.Service
	animations *animation.Store
	dispatcher *mapping.Dispatcher
	pubsub     *pubsub.PubSub
	player     *player.Player
	showfile   *showfile.Service

	deviceRepo    *repositories.DeviceRepository
	animationRepo *repositories.AnimationRepository
	mappingRepo   *repositories.MappingRepository
	settingRepo   *repositories.SettingRepository

	upgrader websocket.Upgrader
}

// Options bundles the dependencies for NewServer.
type Options struct {
	Registry   *fixture.Registry
	Renderer   *render.Renderer
	Sheet      *stylesheet.Store
	DMX        *dmx.Service
	Animations *animation.Store
	Dispatcher *mapping.Dispatcher
	PubSub     *pubsub.PubSub
	Player     *player.Player
	DB         *gorm.DB
}

// NewServer creates the API server.
func NewServer(opts Options) *Server {
	deviceRepo := repositories.NewDeviceRepository(opts.DB)
	animationRepo := repositories.NewAnimationRepository(opts.DB)
	mappingRepo := repositories.NewMappingRepository(opts.DB)

	return &Server{
		registry:      opts.Registry,
		renderer:      opts.Renderer,
		sheet:         opts.Sheet,
		dmx:           opts.DMX,
		animations:    opts.Animations,
		dispatcher:    opts.Dispatcher,
		pubsub:        opts.PubSub,
		player:        opts.Player,
		showfile:      showfile.NewService(opts.Registry, deviceRepo, animationRepo, mappingRepo, Version),
		deviceRepo:    deviceRepo,
		animationRepo: animationRepo,
		mappingRepo:   mappingRepo,
		settingRepo:   repositories.NewSettingRepository(opts.DB),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Router builds the chi router with the full route set.
func (s *Server) Router(corsOrigin string, debug bool) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{corsOrigin, "http://localhost:3000", "http://localhost:4000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		Debug:            debug,
	})
	router.Use(corsMiddleware.Handler)

	router.Get("/health", s.handleHealth)

	router.Route("/api", func(r chi.Router) {
		r.Get("/device-types", s.handleListDeviceTypes)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)
			r.Get("/{id}", s.handleGetDevice)
			r.Delete("/{id}", s.handleDeleteDevice)
			r.Post("/{id}/values", s.handleSetDeviceValues)
			r.Post("/{id}/sync", s.handleSyncDevice)
			r.Post("/{id}/link", s.handleLinkDevice)
			r.Delete("/{id}/link", s.handleUnlinkDevice)
		})

		r.Route("/animations", func(r chi.Router) {
			r.Get("/", s.handleListAnimations)
			r.Post("/", s.handleSaveAnimation)
			r.Get("/{name}", s.handleGetAnimation)
			r.Delete("/{name}", s.handleDeleteAnimation)
			r.Post("/{name}/play", s.handlePlayAnimation)
		})

		r.Route("/playbacks", func(r chi.Router) {
			r.Get("/", s.handleListPlaybacks)
			r.Delete("/", s.handleCancelAllPlaybacks)
			r.Delete("/{id}", s.handleCancelPlayback)
		})

		r.Route("/mappings", func(r chi.Router) {
			r.Get("/", s.handleListMappings)
			r.Post("/", s.handleSaveMapping)
			r.Get("/{id}", s.handleGetMapping)
			r.Delete("/{id}", s.handleDeleteMapping)
		})

		r.Get("/universes", s.handleListUniverses)
		r.Get("/universes/{n}", s.handleGetUniverse)

		r.Get("/stylesheet", s.handleStylesheet)

		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)

		r.Get("/network/interfaces", s.handleNetworkInterfaces)

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleListSettings)
			r.Get("/{key}", s.handleGetSetting)
			r.Put("/{key}", s.handlePutSetting)
			r.Delete("/{key}", s.handleDeleteSetting)
		})

		r.Post("/input/trigger", s.handleInputTrigger)
		r.Post("/input/release", s.handleInputRelease)
		r.Post("/input/change", s.handleInputChange)
	})

	router.Get("/ws", s.handleWebsocket)

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
