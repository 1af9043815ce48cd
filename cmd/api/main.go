package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropfour/server/internal/cache"
	"github.com/dropfour/server/internal/config"
	"github.com/dropfour/server/internal/monitor"
	"github.com/dropfour/server/internal/repository"
	memorystore "github.com/dropfour/server/internal/repository/memory"
	"github.com/dropfour/server/internal/repository/postgres"
	redisstore "github.com/dropfour/server/internal/repository/redis"
	"github.com/dropfour/server/internal/service/cleanup"
	roomservice "github.com/dropfour/server/internal/service/room"
	transportHttp "github.com/dropfour/server/internal/transport/http"
	"github.com/dropfour/server/internal/transport/http/middleware"
	"github.com/dropfour/server/internal/transport/websocket"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.LoadConfig()

	// Durable room store, selected by explicit configuration.
	var store repository.RoomStore
	switch cfg.StoreBackend {
	case config.StoreRedis:
		client, err := redisstore.Connect(cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer client.Close()
		store = redisstore.NewStore(client, cfg.RoomTTL)
	default:
		log.Println("[STORE] Using in-memory room store")
		store = memorystore.NewStore(cfg.RoomTTL)
	}

	// Optional archive sink for finished games.
	var archiver roomservice.Archiver
	var historyHandler *transportHttp.HistoryHandler
	if cfg.DatabaseURL != "" {
		db, err := postgres.Connect(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetimeMin)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := postgres.RunMigrations(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}

		archiveRepo := postgres.NewArchiveRepo(db)
		archiver = archiveRepo
		historyHandler = transportHttp.NewHistoryHandler(archiveRepo)
	}

	metrics := monitor.NewMetrics("dropfour")
	hub := websocket.NewHub()

	rooms := roomservice.NewService(store, cache.NewRoomCache(), hub, archiver, metrics, roomservice.Options{
		Rows:              cfg.BoardRows,
		Cols:              cfg.BoardCols,
		MaxPlayers:        cfg.MaxPlayers,
		WinningLength:     cfg.WinningLength,
		InactivityTimeout: cfg.InactivityTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go cleanup.NewWorker(rooms, cfg.CleanupInterval).Start(ctx)

	roomHandler := transportHttp.NewRoomHandler(rooms)
	wsHandler := websocket.NewHandler(hub, rooms, cfg.AllowedOrigins)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	router.Use(middleware.RateLimitMiddleware(rateLimiter))

	router.POST("/api/rooms/create", roomHandler.CreateRoom)
	router.POST("/api/rooms/join", roomHandler.JoinRoom)
	router.POST("/api/rooms/leave", roomHandler.LeaveRoom)
	router.GET("/api/rooms", roomHandler.ListRooms)
	router.GET("/api/rooms/:id", roomHandler.GetRoom)
	router.GET("/api/rooms/key/:key", roomHandler.GetRoomByKey)
	router.DELETE("/api/rooms/:id", roomHandler.DeleteRoom)
	router.POST("/api/games/move", roomHandler.MakeMove)
	router.POST("/api/games/reset", roomHandler.ResetGame)

	if historyHandler != nil {
		router.GET("/api/history", historyHandler.RecentGames)
	}

	router.GET("/ws", wsHandler.Watch)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}
