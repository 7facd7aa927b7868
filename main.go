package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"byteGiftAPI/handlers"
	"byteGiftAPI/internal/assets"
	"byteGiftAPI/internal/config"
	"byteGiftAPI/internal/embed"
	"byteGiftAPI/internal/metrics"
	"byteGiftAPI/internal/share"
	"byteGiftAPI/internal/storage"
	"byteGiftAPI/internal/workers"
	"byteGiftAPI/middleware"
	"byteGiftAPI/services"

	_ "net/http/pprof"
)

var (
	cfg           config.Config
	dbPool        *pgxpool.Pool
	sqliteStore   *storage.SQLiteStore
	shareStore    share.Store
	uploadService *services.UploadService
	shareService  *services.ShareService
	boardManager  *services.BoardManager
	embedResolver *embed.Resolver
)

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case config.StorePostgres:
		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to parse database URL:", err)
		}

		poolConfig.MaxConns = 25
		poolConfig.MinConns = 5
		poolConfig.MaxConnLifetime = time.Hour
		poolConfig.MaxConnIdleTime = 30 * time.Minute
		poolConfig.HealthCheckPeriod = time.Minute

		dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			log.Fatal("Failed to create connection pool:", err)
		}
		if err := dbPool.Ping(ctx); err != nil {
			log.Fatal("Failed to ping database:", err)
		}

		pg := storage.NewPostgresStore(dbPool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatal("Failed to prepare database schema:", err)
		}
		shareStore = pg
		log.Println("Successfully connected to Postgres")

	case config.StoreSQLite:
		sqliteStore, err = storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			log.Fatal("Failed to open SQLite store:", err)
		}
		shareStore = sqliteStore
		log.Printf("Using SQLite store at %s", cfg.SQLitePath)

	case config.StoreMemory:
		shareStore = share.NewMemoryStore()
		log.Println("Using in-memory store; shares are lost on restart")
	}

	if cfg.UseFirebase() {
		fb, err := assets.NewFirebaseUploader(ctx, cfg.FirebaseBucket, cfg.FirebaseCredentialsJSON, cfg.FirebaseCredentialsFile)
		if err != nil {
			log.Fatal("Failed to initialize Firebase Storage:", err)
		}
		uploadService = services.NewUploadService(fb, cfg.MaxUploadBytes)
		log.Printf("Uploads go to Firebase bucket %s", cfg.FirebaseBucket)
	} else {
		disk, err := assets.NewDiskUploader(cfg.UploadDir, "/uploads")
		if err != nil {
			log.Fatal("Failed to prepare upload dir:", err)
		}
		uploadService = services.NewUploadService(disk, cfg.MaxUploadBytes).
			WithLocalFiles(disk.Dir(), "/uploads", cfg.AssetBaseURL)
		log.Printf("Uploads are stored in %s", disk.Dir())
	}

	codec := share.NewCodec(shareStore, cfg.AssetBaseURL)
	shareService = services.NewShareService(shareStore, codec, cfg.PublicOrigin, uploadService)
	boardManager = services.NewBoardManager(uploadService, shareService, cfg.RecordingMax, cfg.BoardIdle)
	embedResolver = embed.NewResolver(&http.Client{Timeout: 8 * time.Second})

	middleware.InitPrometheus()
	metrics.Register()
}

func main() {
	defer func() {
		if dbPool != nil {
			log.Println("Closing database connection pool...")
			dbPool.Close()
		}
		if sqliteStore != nil {
			sqliteStore.Close()
		}
	}()

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	shareHandler := handlers.NewShareHandler(shareService)
	uploadHandler := handlers.NewUploadHandler(uploadService)
	embedHandler := handlers.NewEmbedHandler(embedResolver)
	boardHandler := handlers.NewBoardHandler(boardManager, cfg.MaxUploadBytes)

	r := mux.NewRouter()

	// websockets skip the rate limiter and request metrics
	r.HandleFunc("/api/v1/boards/{boardId}/ws", boardHandler.JoinBoard)

	standardRouter := r.PathPrefix("/").Subrouter()

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go rateLimiter.CleanupVisitors(bgCtx)

	standardRouter.Use(rateLimiter.Middleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(cfg.PprofSecret)(http.DefaultServeMux))

	if !cfg.UseFirebase() {
		fs := http.FileServer(http.Dir(cfg.UploadDir))
		standardRouter.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", fs))
		log.Printf("Serving uploads from %s at /uploads/", cfg.UploadDir)
	}

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := shareService.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "snapshot store unavailable"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "bytegift-api"}`))
	}).Methods("GET")

	// share links and the routes older clients still call
	standardRouter.HandleFunc("/share/{shareId}", shareHandler.GetShare).Methods("GET")
	standardRouter.HandleFunc("/api/share", shareHandler.CreateShare).Methods("POST")
	standardRouter.HandleFunc("/api/from/{shareId}", shareHandler.GetShare).Methods("GET")
	standardRouter.HandleFunc("/api/upload/{kind}", uploadHandler.Upload).Methods("POST")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/upload/{kind}", uploadHandler.Upload).Methods("POST")
	api.HandleFunc("/embed", embedHandler.ResolveEmbed).Methods("GET")

	api.HandleFunc("/share", shareHandler.CreateShare).Methods("POST")
	api.HandleFunc("/share/{shareId}", shareHandler.GetShare).Methods("GET")
	api.HandleFunc("/share/{shareId}/qr", shareHandler.GetShareQRCode).Methods("GET")
	api.HandleFunc("/share/{shareId}/export.pdf", shareHandler.ExportPDF).Methods("GET")
	api.HandleFunc("/share/{shareId}/items/{itemId}/doodle.png", shareHandler.GetDoodlePNG).Methods("GET")

	api.HandleFunc("/boards", boardHandler.CreateBoard).Methods("POST")
	api.HandleFunc("/boards/{boardId}", boardHandler.GetBoard).Methods("GET")
	api.HandleFunc("/boards/{boardId}/photos", boardHandler.AddPhoto).Methods("POST")
	api.HandleFunc("/boards/{boardId}/share", boardHandler.ShareBoard).Methods("POST")

	workers.StartCleanupWorker(bgCtx, cfg.CleanupInterval, shareService, boardManager)

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins(cfg.CORSAllowedOrigins),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length", "Content-Disposition"}),
	)

	port := ":" + cfg.Port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	stopBackground()
	boardManager.Shutdown(shutdownCtx)

	log.Println("Server shutdown complete")
}
