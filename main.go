package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dsa-assist-service/assist"
	"dsa-assist-service/catalog"
	"dsa-assist-service/config"
	"dsa-assist-service/handlers"
	"dsa-assist-service/metrics"
	"dsa-assist-service/middleware"
	"dsa-assist-service/models"
	"dsa-assist-service/ollama"
	"dsa-assist-service/store"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	if cfg.LanguagePolicy != config.PolicyStrict && cfg.LanguagePolicy != config.PolicyLenient {
		log.Fatalf("LANGUAGE_POLICY must be %q or %q", config.PolicyStrict, config.PolicyLenient)
	}
	if _, ok := models.ParseLanguage(cfg.DefaultLanguage); !ok {
		log.Fatalf("DEFAULT_LANGUAGE %q is not supported (supported: %v)", cfg.DefaultLanguage, models.SupportedLanguages())
	}

	log.Info("Starting the DSA assist service...")

	// Problem catalog
	cat, db, err := setupCatalog(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize problem catalog: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	// Single-slot response cache
	responseStore := store.NewFileStore(cfg.CacheFile)

	// Inference client
	llm := ollama.NewClient(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.InferenceTimeout)

	// Orchestration service and handlers
	svc := assist.NewService(cfg, cat, responseStore, llm)
	h := handlers.NewHandlers(svc, responseStore, cat, llm)

	metrics.Register()

	// Setup router
	router := gin.Default()
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	router.GET("/health", h.HealthCheck)
	router.GET("/version", h.Version)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute, time.Minute))
	{
		api.GET("/problems", h.ListProblems)
		api.GET("/problems/:index", h.GetProblem)
		api.GET("/assist", h.Assist)
		api.GET("/assist/stream", h.StreamAssist)
		api.DELETE("/assist/cache", h.ClearCache)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Infof("DSA assist service starting on port %s", cfg.Port)
		log.Infof("Inference endpoint: %s (model %s, timeout %s)", cfg.OllamaBaseURL, cfg.OllamaModel, cfg.InferenceTimeout)
		log.Infof("Language policy: %s (default %s)", cfg.LanguagePolicy, cfg.DefaultLanguage)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

func setupCatalog(cfg *config.Config) (catalog.Provider, *sql.DB, error) {
	switch cfg.CatalogSource {
	case "file":
		return catalog.NewFileProvider(cfg.ProblemsFile), nil, nil
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, nil, err
		}
		return catalog.NewMySQLProvider(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog source %q", cfg.CatalogSource)
	}
}
