package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/folderguard/folderguard/pkg/audit"
	"github.com/folderguard/folderguard/pkg/config"
	"github.com/folderguard/folderguard/pkg/inventory"
	"github.com/folderguard/folderguard/pkg/middleware"
	"github.com/folderguard/folderguard/pkg/observability"
	"github.com/folderguard/folderguard/pkg/rbac"
	"github.com/folderguard/folderguard/pkg/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	db, err := sql.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	ctx := context.Background()
	switch cfg.Database.Driver {
	case "postgres":
		if err := rbac.RunMigrations(ctx, db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	case "sqlite3":
		if err := rbac.InitSQLiteSchema(ctx, db); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
	}

	store := rbac.NewStore(db)
	if err := rbac.InitializeBuiltInRoles(ctx, store); err != nil {
		log.Fatalf("Failed to initialize built-in roles: %v", err)
	}

	var metrics *observability.Metrics
	var registry *prometheus.Registry
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		metrics = observability.NewMetrics(registry)
	}

	var service server.RoleService = store
	if cfg.Redis.Enabled {
		cache, err := server.NewRedisRoleCache(store, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, metrics)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		service = cache
		logger.WithField("addr", cfg.Redis.Addr).Info("Role cache enabled")
	}

	invLogger := logrus.New()
	inv, err := inventory.Load(cfg.Inventory.Path, invLogger)
	if err != nil {
		log.Fatalf("Failed to load inventory: %v", err)
	}

	stop := make(chan struct{})
	defer close(stop)

	if cfg.Inventory.Watch {
		if metrics != nil {
			inv.OnReload = func(err error) {
				status := "success"
				if err != nil {
					status = "failure"
				}
				metrics.InventoryReloadsTotal.WithLabelValues(status).Inc()
			}
		}
		if err := inv.Watch(stop); err != nil {
			log.Fatalf("Failed to watch inventory: %v", err)
		}
		logger.WithField("path", cfg.Inventory.Path).Info("Watching inventory for changes")
	}

	crumbs, err := server.NewCrumbRegistry(cfg.Crumb.TTL, cfg.Crumb.SweepSchedule, metrics)
	if err != nil {
		log.Fatalf("Failed to start crumb registry: %v", err)
	}
	defer crumbs.Close()

	var auditor audit.Logger = audit.NewNoOpLogger()
	if cfg.Audit.Enabled {
		fileLogger, err := audit.NewFileLogger(cfg.Audit.Path)
		if err != nil {
			log.Fatalf("Failed to open audit log: %v", err)
		}
		defer fileLogger.Close()
		auditor = fileLogger
	}

	handlers := server.NewHandlers(service, inv, crumbs, logger, auditor, metrics)

	router := mux.NewRouter()
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Distributed {
			redisClient := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			router.Use(middleware.NewDistributedRateLimitMiddleware(redisClient, middleware.MutationRateLimitConfig()).Handler)
		} else {
			router.Use(middleware.NewRateLimitMiddleware().Handler)
		}
	}
	if metrics != nil {
		router.Use(observability.HTTPMetricsMiddleware(metrics))
		router.Handle("/metrics", observability.MetricsHandler(registry)).Methods("GET")
		go pollDBStats(db, metrics, stop)
	}
	handlers.RegisterRoutes(router)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.WithField("addr", addr).Info("Starting folderguard server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// pollDBStats publishes connection pool gauges until stop is closed.
func pollDBStats(db *sql.DB, metrics *observability.Metrics, stop <-chan struct{}) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			stats := db.Stats()
			metrics.DBConnectionsActive.Set(float64(stats.InUse))
			metrics.DBConnectionsIdle.Set(float64(stats.Idle))
		case <-stop:
			return
		}
	}
}
