package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/storagehub/storaged/internal/api"
	"github.com/storagehub/storaged/internal/audit"
	"github.com/storagehub/storaged/internal/config"
	"github.com/storagehub/storaged/internal/database"
	"github.com/storagehub/storaged/internal/repository"
	"github.com/storagehub/storaged/internal/session"
	"github.com/storagehub/storaged/internal/storage"
	"github.com/storagehub/storaged/pkg/logger"
	"github.com/storagehub/storaged/pkg/metrics"
	"github.com/storagehub/storaged/pkg/middleware"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	logger.Init(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := database.Connect(ctx, cfg.Store.ConnectionString, cfg.Store.Timeout)
	if err != nil {
		logger.Fatalf("connect store: %v", err)
	}
	defer client.Disconnect(context.Background())
	db := client.Database(cfg.Store.DatabaseName)

	sess := session.Static{}
	locations := repository.NewMongo[storage.Location](db, sess)
	units := repository.NewMongo[storage.StorageUnit](db, sess)
	bins := repository.NewMongo[storage.StorageBin](db, sess)

	auditStore := audit.NewStore(db, audit.WithRetention(cfg.Audit.Retention))
	if err := auditStore.EnsureIndexes(ctx); err != nil {
		logger.Fatalf("audit indexes: %v", err)
	}
	if err := auditStore.Bootstrap(ctx); err != nil {
		logger.Fatalf("audit bootstrap: %v", err)
	}

	watcher := audit.NewWatcher(auditStore)
	for _, col := range []*mongo.Collection{locations.Collection(), units.Collection(), bins.Collection()} {
		src, err := audit.OpenChangeStream(ctx, col)
		if err != nil {
			// mutations on this collection proceed unaudited; see Watcher docs
			logger.Errorf("change feed for %s unavailable: %v", col.Name(), err)
			continue
		}
		watcher.Watch(ctx, col.Name(), src)
	}

	reg := prometheus.NewRegistry()
	metrics.RegisterCollectors(reg)

	if cfg.Server.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimitMiddleware(50, 100))
	api.Register(r, api.Deps{
		Locations: locations,
		Units:     units,
		Bins:      bins,
		Placement: storage.NewCoordinator(units, bins),
	})
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("storaged listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	// watcher tasks observe the canceled signal ctx between events
	watcher.Wait()
}
