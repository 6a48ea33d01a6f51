package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/jengzang/tripguide-backend-go/internal/api"
	"github.com/jengzang/tripguide-backend-go/internal/arrival"
	"github.com/jengzang/tripguide-backend-go/internal/cache"
	"github.com/jengzang/tripguide-backend-go/internal/catalog"
	"github.com/jengzang/tripguide-backend-go/internal/config"
	"github.com/jengzang/tripguide-backend-go/internal/database"
	"github.com/jengzang/tripguide-backend-go/internal/geosource"
	"github.com/jengzang/tripguide-backend-go/internal/handler"
	"github.com/jengzang/tripguide-backend-go/internal/logging"
	"github.com/jengzang/tripguide-backend-go/internal/models"
	"github.com/jengzang/tripguide-backend-go/internal/notify"
	"github.com/jengzang/tripguide-backend-go/internal/provider"
	"github.com/jengzang/tripguide-backend-go/internal/repository"
	"github.com/jengzang/tripguide-backend-go/internal/scheduler"
	"github.com/jengzang/tripguide-backend-go/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(gin.ReleaseMode)

	// 初始化数据库
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		return err
	}
	defer db.Close()

	itRepo := repository.NewItineraryRepository(db)
	arrRepo := repository.NewArrivalRepository(db)
	prefRepo := repository.NewPreferencesRepository(db)

	// 缓存与外部数据源
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		if rdb, err = cache.OpenRedis(cfg.RedisURL, cfg.RedisPassword); err != nil {
			return err
		}
		defer rdb.Close()
		logger.Info("using shared redis cache", "component", "cache")
	}
	opts := provider.Options{Timeout: cfg.ProviderTimeout, RequestsPerSecond: cfg.ProviderRPS}
	forecasts := provider.NewForecastProvider(cfg.ForecastURL,
		cache.New("forecast", newStore[models.Forecast](rdb, "tripguide:forecast", cfg.ForecastTTL), cfg.ForecastTTL), opts)
	places := provider.NewPlaceProvider(cfg.PlaceURLs,
		cache.New("place", newStore[*models.Place](rdb, "tripguide:place", cfg.PlaceTTL), cfg.PlaceTTL), opts)
	routes := provider.NewRouteProvider(cfg.RoutingURL,
		cache.New("route", newStore[models.RouteSegment](rdb, "tripguide:route", cfg.RouteTTL), cfg.RouteTTL), opts)

	// 行程
	schedCfg := scheduler.DefaultConfig()
	schedCfg.CityCenter = cfg.CityCenter
	itineraries := service.NewItineraryService(itRepo, prefRepo, scheduler.New(schedCfg), catalog.Default(), forecasts)
	routeSvc := service.NewRouteService(itineraries, routes, cfg.ProviderTimeout)

	// 到达检测
	profiles, err := arrival.LoadProfiles(cfg.GeofenceProfilesFile)
	if err != nil {
		return err
	}
	profile, ok := profiles[cfg.GeofenceProfile]
	if !ok {
		return fmt.Errorf("unknown geofence profile %q", cfg.GeofenceProfile)
	}

	hub := notify.NewHub()
	defer hub.Close()
	logSink := notify.NewLogSink(logger)
	events := notify.Fanout{hub, logSink}

	tracker := arrival.NewTracker(arrival.NewMachine(profile), events, logSink, arrival.TrackerOptions{
		SampleRate:  rate.Limit(cfg.SampleRateLimit),
		SampleBurst: 2,
	})
	defer tracker.Close()
	arrivals := service.NewArrivalService(tracker, itRepo, arrRepo, prefRepo, profiles)

	itineraries.Subscribe(events)
	itineraries.Subscribe(arrivals)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := arrivals.Restore(ctx); err != nil {
		logger.Warn("failed to restore arrival session", "component", "arrival", "error", err)
	}

	if cfg.MQTTBroker != "" {
		src := geosource.NewMQTTSource(cfg.MQTTBroker, cfg.MQTTTopic, "tripguide-"+uuid.NewString()[:8], arrivals)
		if err := src.Start(); err != nil {
			return err
		}
		defer src.Close()
	}

	// 初始化路由
	router := api.SetupRouter(api.Handlers{
		Itinerary: handler.NewItineraryHandler(itineraries, routeSvc),
		Arrival:   handler.NewArrivalHandler(arrivals),
		Provider:  handler.NewProviderHandler(forecasts, places),
		Events:    hub,
	}, api.Options{Logger: logger, RateLimit: 20, RateBurst: 40})

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "component", "server", "addr", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "component", "server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	itineraries.Wait()
	return nil
}

// newStore picks the shared redis store when configured, the in-process map otherwise.
// Redis keeps entries four TTLs so stale fallbacks survive.
func newStore[V any](rdb *redis.Client, prefix string, ttl time.Duration) cache.Store[V] {
	if rdb == nil {
		return cache.NewMemoryStore[V]()
	}
	return cache.NewRedisStore[V](rdb, prefix, 4*ttl)
}
