package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jengzang/tripguide-backend-go/internal/models"
)

// Config 应用配置
type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string

	// 共享缓存，为空时使用进程内缓存
	RedisURL      string
	RedisPassword string

	ForecastURL     string
	PlaceURLs       []string // 按顺序尝试
	RoutingURL      string
	ProviderTimeout time.Duration
	ProviderRPS     float64
	ForecastTTL     time.Duration
	PlaceTTL        time.Duration
	RouteTTL        time.Duration

	GeofenceProfile      string
	GeofenceProfilesFile string
	SampleRateLimit      float64 // 每秒接受的定位样本数，0 表示不限

	MQTTBroker string
	MQTTTopic  string

	CityCenter models.Coordinate
}

// Load 加载配置；存在 .env 时先读取
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:      getEnv("PORT", ":8080"),
		DBPath:    getEnv("DB_PATH", "./data/tripguide.db"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		ForecastURL: getEnv("FORECAST_URL", "https://api.open-meteo.com/v1/forecast"),
		PlaceURLs:   getEnvList("PLACE_URLS", nil),
		RoutingURL:  getEnv("ROUTING_URL", "https://router.project-osrm.org"),

		GeofenceProfile:      getEnv("GEOFENCE_PROFILE", models.ProfileDefault),
		GeofenceProfilesFile: getEnv("GEOFENCE_PROFILES_FILE", ""),

		MQTTBroker: getEnv("MQTT_BROKER", ""),
		MQTTTopic:  getEnv("MQTT_TOPIC", "tripguide/location"),
	}

	var err error
	if cfg.ProviderTimeout, err = getEnvSeconds("PROVIDER_TIMEOUT_SECONDS", 8); err != nil {
		return nil, err
	}
	if cfg.ProviderRPS, err = getEnvFloat("PROVIDER_RPS", 5); err != nil {
		return nil, err
	}
	if cfg.ForecastTTL, err = getEnvMinutes("FORECAST_TTL_MINUTES", 180); err != nil {
		return nil, err
	}
	if cfg.PlaceTTL, err = getEnvMinutes("PLACE_TTL_MINUTES", 24*60); err != nil {
		return nil, err
	}
	if cfg.RouteTTL, err = getEnvMinutes("ROUTE_TTL_MINUTES", 30); err != nil {
		return nil, err
	}
	if cfg.SampleRateLimit, err = getEnvFloat("SAMPLE_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.CityCenter.Lat, err = getEnvFloat("CITY_CENTER_LAT", 41.8781); err != nil {
		return nil, err
	}
	if cfg.CityCenter.Lng, err = getEnvFloat("CITY_CENTER_LNG", -87.6298); err != nil {
		return nil, err
	}
	if !cfg.CityCenter.Valid() {
		return nil, fmt.Errorf("invalid city center %v", cfg.CityCenter)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvFloat(key string, def float64) (float64, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvInt(key string, def int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return n, nil
}

func getEnvSeconds(key string, def int) (time.Duration, error) {
	n, err := getEnvInt(key, def)
	return time.Duration(n) * time.Second, err
}

func getEnvMinutes(key string, def int) (time.Duration, error) {
	n, err := getEnvInt(key, def)
	return time.Duration(n) * time.Minute, err
}
