package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type (
	Config struct {
		HTTP      HTTP      `envPrefix:"HTTP_"`
		Logger    Logger    `envPrefix:"LOGGER_"`
		Telemetry Telemetry `envPrefix:"TELEMETRY_"`
		Redis     Redis     `envPrefix:"REDIS_"`
		Provider  Provider  `envPrefix:"PROVIDER_"`
		Source    Source    `envPrefix:"SOURCE_"`
		Disk      Disk      `envPrefix:"DISK_"`
		State     State     `envPrefix:"STATE_"`
	}

	HTTP struct {
		Server  Server        `envPrefix:"SERVER_"`
		Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
	}

	Server struct {
		Port         string        `env:"PORT,required"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
		IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	}

	Logger struct {
		Level    string `env:"LEVEL,required"`
		Encoding string `env:"ENCODING" envDefault:"console"`
	}

	Telemetry struct {
		Enabled        bool   `env:"ENABLED" envDefault:"false"`
		ServiceName    string `env:"SERVICE_NAME" envDefault:"guide-helper-tileengine"`
		ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
		Environment    string `env:"ENVIRONMENT" envDefault:"production"`
		OTLPEndpoint   string `env:"OTLP_ENDPOINT" envDefault:"otel-collector.observability.svc.cluster.local:4317"`
	}

	Redis struct {
		Enabled  bool          `env:"ENABLED" envDefault:"false"`
		Addr     string        `env:"ADDR" envDefault:"localhost:6379"`
		Password string        `env:"PASSWORD" envDefault:""`
		DB       int           `env:"DB" envDefault:"0"`
		TTL      time.Duration `env:"TTL" envDefault:"24h"`
	}

	Provider struct {
		Workers           int           `env:"WORKERS" envDefault:"4"`
		MaxAttempts       int           `env:"MAX_ATTEMPTS" envDefault:"3"`
		Backoff           time.Duration `env:"BACKOFF" envDefault:"250ms"`
		FetchTimeout      time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`
		CacheBudgetBytes  int64         `env:"CACHE_BUDGET_BYTES" envDefault:"67108864"`
		LowMemoryFraction float64       `env:"LOW_MEMORY_FRACTION" envDefault:"0.5"`
		FailureThreshold  int64         `env:"FAILURE_THRESHOLD" envDefault:"50"`
		RedrawWindow      time.Duration `env:"REDRAW_WINDOW" envDefault:"100ms"`
		UserAgent         string        `env:"USER_AGENT" envDefault:"GuideHelper/1.0 (https://github.com/jaennil/guide_helper)"`
	}

	// Source describes one tile layer. The env group configures the default
	// layer; CatalogFile may list more in JSON using the same field names.
	Source struct {
		ID          string `env:"ID" envDefault:"osm" json:"id"`
		Name        string `env:"NAME" envDefault:"OpenStreetMap" json:"name"`
		Kind        string `env:"KIND" envDefault:"raster" json:"kind"`
		URLTemplate string `env:"URL_TEMPLATE" envDefault:"https://tile.openstreetmap.org/{z}/{x}/{y}.png" json:"url_template"`
		ArchivePath string `env:"ARCHIVE_PATH" json:"archive_path"`
		TileWidth   int    `env:"TILE_WIDTH" envDefault:"256" json:"tile_width"`
		TileHeight  int    `env:"TILE_HEIGHT" envDefault:"256" json:"tile_height"`
		MinZoom     int    `env:"MIN_ZOOM" envDefault:"0" json:"min_zoom"`
		MaxZoom     int    `env:"MAX_ZOOM" envDefault:"19" json:"max_zoom"`
		MaxOverzoom int    `env:"MAX_OVERZOOM" envDefault:"4" json:"max_overzoom"`
		CatalogFile string `env:"CATALOG_FILE" json:"-"`
	}

	Disk struct {
		Enabled bool   `env:"ENABLED" envDefault:"false"`
		Dir     string `env:"DIR" envDefault:"tiles"`
	}

	State struct {
		Path         string `env:"PATH" envDefault:"tileengine.db"`
		SaveSchedule string `env:"SAVE_SCHEDULE" envDefault:"* * * * *"`
	}
)

func New() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Printf("NOTICE: .env file not found or cannot be loaded: %v\n", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
