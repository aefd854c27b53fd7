// Package config loads the service configuration from configs/config.yml,
// an optional .env file and SENSOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sensor_monitor/internal/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Reading and alarm source kinds.
const (
	SourceHTTP      = "http"
	SourceInflux    = "influx"
	SourceSimulator = "simulator"
	SourceThreshold = "threshold"
)

var (
	ErrUnknownSource  = errors.New("unknown source")
	ErrMissingInflux  = errors.New("influx source needs influx.url, influx.token, influx.org and influx.bucket")
	ErrMissingBaseURL = errors.New("http source needs upstream.base_url")
)

// Config holds the application's configuration.
type Config struct {
	Port     string
	HTTP     HTTPConfig
	DBPath   string
	LogLevel string
	Location *time.Location

	WindowSize      int
	StableThreshold float64

	AlarmInterval  time.Duration
	AlarmSource    string // http | threshold
	AlarmAutostart bool
	Limits         map[int]float64

	ReadingsSource string // http | influx | simulator
	PollInterval   time.Duration
	SimSeed        uint64

	UpstreamURL     string
	UpstreamTimeout time.Duration

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	AllowedOrigins []string
}

// HTTPConfig tunes the HTTP server. Zero values keep the server defaults.
type HTTPConfig struct {
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
}

// Load reads configuration from the given directories. A missing config
// file is not an error; defaults and the environment still apply.
func Load(paths ...string) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("SENSOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("http.read_header_timeout", "10s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("http.max_header_bytes", 1<<20)
	v.SetDefault("db.path", "alarms.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("timezone", "UTC")

	v.SetDefault("trend.window_size", 6)
	v.SetDefault("trend.stable_threshold", 15.0)

	v.SetDefault("alarm.interval", "5s")
	v.SetDefault("alarm.source", SourceThreshold)
	v.SetDefault("alarm.autostart", true)
	v.SetDefault("alarm.thresholds.temperature", 30.0)
	v.SetDefault("alarm.thresholds.humidity", 60.0)

	v.SetDefault("readings.source", SourceSimulator)
	v.SetDefault("readings.poll_interval", "2m")
	v.SetDefault("readings.sim_seed", 1)

	v.SetDefault("upstream.base_url", "http://localhost:8081")
	v.SetDefault("upstream.timeout", "10s")

	v.SetDefault("influx.bucket", "sensors")
	v.SetDefault("cors.allowed_origins", []string{"*"})
}

func fromViper(v *viper.Viper) (Config, error) {
	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		return Config{}, fmt.Errorf("timezone %q: %w", v.GetString("timezone"), err)
	}

	cfg := Config{
		Port: v.GetString("port"),
		HTTP: HTTPConfig{
			ReadHeaderTimeout: v.GetDuration("http.read_header_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
		},
		DBPath:   v.GetString("db.path"),
		LogLevel: v.GetString("log.level"),
		Location: loc,

		WindowSize:      v.GetInt("trend.window_size"),
		StableThreshold: v.GetFloat64("trend.stable_threshold"),

		AlarmInterval:  v.GetDuration("alarm.interval"),
		AlarmSource:    strings.ToLower(v.GetString("alarm.source")),
		AlarmAutostart: v.GetBool("alarm.autostart"),
		Limits: map[int]float64{
			models.SensorTemperature: v.GetFloat64("alarm.thresholds.temperature"),
			models.SensorHumidity:    v.GetFloat64("alarm.thresholds.humidity"),
		},

		ReadingsSource: strings.ToLower(v.GetString("readings.source")),
		PollInterval:   v.GetDuration("readings.poll_interval"),
		SimSeed:        v.GetUint64("readings.sim_seed"),

		UpstreamURL:     v.GetString("upstream.base_url"),
		UpstreamTimeout: v.GetDuration("upstream.timeout"),

		InfluxURL:    v.GetString("influx.url"),
		InfluxToken:  v.GetString("influx.token"),
		InfluxOrg:    v.GetString("influx.org"),
		InfluxBucket: v.GetString("influx.bucket"),

		AllowedOrigins: v.GetStringSlice("cors.allowed_origins"),
	}
	return cfg, cfg.Validate()
}

// Validate checks that the selected sources are fully configured.
func (c Config) Validate() error {
	switch c.ReadingsSource {
	case SourceSimulator:
	case SourceHTTP:
		if c.UpstreamURL == "" {
			return ErrMissingBaseURL
		}
	case SourceInflux:
		if c.InfluxURL == "" || c.InfluxToken == "" || c.InfluxOrg == "" || c.InfluxBucket == "" {
			return ErrMissingInflux
		}
	default:
		return fmt.Errorf("%w: readings.source=%q", ErrUnknownSource, c.ReadingsSource)
	}

	switch c.AlarmSource {
	case SourceThreshold:
	case SourceHTTP:
		if c.UpstreamURL == "" {
			return ErrMissingBaseURL
		}
	default:
		return fmt.Errorf("%w: alarm.source=%q", ErrUnknownSource, c.AlarmSource)
	}
	return nil
}
