package config

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`

	// Redis holds the Redis connection configuration.
	Redis RedisConfig `mapstructure:",squash"`

	// Feed holds the flight-data feed configuration.
	Feed FeedConfig `mapstructure:",squash"`

	// Tracking holds the polling-loop configuration.
	Tracking TrackingConfig `mapstructure:",squash"`

	// WS holds the subscriber (WebSocket) configuration.
	WS WSConfig `mapstructure:",squash"`
}

// RedisConfig holds the connection details for the flight document store.
type RedisConfig struct {
	// URL is the Redis connection URL, e.g. redis://localhost:6379/0.
	URL string `mapstructure:"REDIS_URL" required:"true"`
}

// FeedConfig holds the credentials for the external flight-data feed.
type FeedConfig struct {
	// URL is the base URL of the feed API.
	URL string `mapstructure:"FEED_URL" required:"true"`
	// APIKey is sent on every feed request via the x-apikey header.
	APIKey string `mapstructure:"FEED_API_KEY" required:"true"`
	// TimeoutSeconds bounds each feed HTTP request.
	TimeoutSeconds int `mapstructure:"FEED_TIMEOUT_SECONDS" default:"10"`
}

// TrackingConfig holds the tuning knobs for the polling loop.
type TrackingConfig struct {
	// PollIntervalSeconds is the period between polling ticks.
	PollIntervalSeconds int `mapstructure:"POLL_INTERVAL_SECONDS" default:"60"`
	// ErrorThreshold is the number of consecutive failed ticks before auto-stop.
	ErrorThreshold int `mapstructure:"FEED_ERROR_THRESHOLD" default:"5"`
	// BackfillWindowSeconds: if the first observed position predates start by
	// more than this window, the historical track is fetched and merged.
	BackfillWindowSeconds int `mapstructure:"TRACK_BACKFILL_WINDOW_SECONDS" default:"300"`
}

// WSConfig holds the subscriber connection lifecycle timings.
type WSConfig struct {
	// SetupDelayMs is the stabilization delay before a connection is counted.
	SetupDelayMs int `mapstructure:"WS_SETUP_DELAY_MS" default:"1000"`
	// SetupTimeoutMs is the deadline for a connection to complete setup.
	SetupTimeoutMs int `mapstructure:"WS_SETUP_TIMEOUT_MS" default:"5000"`
	// SweepIntervalSeconds is the period of the stale-connection sweep.
	SweepIntervalSeconds int `mapstructure:"WS_SWEEP_INTERVAL_SECONDS" default:"30"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			v.BindEnv(key)
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
