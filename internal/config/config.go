package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/common/model"
	"gopkg.in/yaml.v3"

	"github.com/stationpulse/stationpulse/internal/export"
	"github.com/stationpulse/stationpulse/internal/pipeline"
	"github.com/stationpulse/stationpulse/pkg/types"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultResolution    = model.Duration(time.Hour)
	DefaultWorkers       = 1
	DefaultMaxFieldDelta = 7200
	DefaultOutDir        = "./out"
)

// Config is the top-level stationpulse configuration.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Input    InputConfig    `yaml:"input"`
	Export   ExportConfig   `yaml:"export"`

	// Watch re-runs the pipeline when the config file or the readings
	// directory changes.
	Watch bool `yaml:"watch"`
}

// PipelineConfig holds the metric-derivation options.
type PipelineConfig struct {
	// BucketResolution is the time-bucket width readings snap to.
	BucketResolution model.Duration `yaml:"bucket_resolution"`

	// MinCoverage drops buckets observed from fewer distinct entities.
	MinCoverage int `yaml:"min_coverage" validate:"gte=0"`

	// TrafficWeight and DensityWeight are the additive component-score
	// offsets; zero keeps the pure multiplicative priority.
	TrafficWeight float64 `yaml:"traffic_weight" validate:"gte=0"`
	DensityWeight float64 `yaml:"density_weight" validate:"gte=0"`

	// Grouping selects the aggregation entity: station | complex.
	Grouping string `yaml:"grouping" validate:"oneof=station complex"`

	// Workers shards per-device normalization.
	Workers int `yaml:"workers" validate:"gte=1"`

	// DropZeroRates removes zero-rate intervals before bucketing.
	DropZeroRates bool `yaml:"drop_zero_rates"`
}

// InputConfig locates the provider files.
type InputConfig struct {
	// ReadingsGlob matches the weekly provider files to ingest.
	ReadingsGlob string `yaml:"readings_glob" validate:"required"`

	// ComplexLookup is the remote/booth → complex CSV. Optional; without it
	// complex grouping drops every station.
	ComplexLookup string `yaml:"complex_lookup"`

	// MaxFieldDelta is the per-interval plausibility cap for one counter
	// field during cleaning.
	MaxFieldDelta int64 `yaml:"max_field_delta" validate:"gte=0"`
}

// ExportConfig selects the output sinks.
type ExportConfig struct {
	// OutDir receives the CSV tables.
	OutDir string `yaml:"out_dir" validate:"required"`

	// PromFile, when set, receives run statistics in Prometheus text
	// format for a textfile collector.
	PromFile string `yaml:"prom_file"`

	// Filters are output-selection conditions like "priority >= 0.5".
	Filters []string `yaml:"filters"`

	// Influx configures the optional InfluxDB v2 sink.
	Influx InfluxConfig `yaml:"influx"`
}

// InfluxConfig mirrors export.InfluxConfig in YAML form. The token comes
// from the environment variable named by token_env, never the file itself.
type InfluxConfig struct {
	URL      string `yaml:"url" validate:"omitempty,url"`
	TokenEnv string `yaml:"token_env"`
	Org      string `yaml:"org"`
	Bucket   string `yaml:"bucket"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse unmarshals, defaults, and validates a raw config document.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			BucketResolution: DefaultResolution,
			Grouping:         types.GroupStation.String(),
			Workers:          DefaultWorkers,
		},
		Input: InputConfig{
			MaxFieldDelta: DefaultMaxFieldDelta,
		},
		Export: ExportConfig{
			OutDir: DefaultOutDir,
		},
	}
}

// validate checks struct tags and the constraints tags cannot express.
func validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}
	if cfg.Pipeline.BucketResolution <= 0 {
		return fmt.Errorf("pipeline.bucket_resolution must be positive")
	}
	if _, err := pipeline.ParseFilters(cfg.Export.Filters); err != nil {
		return fmt.Errorf("export.filters: %w", err)
	}
	if cfg.Export.Influx.URL != "" && cfg.Export.Influx.TokenEnv == "" {
		return fmt.Errorf("export.influx.token_env is required when influx is enabled")
	}
	return nil
}

// PipelineConfig converts the file form into the pipeline's Config.
func (c *Config) PipelineConfig() (pipeline.Config, error) {
	grouping, err := types.ParseGroupKey(c.Pipeline.Grouping)
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		Resolution:    time.Duration(c.Pipeline.BucketResolution),
		MinCoverage:   c.Pipeline.MinCoverage,
		TrafficWeight: c.Pipeline.TrafficWeight,
		DensityWeight: c.Pipeline.DensityWeight,
		Grouping:      grouping,
		Workers:       c.Pipeline.Workers,
		DropZeroRates: c.Pipeline.DropZeroRates,
	}, nil
}

// InfluxConfig converts the file form into the export sink's config.
func (c *Config) InfluxConfig() export.InfluxConfig {
	return export.InfluxConfig{
		URL:      c.Export.Influx.URL,
		TokenEnv: c.Export.Influx.TokenEnv,
		Org:      c.Export.Influx.Org,
		Bucket:   c.Export.Influx.Bucket,
	}
}
