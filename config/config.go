// Package config loads the YAML configuration of the renderer, layering a user file over the
// embedded defaults.
package config

import (
	_ "embed"
	"math"
	"os"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrTypeConfig tags errors returned while loading or writing configuration.
const ErrTypeConfig = "config"

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all configuration parameters.
type Config struct {
	LogLevel string         `yaml:"log_level"`
	Window   WindowConfig   `yaml:"window"`
	Render   RenderConfig   `yaml:"render"`
	Scene    SceneConfig    `yaml:"scene"`
	Textures TexturesConfig `yaml:"textures"`
	Profiler ProfilerConfig `yaml:"profiler"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Title      string  `yaml:"title"`
	VSync      bool    `yaml:"vsync"`
	FrameLimit float64 `yaml:"frame_limit"` // frames per second, 0 = uncapped
}

// RenderConfig holds universe renderer settings.
type RenderConfig struct {
	FovDegrees        float64    `yaml:"fov_degrees"`
	SizeCullPixels    float64    `yaml:"size_cull_pixels"`
	CurveErrorPixels  float64    `yaml:"curve_error_pixels"`
	MaxTileLevel      uint32     `yaml:"max_tile_level"`
	Shadows           bool       `yaml:"shadows"`
	ShadowMapSize     int        `yaml:"shadow_map_size"`
	OmniShadowMapSize int        `yaml:"omni_shadow_map_size"`
	MaxShadowMaps     int        `yaml:"max_shadow_maps"`
	MaxOmniShadowMaps int        `yaml:"max_omni_shadow_maps"`
	SkyLayers         bool       `yaml:"sky_layers"`
	DefaultSun        bool       `yaml:"default_sun"`
	Ambient           [3]float32 `yaml:"ambient,flow"`
}

// SceneConfig holds simulation clock settings and the body set to build.
type SceneConfig struct {
	TimeScale float64 `yaml:"time_scale"` // simulated seconds per wall clock second
	StartTime float64 `yaml:"start_time"`
	Bodies    string  `yaml:"bodies"`
}

// TexturesConfig holds texture loader settings.
type TexturesConfig struct {
	Dir             string `yaml:"dir"` // empty uses generated textures only
	MemoryBudgetMB  int    `yaml:"memory_budget_mb"`
	KeepFrames      int64  `yaml:"keep_frames"`
	UploadsPerFrame int    `yaml:"uploads_per_frame"`
	DecodeWorkers   int    `yaml:"decode_workers"` // 0 = half the CPUs
}

// ProfilerConfig holds frame statistics output settings.
type ProfilerConfig struct {
	Enabled     bool   `yaml:"enabled"`
	CSVPath     string `yaml:"csv_path"`
	SummaryPath string `yaml:"summary_path"`
	LogInterval string `yaml:"log_interval"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

// DerivedConfig holds values computed from the loaded configuration.
type DerivedConfig struct {
	FovRadians         float64
	LogInterval        time.Duration
	TextureBudgetBytes uint64
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
//
// Parameters:
//   - path: the YAML file, may be empty
//
// Returns:
//   - *Config: the configuration
//   - error: error if a file cannot be read or parsed, or holds invalid values
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, errors.New("parsing embedded defaults failed").WithType(ErrTypeConfig).Wrap(err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.New("reading config file failed").
				WithType(ErrTypeConfig).
				WithTag("path", path).
				Wrap(err)
		}
		// Only fields present in the file are overwritten.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("parsing config file failed").
				WithType(ErrTypeConfig).
				WithTag("path", path).
				Wrap(err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) computeDerived() error {
	if c.Render.FovDegrees <= 0 || c.Render.FovDegrees >= 180 {
		return errors.New("field of view must be between 0 and 180 degrees").
			WithType(ErrTypeConfig).
			WithTag("fov_degrees", c.Render.FovDegrees)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.New("window size must be positive").
			WithType(ErrTypeConfig).
			WithTag("width", c.Window.Width).
			WithTag("height", c.Window.Height)
	}
	c.Derived.FovRadians = c.Render.FovDegrees * math.Pi / 180

	c.Derived.LogInterval = time.Second
	if c.Profiler.LogInterval != "" {
		d, err := time.ParseDuration(c.Profiler.LogInterval)
		if err != nil {
			return errors.New("parsing profiler log interval failed").
				WithType(ErrTypeConfig).
				WithTag("log_interval", c.Profiler.LogInterval).
				Wrap(err)
		}
		c.Derived.LogInterval = d
	}

	c.Derived.TextureBudgetBytes = uint64(max(c.Textures.MemoryBudgetMB, 0)) << 20
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.New("marshaling config failed").WithType(ErrTypeConfig).Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("writing config file failed").
			WithType(ErrTypeConfig).
			WithTag("path", path).
			Wrap(err)
	}
	return nil
}
