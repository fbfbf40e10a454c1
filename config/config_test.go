package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Load: embedded defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		require.Equal(t, "info", cfg.LogLevel)
		require.Equal(t, 1280, cfg.Window.Width)
		require.Equal(t, 0.5, cfg.Render.SizeCullPixels)
		require.Equal(t, 0.5, cfg.Render.CurveErrorPixels)
		require.Equal(t, uint32(24), cfg.Render.MaxTileLevel)
		require.Equal(t, 2048, cfg.Render.ShadowMapSize)
		require.Equal(t, 1024, cfg.Render.OmniShadowMapSize)
		require.Equal(t, 1, cfg.Render.MaxShadowMaps)
		require.Equal(t, 3, cfg.Render.MaxOmniShadowMaps)
		require.Equal(t, [3]float32{0.02, 0.02, 0.03}, cfg.Render.Ambient)
		require.Equal(t, "solar_system", cfg.Scene.Bodies)
		require.InDelta(t, math.Pi/4, cfg.Derived.FovRadians, 1e-12)
		require.Equal(t, 5*time.Second, cfg.Derived.LogInterval)
		require.Equal(t, uint64(512<<20), cfg.Derived.TextureBudgetBytes)
	})

	t.Run("Load: the override file wins for the fields it sets", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("render:\n  fov_degrees: 60\n  shadows: false\nprofiler:\n  log_interval: 250ms\n"), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		require.False(t, cfg.Render.Shadows)
		require.InDelta(t, math.Pi/3, cfg.Derived.FovRadians, 1e-12)
		require.Equal(t, 250*time.Millisecond, cfg.Derived.LogInterval)
		require.Equal(t, 2048, cfg.Render.ShadowMapSize)
		require.Equal(t, 720, cfg.Window.Height)
	})

	t.Run("Load: invalid values are rejected", func(t *testing.T) {
		dir := t.TempDir()
		for name, body := range map[string]string{
			"fov":      "render:\n  fov_degrees: 180\n",
			"size":     "window:\n  width: 0\n",
			"interval": "profiler:\n  log_interval: soon\n",
			"syntax":   "render: [\n",
		} {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := Load(path)
			require.Error(t, err, name)
		}
	})

	t.Run("Load: a missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("WriteYAML: the written file loads back the same values", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		cfg.Scene.TimeScale = 60
		cfg.Metrics.Addr = ":9100"

		path := filepath.Join(t.TempDir(), "out.yaml")
		require.NoError(t, cfg.WriteYAML(path))
		again, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, cfg, again)
	})
}
