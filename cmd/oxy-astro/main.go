package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"reflect"
	"syscall"

	"github.com/Carmen-Shannon/oxy-astro/config"
	"github.com/Carmen-Shannon/oxy-astro/engine"
	"github.com/Carmen-Shannon/oxy-astro/engine/camera"
	"github.com/Carmen-Shannon/oxy-astro/engine/light"
	"github.com/Carmen-Shannon/oxy-astro/engine/profiler"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"github.com/Carmen-Shannon/oxy-astro/engine/texture"
	"github.com/Carmen-Shannon/oxy-astro/engine/universe"
	"github.com/Carmen-Shannon/oxy-astro/engine/window"
	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
)

var (
	// The oxy-astro version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "oxy_astro_info",
		Help:        "oxy-astro information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// Keeps the flag names readable when the binary is obfuscated.
var _ = reflect.TypeOf(flags{})

type flags struct {
	Config      string `cli:"" env:"OXY_ASTRO_CONFIG"       help:"YAML configuration file layered over the defaults."`
	LogLevel    string `cli:"" env:"OXY_ASTRO_LOG_LEVEL"    help:"Log level (debug|info|warning|error). Overrides the config file."`
	LogIndent   bool   `cli:"" env:"OXY_ASTRO_LOG_INDENT"   help:"Indent logs."`
	MetricsAddr string `cli:"" env:"OXY_ASTRO_METRICS_ADDR" help:"Listening address for Prometheus metrics. Overrides the config file."`
	Headless    bool   `cli:"" env:"OXY_ASTRO_HEADLESS"     help:"Render with the recording backend and no window."`
	Frames      int    `cli:"" env:"OXY_ASTRO_FRAMES"       help:"The number of frames drawn in headless mode."`
	DumpConfig  string `cli:"" env:"-"                      help:"Write the effective configuration to this file and exit."`
	Version     bool   `cli:"" env:"-"                      help:"Show version."`
	Help        bool   `cli:"" env:"-"                      help:"Show help."`
}

func main() {
	f := flags{
		Frames: 600,
	}

	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Renders a solar system with the oxy-astro universe renderer.").
		Options(&f)
	cli.Load()

	if f.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	conf, err := config.Load(f.Config)
	if err != nil {
		logs.Fatal(err)
	}
	if f.LogLevel != "" {
		conf.LogLevel = f.LogLevel
	}
	if f.MetricsAddr != "" {
		conf.Metrics.Addr = f.MetricsAddr
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if f.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}
	errors.Encoder = json.Marshal

	if f.DumpConfig != "" {
		if err := conf.WriteYAML(f.DumpConfig); err != nil {
			logs.Fatal(err)
		}
		os.Exit(0)
	}

	runID := uuid.New()
	logs.WithTag("run", runID.String()).
		WithTag("version", version).
		WithTag("headless", f.Headless).
		Info("starting oxy-astro")

	if conf.Metrics.Addr != "" {
		go serveMetrics(ctx, conf.Metrics.Addr)
	}

	if err := run(ctx, conf, f); err != nil {
		logs.Fatal(err)
	}
}

func serveMetrics(ctx context.Context, addr string) {
	var mux http.ServeMux
	mux.Handle("/metrics", promhttp.Handler())
	s := &http.Server{Addr: addr, Handler: &mux}

	go func() {
		<-ctx.Done()
		if err := s.Shutdown(context.Background()); err != nil {
			logs.Warn(errors.New("shutting down the metrics server failed").
				WithTag("addr", addr).
				Wrap(err))
		}
	}()

	logs.WithTag("addr", addr).Info("starting metrics server")
	switch err := s.ListenAndServe(); err {
	case nil, http.ErrServerClosed, context.Canceled:
		logs.WithTag("addr", addr).Info("stopping metrics server")
	default:
		logs.Warn(errors.New("metrics server stopped").
			WithTag("addr", addr).
			Wrap(err))
	}
}

func run(ctx context.Context, conf *config.Config, f flags) error {
	var win window.Window
	backend := renderer.BackendTypeRecording
	if !f.Headless {
		w, err := window.NewWindow(
			window.WithTitle(conf.Window.Title),
			window.WithSize(conf.Window.Width, conf.Window.Height),
		)
		if err != nil {
			return err
		}
		win = w
		backend = renderer.BackendTypeWGPU
	}

	presentMode := renderer.PresentModeUncapped
	if conf.Window.VSync {
		presentMode = renderer.PresentModeVSync
	}
	gpu, err := renderer.NewRenderer(backend, win, renderer.WithPresentMode(presentMode))
	if err != nil {
		return err
	}
	if win == nil {
		gpu.Resize(conf.Window.Width, conf.Window.Height)
	}

	sources := texture.MultiSource{generatedTextures()}
	if conf.Textures.Dir != "" {
		sources = append(texture.MultiSource{texture.DirSource{Root: conf.Textures.Dir}}, sources...)
	}
	loaderOpts := []texture.LoaderBuilderOption{texture.WithUploader(gpu)}
	if conf.Textures.DecodeWorkers > 0 {
		loaderOpts = append(loaderOpts, texture.WithDecodeWorkers(conf.Textures.DecodeWorkers))
	}
	textures := texture.NewLoader(sources, loaderOpts...)

	system, err := buildSolarSystem(conf, textures)
	if err != nil {
		return err
	}

	controller := camera.NewOrbitController(system.focusPosition(), system.focusRadius*4)
	cam := camera.NewCamera(
		camera.WithFov(conf.Derived.FovRadians),
		camera.WithController(controller),
	)
	if win != nil {
		camera.BindWindow(win, controller)
	}

	profilerOpts := []profiler.ProfilerBuilderOption{profiler.WithLogInterval(conf.Derived.LogInterval)}
	var csvFile *os.File
	if conf.Profiler.CSVPath != "" {
		csvFile, err = os.Create(conf.Profiler.CSVPath)
		if err != nil {
			return errors.New("creating profiler csv failed").
				WithTag("path", conf.Profiler.CSVPath).
				Wrap(err)
		}
		defer csvFile.Close()
		profilerOpts = append(profilerOpts, profiler.WithCSV(csvFile))
	}
	prof := profiler.NewProfiler(profilerOpts...)

	ambient := light.Spectrum(conf.Render.Ambient)
	opts := []engine.EngineBuilderOption{
		engine.WithUniverse(system.universe),
		engine.WithCamera(cam),
		engine.WithTextureLoader(textures),
		engine.WithTextureBudget(conf.Derived.TextureBudgetBytes, conf.Textures.KeepFrames),
		engine.WithUploadsPerFrame(conf.Textures.UploadsPerFrame),
		engine.WithGlare(universe.NewGlareSprite(textures.LoadTexture(glareTextureName, texture.Properties{AddressMode: texture.Clamp}))),
		engine.WithProfiler(prof),
		engine.WithProfiling(conf.Profiler.Enabled),
		engine.WithRenderFrameLimit(conf.Window.FrameLimit),
		engine.WithRendererOptions(
			universe.WithShadows(conf.Render.Shadows),
			universe.WithSizeCullPixels(conf.Render.SizeCullPixels),
			universe.WithSkyLayers(conf.Render.SkyLayers),
			universe.WithAmbientLight(ambient),
		),
	}
	if !conf.Render.DefaultSun {
		opts = append(opts, engine.WithRendererOptions(universe.WithDefaultSun(nil)))
	}
	if conf.Render.Shadows {
		opts = append(opts,
			engine.WithShadowMaps(conf.Render.ShadowMapSize, conf.Render.MaxShadowMaps),
			engine.WithOmniShadowMaps(conf.Render.OmniShadowMapSize, conf.Render.MaxOmniShadowMaps),
		)
	}
	if win != nil {
		opts = append(opts, engine.WithWindow(win))
	}

	e, err := engine.NewEngine(gpu, opts...)
	if err != nil {
		return err
	}
	e.SetTickCallback(func(float64) {
		controller.SetTarget(system.focusPosition())
	})

	if win == nil {
		if err := e.RunFrames(f.Frames, 1.0/60); err != nil {
			return err
		}
		logs.WithTag("frames", e.Frame()).
			WithTag("simulation_time", system.universe.Time()).
			Info("headless run finished")
	} else {
		go func() {
			<-ctx.Done()
			e.Quit()
		}()
		e.Run()
	}

	if conf.Profiler.SummaryPath != "" {
		out, err := os.Create(conf.Profiler.SummaryPath)
		if err != nil {
			return errors.New("creating profiler summary failed").
				WithTag("path", conf.Profiler.SummaryPath).
				Wrap(err)
		}
		defer out.Close()
		return prof.WriteSummary(out)
	}
	return nil
}
