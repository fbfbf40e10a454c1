package profiler

import (
	"io"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/gocarina/gocsv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/encoding/json"
)

// ErrTypeProfiler tags errors returned while writing profiler output.
const ErrTypeProfiler = "profiler"

var (
	frameSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "oxy_astro_frame_seconds",
		Help:    "The wall clock time spent producing each frame.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	residentTextureBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oxy_astro_resident_texture_bytes",
		Help: "The bytes of texture memory resident on the GPU.",
	})
)

// FrameRecord is one row of the per-frame CSV export.
type FrameRecord struct {
	Frame                int64   `csv:"frame" json:"frame"`
	SimulationTime       float64 `csv:"simulation_time" json:"simulation_time"`
	FrameSeconds         float64 `csv:"frame_seconds" json:"frame_seconds"`
	VisibleItems         int     `csv:"visible_items" json:"visible_items"`
	Spans                int     `csv:"spans" json:"spans"`
	VisibleLights        int     `csv:"visible_lights" json:"visible_lights"`
	ShadowMaps           int     `csv:"shadow_maps" json:"shadow_maps"`
	OmniShadowMaps       int     `csv:"omni_shadow_maps" json:"omni_shadow_maps"`
	Tiles                int     `csv:"tiles" json:"tiles"`
	ResidentTextureBytes uint64  `csv:"resident_texture_bytes" json:"resident_texture_bytes"`
}

// Summary aggregates every frame recorded since the profiler was created.
type Summary struct {
	Frames          int64   `json:"frames"`
	TotalSeconds    float64 `json:"total_seconds"`
	MeanFPS         float64 `json:"mean_fps"`
	MinFrameSeconds float64 `json:"min_frame_seconds"`
	MaxFrameSeconds float64 `json:"max_frame_seconds"`
	MaxSpans        int     `json:"max_spans"`
	MaxTiles        int     `json:"max_tiles"`
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval and, when a CSV writer is set, one row
// per recorded frame.
type Profiler struct {
	mu sync.Mutex

	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	csv           io.Writer
	headerWritten bool
	summary       Summary
}

// NewProfiler creates a new Profiler with the given options applied.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: a variadic list of ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	logs.WithTag("fps", math.Round(fps*100)/100).
		WithTag("heap_mb", math.Round(allocMB*100)/100).
		WithTag("alloc_rate_mb_s", math.Round(allocRateMB*100)/100).
		WithTag("gc", gcCount).
		WithTag("gc_last_pause_us", lastPauseUs).
		WithTag("gc_max_pause_us", maxPauseUs).
		WithTag("sys_mb", math.Round(sysMB*100)/100).
		Info("profile")

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Record adds one frame to the metrics, the summary and the CSV export.
//
// Parameters:
//   - rec: the frame's statistics
//
// Returns:
//   - error: error if the CSV row could not be written
func (p *Profiler) Record(rec FrameRecord) error {
	frameSeconds.Observe(rec.FrameSeconds)
	residentTextureBytes.Set(float64(rec.ResidentTextureBytes))

	p.mu.Lock()
	defer p.mu.Unlock()

	s := &p.summary
	if s.Frames == 0 {
		s.MinFrameSeconds = rec.FrameSeconds
	}
	s.Frames++
	s.TotalSeconds += rec.FrameSeconds
	s.MinFrameSeconds = min(s.MinFrameSeconds, rec.FrameSeconds)
	s.MaxFrameSeconds = max(s.MaxFrameSeconds, rec.FrameSeconds)
	s.MaxSpans = max(s.MaxSpans, rec.Spans)
	s.MaxTiles = max(s.MaxTiles, rec.Tiles)
	if s.TotalSeconds > 0 {
		s.MeanFPS = float64(s.Frames) / s.TotalSeconds
	}

	if p.csv == nil {
		return nil
	}
	records := []FrameRecord{rec}
	if !p.headerWritten {
		if err := gocsv.Marshal(records, p.csv); err != nil {
			return errors.New("writing frame record failed").WithType(ErrTypeProfiler).Wrap(err)
		}
		p.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, p.csv); err != nil {
		return errors.New("writing frame record failed").WithType(ErrTypeProfiler).Wrap(err)
	}
	return nil
}

// Summary returns the aggregate of every recorded frame.
func (p *Profiler) Summary() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summary
}

// WriteSummary encodes the summary as indented JSON.
//
// Parameters:
//   - w: the destination
//
// Returns:
//   - error: error if encoding or writing fails
func (p *Profiler) WriteSummary(w io.Writer) error {
	data, err := json.MarshalIndent(p.Summary(), "", "  ")
	if err != nil {
		return errors.New("encoding profiler summary failed").WithType(ErrTypeProfiler).Wrap(err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return errors.New("writing profiler summary failed").WithType(ErrTypeProfiler).Wrap(err)
	}
	return nil
}
