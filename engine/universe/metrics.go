package universe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusLabel = "status"
	kindLabel   = "kind"

	shadowKindDirectional = "directional"
	shadowKindOmni        = "omni"
)

var (
	depthSpans = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oxy_astro_depth_spans",
		Help: "The number of depth buffer spans drawn by the last view.",
	})

	visibleItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oxy_astro_visible_items",
		Help: "The number of items that survived size culling in the last view.",
	})

	quadtreeTiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oxy_astro_quadtree_tiles",
		Help: "The number of quadtree tiles built by the globes drawn in the last view.",
	})

	renderStatuses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oxy_astro_render_status_total",
		Help: "The statuses returned by universe renderer operations.",
	}, []string{
		statusLabel,
	})

	shadowMapsRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oxy_astro_shadow_maps_rendered_total",
		Help: "The number of shadow maps and omni shadow cube maps rendered.",
	}, []string{
		kindLabel,
	})
)

func instrumentStatus(s RenderStatus) RenderStatus {
	renderStatuses.With(prometheus.Labels{
		statusLabel: s.String(),
	}).Inc()
	return s
}

func instrumentShadowMap(kind string) {
	shadowMapsRendered.With(prometheus.Labels{
		kindLabel: kind,
	}).Inc()
}

func instrumentView(stats FrameStats) {
	depthSpans.Set(float64(stats.Spans))
	visibleItems.Set(float64(stats.VisibleItems))
	quadtreeTiles.Set(float64(stats.Tiles))
}
