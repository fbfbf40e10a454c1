package universe

import (
	"math"
	"sort"

	"github.com/Carmen-Shannon/oxy-astro/engine/geometry"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// MinimumNearPlaneDistance is the smallest near distance any span may reach.
	MinimumNearPlaneDistance = 1.0e-5

	// MaximumFarPlaneDistance is the far distance of the projection RenderView builds.
	MaximumFarPlaneDistance = 1.0e12

	// MinimumNearFarRatio bounds how close the near plane may come to an item that preserves
	// depth precision, as a fraction of its diameter.
	MinimumNearFarRatio = 0.001

	// PreferredNearFarRatio is the near/far ratio at or above which adjacent spans are merged.
	PreferredNearFarRatio = 0.002

	// MaxFarNearRatio is the largest far/near ratio of a span added to hold splittable items.
	MaxFarNearRatio = 1.0e4

	// SpanExpansion pushes the far plane of a populated span into the empty span behind it.
	SpanExpansion = 1.01

	// FarPlaneInflation keeps items whose far edge lies exactly on the span's far plane.
	FarPlaneInflation = 1 + 1.0e-6
)

// VisibleItem is an entity that survived size culling for the current view.
type VisibleItem struct {
	Geometry               geometry.Geometry
	Position               r3.Vec
	CameraRelativePosition r3.Vec
	Orientation            quat.Number
	BoundingRadius         float64
	NearDistance           float64
	FarDistance            float64
	OutsideFrustum         bool
}

// DepthBufferSpan is a slice of view depth drawn with its own near and far planes. Its items are
// the ItemCount entries of the sorted visible list ending at BackItemIndex.
type DepthBufferSpan struct {
	NearDistance  float64
	FarDistance   float64
	BackItemIndex int
	ItemCount     int
}

// IsEmpty reports whether the span holds no items.
func (s DepthBufferSpan) IsEmpty() bool {
	return s.ItemCount == 0
}

// sortByFarDistance orders items front to back by their far distance.
func sortByFarDistance(items []VisibleItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].FarDistance < items[j].FarDistance
	})
}

// SplitDepthBuffer partitions items sorted by ascending far distance into spans. Walking from
// the farthest item forward, an item overlapping the current span joins it; a disjoint item
// closes the span, records the gap as an empty span and opens a new one.
//
// Parameters:
//   - items: the visible items sorted by ascending far distance
//   - spans: a buffer to reuse, may be nil
//
// Returns:
//   - []DepthBufferSpan: the spans ordered far to near
func SplitDepthBuffer(items []VisibleItem, spans []DepthBufferSpan) []DepthBufferSpan {
	spans = spans[:0]
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		if len(spans) == 0 {
			spans = append(spans, DepthBufferSpan{
				NearDistance:  item.NearDistance,
				FarDistance:   item.FarDistance,
				BackItemIndex: i,
				ItemCount:     1,
			})
			continue
		}

		cur := &spans[len(spans)-1]
		if item.FarDistance < cur.NearDistance {
			gap := DepthBufferSpan{
				NearDistance:  item.FarDistance,
				FarDistance:   cur.NearDistance,
				BackItemIndex: i,
			}
			spans = append(spans, gap, DepthBufferSpan{
				NearDistance:  item.NearDistance,
				FarDistance:   item.FarDistance,
				BackItemIndex: i,
				ItemCount:     1,
			})
			continue
		}

		cur.ItemCount++
		cur.NearDistance = math.Min(cur.NearDistance, item.NearDistance)
	}
	return spans
}

// CoalesceDepthBuffer merges runs of adjacent spans whose combined near/far ratio stays at or
// above PreferredNearFarRatio. Empty spans caught in a run are absorbed.
//
// Parameters:
//   - spans: the spans ordered far to near
//
// Returns:
//   - []DepthBufferSpan: the merged spans ordered far to near
func CoalesceDepthBuffer(spans []DepthBufferSpan) []DepthBufferSpan {
	merged := make([]DepthBufferSpan, 0, len(spans))
	for i := 0; i < len(spans); {
		far := spans[i].FarDistance
		count := spans[i].ItemCount
		j := i
		for j+1 < len(spans) && spans[j+1].NearDistance/far >= PreferredNearFarRatio {
			j++
			count += spans[j].ItemCount
		}
		merged = append(merged, DepthBufferSpan{
			NearDistance:  spans[j].NearDistance,
			FarDistance:   far,
			BackItemIndex: spans[i].BackItemIndex,
			ItemCount:     count,
		})
		i = j + 1
	}
	return merged
}

// ExpandEmptySpans pushes the far plane of every populated span slightly back, borrowing the
// room from an empty span behind it when there is one. The farthest span always grows.
//
// Parameters:
//   - spans: the spans ordered far to near, modified in place
func ExpandEmptySpans(spans []DepthBufferSpan) {
	for i := range spans {
		if spans[i].IsEmpty() {
			continue
		}
		if i == 0 {
			spans[i].FarDistance *= SpanExpansion
			continue
		}
		behind := &spans[i-1]
		if !behind.IsEmpty() {
			continue
		}
		newFar := spans[i].FarDistance * SpanExpansion
		if newFar < behind.FarDistance {
			spans[i].FarDistance = newFar
			behind.NearDistance = newFar
		}
	}
}

// AddSplittableSpans extends the span list so that items drawn into every span they overlap are
// never clipped: a span reaching out to the farthest splittable item, a chain of spans down to
// the projection's near plane, and one more span behind everything. Each added span keeps a
// far/near ratio of at most MaxFarNearRatio.
//
// Parameters:
//   - spans: the merged spans ordered far to near
//   - splittable: the splittable items sorted by ascending far distance
//   - projectionNear: the near distance of the view projection
//   - projectionFar: the far distance of the view projection
//
// Returns:
//   - []DepthBufferSpan: the extended spans, still ordered far to near
func AddSplittableSpans(spans []DepthBufferSpan, splittable []VisibleItem, projectionNear, projectionFar float64) []DepthBufferSpan {
	if len(splittable) == 0 {
		return spans
	}
	near := math.Max(projectionNear, MinimumNearPlaneDistance)
	furthest := math.Min(splittable[len(splittable)-1].FarDistance, projectionFar)

	if len(spans) == 0 {
		spans = append(spans, DepthBufferSpan{
			NearDistance: math.Max(near, projectionFar/MaxFarNearRatio),
			FarDistance:  projectionFar,
		})
	} else if furthest > spans[0].FarDistance {
		spans = prependSpan(spans, DepthBufferSpan{
			NearDistance: spans[0].FarDistance,
			FarDistance:  furthest,
		})
	}

	for spans[len(spans)-1].NearDistance > near {
		far := spans[len(spans)-1].NearDistance
		spans = append(spans, DepthBufferSpan{
			NearDistance: math.Max(near, far/MaxFarNearRatio),
			FarDistance:  far,
		})
	}

	back := spans[0].FarDistance
	return prependSpan(spans, DepthBufferSpan{
		NearDistance: back,
		FarDistance:  back * MaxFarNearRatio,
	})
}

func prependSpan(spans []DepthBufferSpan, s DepthBufferSpan) []DepthBufferSpan {
	spans = append(spans, DepthBufferSpan{})
	copy(spans[1:], spans)
	spans[0] = s
	return spans
}
