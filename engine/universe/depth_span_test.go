package universe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func itemAt(near, far float64) VisibleItem {
	return VisibleItem{NearDistance: near, FarDistance: far}
}

func populated(spans []DepthBufferSpan) []DepthBufferSpan {
	var out []DepthBufferSpan
	for _, s := range spans {
		if !s.IsEmpty() {
			out = append(out, s)
		}
	}
	return out
}

// requireCovered checks that every item lies inside the span that owns it.
func requireCovered(t *testing.T, items []VisibleItem, spans []DepthBufferSpan) {
	t.Helper()
	owned := 0
	for _, s := range spans {
		for i := 0; i < s.ItemCount; i++ {
			item := items[s.BackItemIndex-i]
			require.LessOrEqual(t, s.NearDistance, item.NearDistance)
			require.GreaterOrEqual(t, s.FarDistance, item.FarDistance)
			owned++
		}
	}
	require.Equal(t, len(items), owned)
}

func TestSplitDepthBuffer(t *testing.T) {
	t.Run("SplitDepthBuffer: widely separated items get their own spans", func(t *testing.T) {
		items := []VisibleItem{itemAt(5, 10), itemAt(5e5, 1e6), itemAt(5e9, 1e10)}
		spans := SplitDepthBuffer(items, nil)

		require.Len(t, spans, 5)
		require.Len(t, populated(spans), 3)
		require.Equal(t, 1e10, spans[0].FarDistance)
		require.True(t, spans[1].IsEmpty())
		require.Equal(t, 1e6, spans[1].NearDistance)
		require.Equal(t, 5e9, spans[1].FarDistance)
		requireCovered(t, items, spans)

		merged := CoalesceDepthBuffer(spans)
		require.GreaterOrEqual(t, len(populated(merged)), 3)
		requireCovered(t, items, merged)
	})

	t.Run("SplitDepthBuffer: overlapping items share one span", func(t *testing.T) {
		items := []VisibleItem{itemAt(5, 10), itemAt(5.5, 11), itemAt(6, 12)}
		spans := SplitDepthBuffer(items, nil)

		require.Equal(t, []DepthBufferSpan{{NearDistance: 5, FarDistance: 12, BackItemIndex: 2, ItemCount: 3}}, spans)
	})

	t.Run("CoalesceDepthBuffer: nearby disjoint items end up in one span", func(t *testing.T) {
		items := []VisibleItem{itemAt(9.5, 10), itemAt(10.5, 11), itemAt(11.5, 12)}
		spans := SplitDepthBuffer(items, nil)
		require.Len(t, spans, 5)
		require.Len(t, populated(spans), 3)

		merged := CoalesceDepthBuffer(spans)
		require.Equal(t, []DepthBufferSpan{{NearDistance: 9.5, FarDistance: 12, BackItemIndex: 2, ItemCount: 3}}, merged)
		requireCovered(t, items, merged)
	})

	t.Run("SplitDepthBuffer: no items gives no spans", func(t *testing.T) {
		require.Empty(t, SplitDepthBuffer(nil, make([]DepthBufferSpan, 4)))
	})

	t.Run("SplitDepthBuffer: spans never overlap", func(t *testing.T) {
		items := []VisibleItem{itemAt(1, 2), itemAt(1.5, 3), itemAt(10, 20), itemAt(25, 40), itemAt(30, 50), itemAt(100, 200)}
		spans := SplitDepthBuffer(items, nil)
		for i := 1; i < len(spans); i++ {
			require.LessOrEqual(t, spans[i].FarDistance, spans[i-1].NearDistance)
		}
		requireCovered(t, items, spans)
	})
}

func TestCoalesceDepthBuffer(t *testing.T) {
	t.Run("CoalesceDepthBuffer: close spans merge and absorb gaps", func(t *testing.T) {
		spans := []DepthBufferSpan{
			{NearDistance: 50, FarDistance: 100, BackItemIndex: 3, ItemCount: 1},
			{NearDistance: 1, FarDistance: 50, BackItemIndex: 2},
			{NearDistance: 0.5, FarDistance: 1, BackItemIndex: 2, ItemCount: 2},
		}
		merged := CoalesceDepthBuffer(spans)
		require.Equal(t, []DepthBufferSpan{{NearDistance: 0.5, FarDistance: 100, BackItemIndex: 3, ItemCount: 3}}, merged)
	})

	t.Run("CoalesceDepthBuffer: a deep run stops merging", func(t *testing.T) {
		spans := []DepthBufferSpan{
			{NearDistance: 50, FarDistance: 100, BackItemIndex: 1, ItemCount: 1},
			{NearDistance: 0.1, FarDistance: 0.15, BackItemIndex: 0, ItemCount: 1},
		}
		require.Equal(t, spans, CoalesceDepthBuffer(spans))
	})
}

func TestExpandEmptySpans(t *testing.T) {
	t.Run("ExpandEmptySpans: the farthest span always grows", func(t *testing.T) {
		spans := []DepthBufferSpan{{NearDistance: 100, FarDistance: 200, ItemCount: 1}}
		ExpandEmptySpans(spans)
		require.InDelta(t, 202, spans[0].FarDistance, 1e-9)
	})

	t.Run("ExpandEmptySpans: populated spans borrow from the gap behind", func(t *testing.T) {
		spans := []DepthBufferSpan{
			{NearDistance: 5e9, FarDistance: 1e10, ItemCount: 1},
			{NearDistance: 1e6, FarDistance: 5e9},
			{NearDistance: 5e5, FarDistance: 1e6, ItemCount: 1},
		}
		ExpandEmptySpans(spans)
		require.InDelta(t, 1.01e10, spans[0].FarDistance, 1)
		require.InDelta(t, 1.01e6, spans[2].FarDistance, 1e-6)
		require.Equal(t, spans[2].FarDistance, spans[1].NearDistance)
	})

	t.Run("ExpandEmptySpans: a narrow gap is left alone", func(t *testing.T) {
		spans := []DepthBufferSpan{
			{NearDistance: 100.5, FarDistance: 200, ItemCount: 1},
			{NearDistance: 100, FarDistance: 100.5},
			{NearDistance: 50, FarDistance: 100, ItemCount: 1},
		}
		ExpandEmptySpans(spans)
		require.Equal(t, 100.0, spans[2].FarDistance)
		require.Equal(t, 100.0, spans[1].NearDistance)
	})
}

func TestAddSplittableSpans(t *testing.T) {
	requireChained := func(t *testing.T, spans []DepthBufferSpan, near float64) {
		t.Helper()
		for i, s := range spans {
			require.Less(t, s.NearDistance, s.FarDistance)
			require.LessOrEqual(t, s.FarDistance/s.NearDistance, MaxFarNearRatio*(1+1e-9))
			if i > 0 {
				require.Equal(t, spans[i-1].NearDistance, s.FarDistance)
			}
		}
		require.Equal(t, near, spans[len(spans)-1].NearDistance)
	}

	t.Run("AddSplittableSpans: splittable items alone fill the view depth", func(t *testing.T) {
		spans := AddSplittableSpans(nil, []VisibleItem{itemAt(1, 1e8)}, MinimumNearPlaneDistance, 1e12)
		require.NotEmpty(t, spans)
		require.Equal(t, 1e12, spans[1].FarDistance)
		require.Equal(t, 1e16, spans[0].FarDistance)
		requireChained(t, spans, MinimumNearPlaneDistance)
	})

	t.Run("AddSplittableSpans: a span reaches out to the farthest item", func(t *testing.T) {
		spans := []DepthBufferSpan{{NearDistance: 5, FarDistance: 10, BackItemIndex: 0, ItemCount: 1}}
		splittable := []VisibleItem{itemAt(2, 50), itemAt(3, 1000)}
		spans = AddSplittableSpans(spans, splittable, 1, 1e6)

		require.Equal(t, []DepthBufferSpan{
			{NearDistance: 1000, FarDistance: 1e7},
			{NearDistance: 10, FarDistance: 1000},
			{NearDistance: 5, FarDistance: 10, BackItemIndex: 0, ItemCount: 1},
			{NearDistance: 1, FarDistance: 5},
		}, spans)
		requireChained(t, spans, 1)
	})

	t.Run("AddSplittableSpans: the near plane never drops below the minimum", func(t *testing.T) {
		spans := AddSplittableSpans(nil, []VisibleItem{itemAt(0, 1)}, 0, 10)
		requireChained(t, spans, MinimumNearPlaneDistance)
	})

	t.Run("AddSplittableSpans: nothing is added without splittable items", func(t *testing.T) {
		spans := []DepthBufferSpan{{NearDistance: 5, FarDistance: 10, ItemCount: 1}}
		require.Equal(t, spans, AddSplittableSpans(spans, nil, 1, 100))
	})
}
