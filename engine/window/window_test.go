package window

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWindowOptions(t *testing.T) {
	t.Run("WindowBuilderOption: options override the defaults", func(t *testing.T) {
		w := &engineWindow{minWidth: 320, minHeight: 200}
		for _, opt := range []WindowBuilderOption{
			WithTitle("orbit"),
			WithSize(800, 600),
			WithMinSize(640, 360),
			WithMaxSize(1920, 0),
		} {
			opt(w)
		}
		require.Equal(t, "orbit", w.title)
		require.Equal(t, 800, w.Width())
		require.Equal(t, 600, w.Height())
		require.Equal(t, 640, w.minWidth)
		require.Equal(t, 360, w.minHeight)
		require.Equal(t, 1920, w.maxWidth)
		require.Zero(t, w.maxHeight)
	})
}

func TestCursorDrag(t *testing.T) {
	t.Run("cursorMoved: deltas are reported only while dragging", func(t *testing.T) {
		w := &engineWindow{}
		var got [][2]float64
		w.SetDragCallback(func(dx, dy float64) {
			got = append(got, [2]float64{dx, dy})
		})

		w.cursorMoved(10, 10)
		require.Empty(t, got)

		w.dragging = true
		w.cursorMoved(15, 4)
		w.cursorMoved(15, 10)
		require.Equal(t, [][2]float64{{5, 6}, {0, -6}}, got)
	})
}
