package profiler

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func TestProfiler(t *testing.T) {
	t.Run("Tick: logs once the interval has elapsed", func(t *testing.T) {
		p := NewProfiler(WithLogInterval(time.Hour))
		require.False(t, p.Tick())

		p = NewProfiler(WithLogInterval(time.Nanosecond))
		time.Sleep(time.Millisecond)
		require.True(t, p.Tick())
	})

	t.Run("Record: rows stream to CSV with a single header", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewProfiler(WithCSV(&buf))
		require.NoError(t, p.Record(FrameRecord{Frame: 1, FrameSeconds: 0.02, Spans: 3, Tiles: 40}))
		require.NoError(t, p.Record(FrameRecord{Frame: 2, FrameSeconds: 0.01, Spans: 2, Tiles: 50}))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 3)
		require.True(t, strings.HasPrefix(lines[0], "frame,simulation_time,frame_seconds"))
		require.True(t, strings.HasPrefix(lines[1], "1,"))
		require.True(t, strings.HasPrefix(lines[2], "2,"))
	})

	t.Run("Summary: aggregates recorded frames", func(t *testing.T) {
		p := NewProfiler()
		require.NoError(t, p.Record(FrameRecord{FrameSeconds: 0.02, Spans: 3, Tiles: 40}))
		require.NoError(t, p.Record(FrameRecord{FrameSeconds: 0.03, Spans: 5, Tiles: 10}))

		s := p.Summary()
		require.Equal(t, int64(2), s.Frames)
		require.InDelta(t, 0.05, s.TotalSeconds, 1e-12)
		require.InDelta(t, 40, s.MeanFPS, 1e-9)
		require.Equal(t, 0.02, s.MinFrameSeconds)
		require.Equal(t, 0.03, s.MaxFrameSeconds)
		require.Equal(t, 5, s.MaxSpans)
		require.Equal(t, 40, s.MaxTiles)
	})

	t.Run("WriteSummary: encodes JSON", func(t *testing.T) {
		p := NewProfiler()
		require.NoError(t, p.Record(FrameRecord{FrameSeconds: 0.5}))

		var buf bytes.Buffer
		require.NoError(t, p.WriteSummary(&buf))
		var s Summary
		require.NoError(t, json.Unmarshal(buf.Bytes(), &s))
		require.Equal(t, p.Summary(), s)
	})
}
