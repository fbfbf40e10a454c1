package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// waitResident pumps uploads until tex is resident.
func waitResident(t *testing.T, l Loader, tex *Texture) {
	t.Helper()
	require.Eventually(t, func() bool {
		l.ProcessUploads(0)
		return l.MakeResident(tex)
	}, 2*time.Second, 2*time.Millisecond)
}

func TestLoader(t *testing.T) {
	t.Run("LoadTexture: textures are cached by name and start unloaded", func(t *testing.T) {
		l := NewLoader(MemorySource{"a.png": encodePNG(t, 4, 4)})
		a := l.LoadTexture("a.png", Properties{AddressMode: Clamp})
		require.Same(t, a, l.LoadTexture("a.png", Properties{}))
		require.Same(t, a, l.Get("a.png"))
		require.Nil(t, l.Get("b.png"))
		require.Equal(t, NotLoaded, a.Status())
		require.Equal(t, Clamp, a.Properties().AddressMode)
		require.Zero(t, a.MemoryUsage())
	})

	t.Run("MakeResident: decoded pixels reach the uploader", func(t *testing.T) {
		b := renderer.NewRecordingBackend()
		l := NewLoader(MemorySource{"a.png": encodePNG(t, 8, 4)}, WithUploader(b), WithDecodeWorkers(2))
		tex := l.LoadTexture("a.png", Properties{})
		require.False(t, tex.MakeResident())
		waitResident(t, l, tex)

		data, ok := b.Texture(tex.ID())
		require.True(t, ok)
		require.Equal(t, uint32(8), data.Width)
		require.Len(t, data.Pixels, 8*4*4)
		w, h := tex.Size()
		require.Equal(t, [2]uint32{8, 4}, [2]uint32{w, h})
		require.Equal(t, uint64(128), l.TextureMemoryUsed())
		require.Equal(t, 1, l.Stats()[Resident])
	})

	t.Run("MakeResident: binding a material requests its textures", func(t *testing.T) {
		l := NewLoader(MemorySource{"a.png": encodePNG(t, 2, 2)})
		tex := l.LoadTexture("a.png", Properties{})
		rc := renderer.NewRenderContext(renderer.NewRecordingBackend())
		rc.BindMaterial(material.NewMaterial(material.WithBaseTexture(tex)))
		require.NotEqual(t, NotLoaded, tex.Status())
		require.Eventually(t, func() bool {
			l.ProcessUploads(0)
			return tex.IsResident()
		}, 2*time.Second, 2*time.Millisecond)
	})

	t.Run("MakeResident: missing images fail once and are not retried", func(t *testing.T) {
		l := NewLoader(MemorySource{})
		tex := l.LoadTexture("missing.png", Properties{})
		require.False(t, l.MakeResident(tex))
		require.Eventually(t, func() bool { return tex.Status() == LoadFailed }, 2*time.Second, 2*time.Millisecond)
		require.False(t, l.MakeResident(tex))
		require.Equal(t, LoadFailed, tex.Status())
		require.Zero(t, l.ProcessUploads(0))
	})

	t.Run("MakeResident: undecodable data fails", func(t *testing.T) {
		l := NewLoader(MemorySource{"junk.png": []byte("not an image")})
		tex := l.LoadTexture("junk.png", Properties{})
		l.MakeResident(tex)
		require.Eventually(t, func() bool { return tex.Status() == LoadFailed }, 2*time.Second, 2*time.Millisecond)
	})

	t.Run("ProcessUploads: max bounds the uploads per call", func(t *testing.T) {
		l := NewLoader(MemorySource{"a.png": encodePNG(t, 2, 2), "b.png": encodePNG(t, 2, 2)})
		a, b := l.LoadTexture("a.png", Properties{}), l.LoadTexture("b.png", Properties{})
		l.MakeResident(a)
		l.MakeResident(b)
		require.Eventually(t, func() bool {
			return a.Status() == Decoded && b.Status() == Decoded
		}, 2*time.Second, 2*time.Millisecond)

		require.Equal(t, 1, l.ProcessUploads(1))
		require.Equal(t, 1, l.ProcessUploads(1))
		require.Zero(t, l.ProcessUploads(1))
		require.True(t, a.IsResident())
		require.True(t, b.IsResident())
	})

	t.Run("ProcessUploads: concurrent decodes all become resident", func(t *testing.T) {
		const count = 600
		src := MemorySource{}
		img := encodePNG(t, 4, 4)
		for i := 0; i < count; i++ {
			src[fmt.Sprintf("t%d.png", i)] = img
		}
		l := NewLoader(src, WithDecodeWorkers(8))
		textures := make([]*Texture, count)
		for i := range textures {
			textures[i] = l.LoadTexture(fmt.Sprintf("t%d.png", i), Properties{})
			l.MakeResident(textures[i])
		}

		require.Eventually(t, func() bool {
			l.ProcessUploads(0)
			return l.Stats()[Resident] == count
		}, 10*time.Second, time.Millisecond)

		for _, tex := range textures {
			require.True(t, tex.MakeResident(), tex.Name())
			require.Equal(t, uint64(64), tex.MemoryUsage())
		}
		require.Equal(t, uint64(count*64), l.TextureMemoryUsed())
	})

	t.Run("EvictTextures: least recently used textures are released first", func(t *testing.T) {
		b := renderer.NewRecordingBackend()
		src := MemorySource{"old.png": encodePNG(t, 4, 4), "new.png": encodePNG(t, 4, 4)}
		l := NewLoader(src, WithUploader(b))
		old, fresh := l.LoadTexture("old.png", Properties{}), l.LoadTexture("new.png", Properties{})
		waitResident(t, l, old)
		waitResident(t, l, fresh)
		require.Equal(t, uint64(128), l.TextureMemoryUsed())

		for i := 0; i < 5; i++ {
			l.IncrementFrameCount()
		}
		require.True(t, l.MakeResident(fresh))
		require.Equal(t, int64(5), fresh.LastUsed())

		require.Equal(t, uint64(64), l.EvictTextures(64, 2))
		require.Equal(t, NotLoaded, old.Status())
		require.True(t, fresh.IsResident())
		_, ok := b.Texture(old.ID())
		require.False(t, ok)

		// Recently used textures survive even above the budget.
		require.Equal(t, uint64(64), l.EvictTextures(0, 2))
		require.True(t, fresh.IsResident())

		// An evicted texture loads again on its next use.
		waitResident(t, l, old)
	})

	t.Run("EvictTextures: nothing happens under budget", func(t *testing.T) {
		l := NewLoader(MemorySource{"a.png": encodePNG(t, 4, 4)})
		tex := l.LoadTexture("a.png", Properties{})
		waitResident(t, l, tex)
		l.IncrementFrameCount()
		l.IncrementFrameCount()
		require.Equal(t, uint64(64), l.EvictTextures(1024, 0))
		require.True(t, tex.IsResident())
	})
}

func TestSource(t *testing.T) {
	t.Run("DirSource: files under the root are found", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "level0"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "level0", "tx_0_0.png"), encodePNG(t, 2, 2), 0o644))

		src, err := DirSource{Root: dir}.Open("level0/tx_0_0.png")
		require.NoError(t, err)
		data, err := src.Decode()
		require.NoError(t, err)
		require.Equal(t, uint32(2), data.Height)
	})

	t.Run("DirSource: missing files and directories are errors", func(t *testing.T) {
		dir := t.TempDir()
		_, err := DirSource{Root: dir}.Open("nope.png")
		require.Error(t, err)
		_, err = DirSource{Root: filepath.Dir(dir)}.Open(filepath.Base(dir))
		require.Error(t, err)
	})

	t.Run("MemorySource: empty entries are missing", func(t *testing.T) {
		_, err := MemorySource{"a": nil}.Open("a")
		require.Error(t, err)
	})

	t.Run("MultiSource: the first source holding the image wins", func(t *testing.T) {
		first := MemorySource{"a.png": []byte{1}}
		second := MemorySource{"a.png": []byte{2}, "b.png": []byte{3}}
		src, err := MultiSource{first, second}.Open("b.png")
		require.NoError(t, err)
		require.Equal(t, []byte{3}, src.Data)
		src, err = MultiSource{first, second}.Open("a.png")
		require.NoError(t, err)
		require.Equal(t, []byte{1}, src.Data)
		_, err = MultiSource{first}.Open("c.png")
		require.Error(t, err)
		_, err = MultiSource{}.Open("a.png")
		require.Error(t, err)
	})

	t.Run("Status: names", func(t *testing.T) {
		require.Equal(t, "resident", Resident.String())
		require.Equal(t, "load_failed", LoadFailed.String())
		require.Equal(t, "unknown", Status(42).String())
	})
}

func TestTiledMap(t *testing.T) {
	coarseOnly := func(t *testing.T) MemorySource {
		return MemorySource{
			"earth/level0/tx_0_0.png": encodePNG(t, 4, 4),
			"earth/level0/tx_1_0.png": encodePNG(t, 4, 4),
		}
	}

	t.Run("Tile: an exact resident tile maps its full area", func(t *testing.T) {
		l := NewLoader(coarseOnly(t))
		m := NewTiledMap(l, "earth/", 1, WithTileSize(256))
		require.Equal(t, 256, m.TileSize())
		require.Equal(t, "earth/level0/tx_1_0.png", m.TileName(0, 1, 0))

		var r = m.Tile(0, 1, 0)
		require.Nil(t, r.Texture)
		require.Eventually(t, func() bool {
			l.ProcessUploads(0)
			r = m.Tile(0, 1, 0)
			return r.Texture != nil
		}, 2*time.Second, 2*time.Millisecond)
		require.Equal(t, l.Get("earth/level0/tx_1_0.png").ID(), r.Texture.ID())
		require.Equal(t, [4]float64{0, 0, 1, 1}, [4]float64{r.U0, r.V0, r.U1, r.V1})
	})

	t.Run("Tile: a missing tile falls back to the matching quarter of its parent", func(t *testing.T) {
		l := NewLoader(coarseOnly(t))
		m := NewTiledMap(l, "earth/", 2)

		var r = m.Tile(1, 3, 1)
		require.Eventually(t, func() bool {
			l.ProcessUploads(0)
			r = m.Tile(1, 3, 1)
			return r.Texture != nil
		}, 2*time.Second, 2*time.Millisecond)
		require.Equal(t, l.Get("earth/level0/tx_1_0.png").ID(), r.Texture.ID())
		require.Equal(t, [4]float64{0.5, 0.5, 1, 1}, [4]float64{r.U0, r.V0, r.U1, r.V1})

		require.Eventually(t, func() bool {
			return m.tile(1, 3, 1) == nil
		}, 2*time.Second, 2*time.Millisecond)
	})

	t.Run("Tile: borders are excluded from the mapped area", func(t *testing.T) {
		l := NewLoader(coarseOnly(t))
		m := NewTiledMap(l, "earth/", 1, WithTileBorder(0.125))
		var r = m.Tile(0, 0, 0)
		require.Eventually(t, func() bool {
			l.ProcessUploads(0)
			r = m.Tile(0, 0, 0)
			return r.Texture != nil
		}, 2*time.Second, 2*time.Millisecond)
		require.Equal(t, [4]float64{0.125, 0.125, 0.875, 0.875}, [4]float64{r.U0, r.V0, r.U1, r.V1})
	})

	t.Run("Tile: addresses finer than the pyramid use the finest level", func(t *testing.T) {
		l := NewLoader(coarseOnly(t))
		m := NewTiledMap(l, "earth/", 1)
		var r = m.Tile(2, 6, 1)
		require.Eventually(t, func() bool {
			l.ProcessUploads(0)
			r = m.Tile(2, 6, 1)
			return r.Texture != nil
		}, 2*time.Second, 2*time.Millisecond)
		require.Equal(t, l.Get("earth/level0/tx_1_0.png").ID(), r.Texture.ID())
	})

	t.Run("Tile: invalid addresses have no texture", func(t *testing.T) {
		m := NewTiledMap(NewLoader(coarseOnly(t)), "earth/", 3)
		require.Nil(t, m.Tile(1, 4, 0).Texture)
		require.Nil(t, m.Tile(1, 0, 2).Texture)
	})
}
