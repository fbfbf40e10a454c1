package texture

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-astro/engine/quadtree"
)

const (
	// DefaultTileSize is the texel width of one map tile.
	DefaultTileSize = 512

	// DefaultTilePattern names tiles by level, column and row.
	DefaultTilePattern = "level%d/tx_%d_%d.png"
)

// TiledMap is a quadtree.TiledMap backed by one texture per tile, loaded on demand. A tile that
// is not resident yet is replaced by the matching part of its nearest resident ancestor, so the
// map sharpens as finer tiles arrive.
type TiledMap struct {
	loader  Loader
	prefix  string
	pattern string
	levels  uint32
	size    int
	border  float64
	props   Properties

	mu    sync.Mutex
	tiles map[uint64]*Texture
}

var _ quadtree.TiledMap = &TiledMap{}

// TiledMapOption configures a TiledMap during construction.
type TiledMapOption func(*TiledMap)

// WithTileSize sets the texel width of one tile. Values below 1 are ignored.
func WithTileSize(size int) TiledMapOption {
	return func(m *TiledMap) {
		if size >= 1 {
			m.size = size
		}
	}
}

// WithTileBorder sets the fraction of each tile edge that duplicates its neighbours and is not
// mapped. The value is clamped to [0, 0.25].
func WithTileBorder(fraction float64) TiledMapOption {
	return func(m *TiledMap) {
		m.border = min(max(fraction, 0), 0.25)
	}
}

// WithTilePattern sets the fmt pattern naming a tile from its level, column and row.
func WithTilePattern(pattern string) TiledMapOption {
	return func(m *TiledMap) {
		m.pattern = pattern
	}
}

// NewTiledMap creates a map whose tiles are named prefix + pattern, with levels 0 through
// levels-1.
//
// Parameters:
//   - l: the loader that owns the tile textures
//   - prefix: the directory or name prefix of every tile
//   - levels: the number of levels in the pyramid, at least 1
//   - options: a variadic list of TiledMapOption functions
//
// Returns:
//   - *TiledMap: the map
func NewTiledMap(l Loader, prefix string, levels uint32, options ...TiledMapOption) *TiledMap {
	m := &TiledMap{
		loader:  l,
		prefix:  prefix,
		pattern: DefaultTilePattern,
		levels:  max(levels, 1),
		size:    DefaultTileSize,
		props:   Properties{AddressMode: Clamp},
		tiles:   make(map[uint64]*Texture),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

func (m *TiledMap) TileSize() int {
	return m.size
}

// Levels returns the number of levels in the pyramid.
func (m *TiledMap) Levels() uint32 {
	return m.levels
}

// TileName returns the resource name of a tile.
func (m *TiledMap) TileName(level, column, row uint32) string {
	return m.prefix + fmt.Sprintf(m.pattern, level, column, row)
}

// Tile returns the texture covering a map address and the subrectangle of it that maps onto the
// address. Addresses finer than the pyramid are served by the finest level. Requesting a tile
// starts loading it along with every ancestor walked past. When nothing on the path is resident
// the returned texture is nil.
func (m *TiledMap) Tile(level, column, row uint32) quadtree.TextureSubrect {
	if level >= m.levels {
		shift := level - m.levels + 1
		level, column, row = m.levels-1, column>>shift, row>>shift
	}
	if !validAddress(level, column, row) {
		return quadtree.TextureSubrect{U1: 1, V1: 1}
	}

	for l := int(level); l >= 0; l-- {
		shift := level - uint32(l)
		tex := m.tile(uint32(l), column>>shift, row>>shift)
		if tex == nil || !m.loader.MakeResident(tex) {
			continue
		}
		return m.subrect(tex, shift, column, row)
	}
	return quadtree.TextureSubrect{U0: m.border, V0: m.border, U1: 1 - m.border, V1: 1 - m.border}
}

func (m *TiledMap) subrect(tex *Texture, shift, column, row uint32) quadtree.TextureSubrect {
	extent := (1 - 2*m.border) / float64(uint64(1)<<shift)
	mask := uint32(1)<<shift - 1
	u0 := m.border + extent*float64(column&mask)
	v0 := m.border + extent*float64(row&mask)
	return quadtree.TextureSubrect{Texture: tex, U0: u0, V0: v0, U1: u0 + extent, V1: v0 + extent}
}

// tile returns the cached texture for an address. Tiles whose load failed are remembered as
// missing and answer nil from then on.
func (m *TiledMap) tile(level, column, row uint32) *Texture {
	id := tileID(level, column, row)

	m.mu.Lock()
	defer m.mu.Unlock()

	tex, ok := m.tiles[id]
	if !ok {
		tex = m.loader.LoadTexture(m.TileName(level, column, row), m.props)
		m.tiles[id] = tex
	}
	if tex != nil && tex.Status() == LoadFailed {
		m.tiles[id] = nil
		return nil
	}
	return tex
}

func tileID(level, column, row uint32) uint64 {
	return uint64(level)<<48 | uint64(column)<<24 | uint64(row)
}

func validAddress(level, column, row uint32) bool {
	if level > 23 {
		return false
	}
	return column < uint32(2)<<level && row < uint32(1)<<level
}
