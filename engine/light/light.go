package light

// LightType identifies the kind of light source.
type LightType int

const (
	// Sun is a distant light treated as directional by receivers. It is never culled and it is
	// always the first light considered for directional shadows.
	Sun LightType = iota

	// PointLight emits in all directions from its entity's position. It only affects objects
	// within its range and is culled when that range is smaller than a pixel or outside the view.
	PointLight
)

func (t LightType) String() string {
	switch t {
	case Sun:
		return "sun"
	case PointLight:
		return "point"
	default:
		return "unknown"
	}
}

// Spectrum is a linear RGB color used for emitted and ambient light.
type Spectrum [3]float32

// Black is the spectrum of no light.
var Black = Spectrum{}

// White is the spectrum of unit white light.
var White = Spectrum{1, 1, 1}

// Scaled returns the spectrum multiplied by f.
//
// Parameters:
//   - f: the scale factor
//
// Returns:
//   - Spectrum: the scaled spectrum
func (s Spectrum) Scaled(f float32) Spectrum {
	return Spectrum{s[0] * f, s[1] * f, s[2] * f}
}

// lightSourceImpl is the implementation of the LightSource interface.
type lightSourceImpl struct {
	lightType    LightType
	spectrum     Spectrum
	luminosity   float64
	lightRange   float64
	shadowCaster bool
}

// LightSource is the light emitted by an entity. It has no position of its own: the position
// comes from the entity carrying it, and the apparent radius from the entity's geometry.
//
// A LightSource is read once per view set when the renderer builds its light list, so
// changes made between BeginViewSet and EndViewSet only apply to the next view set.
type LightSource interface {
	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: Sun or PointLight
	Type() LightType

	// Spectrum returns the color of the emitted light.
	//
	// Returns:
	//   - Spectrum: the RGB color
	Spectrum() Spectrum

	// Luminosity returns the total power of the light in solar units. It drives glare brightness.
	//
	// Returns:
	//   - float64: the luminosity
	Luminosity() float64

	// Range returns the distance in kilometers beyond which the light has no effect. Suns ignore it.
	//
	// Returns:
	//   - float64: the range
	Range() float64

	// IsShadowCaster reports whether objects lit by this light cast shadows from it.
	//
	// Returns:
	//   - bool: true if the light casts shadows
	IsShadowCaster() bool

	SetSpectrum(s Spectrum)
	SetLuminosity(luminosity float64)
	SetRange(lightRange float64)
	SetShadowCaster(castsShadows bool)
}

var _ LightSource = &lightSourceImpl{}

// NewLightSource creates a new LightSource of the given type with white light, unit
// luminosity and a range of one kilometer, then applies the options.
//
// Parameters:
//   - lightType: Sun or PointLight
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - LightSource: a new LightSource instance
func NewLightSource(lightType LightType, opts ...LightBuilderOption) LightSource {
	l := &lightSourceImpl{
		lightType:  lightType,
		spectrum:   White,
		luminosity: 1,
		lightRange: 1,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightSourceImpl) Type() LightType {
	return l.lightType
}

func (l *lightSourceImpl) Spectrum() Spectrum {
	return l.spectrum
}

func (l *lightSourceImpl) Luminosity() float64 {
	return l.luminosity
}

func (l *lightSourceImpl) Range() float64 {
	return l.lightRange
}

func (l *lightSourceImpl) IsShadowCaster() bool {
	return l.shadowCaster
}

func (l *lightSourceImpl) SetSpectrum(s Spectrum) {
	l.spectrum = s
}

func (l *lightSourceImpl) SetLuminosity(luminosity float64) {
	l.luminosity = luminosity
}

func (l *lightSourceImpl) SetRange(lightRange float64) {
	l.lightRange = max(lightRange, 0)
}

func (l *lightSourceImpl) SetShadowCaster(castsShadows bool) {
	l.shadowCaster = castsShadows
}

// Priority orders lights for shadow assignment: the Sun first, then shadow-casting point
// lights, then the rest.
//
// Parameters:
//   - l: the light
//
// Returns:
//   - int: 2 for a Sun, 1 for a shadow-casting point light, 0 otherwise
func Priority(l LightSource) int {
	if l.Type() == Sun {
		return 2
	}
	if l.IsShadowCaster() {
		return 1
	}
	return 0
}
