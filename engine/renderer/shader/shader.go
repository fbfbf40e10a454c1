package shader

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// Feature is a bit set of optional shader inputs and effects. Each bit can be tested in WGSL
// with //@oxy:if NAME.
type Feature uint32

const (
	FeatureNormal Feature = 1 << iota
	FeatureTexCoord
	FeatureTangent
	FeatureColor
	FeatureBaseTexture
	FeatureNormalMap
	FeatureShadows
	FeatureOmniShadows
	FeatureEmissive
)

// featureNames maps the names used in //@oxy:if annotations to feature bits.
var featureNames = map[string]Feature{
	"NORMAL":       FeatureNormal,
	"TEXCOORD":     FeatureTexCoord,
	"TANGENT":      FeatureTangent,
	"COLOR":        FeatureColor,
	"BASE_TEXTURE": FeatureBaseTexture,
	"NORMAL_MAP":   FeatureNormalMap,
	"SHADOWS":      FeatureShadows,
	"OMNI_SHADOWS": FeatureOmniShadows,
	"EMISSIVE":     FeatureEmissive,
}

// Has reports whether every bit of f2 is set in f.
func (f Feature) Has(f2 Feature) bool {
	return f&f2 == f2
}

// String lists the enabled feature names in alphabetical order, joined with "+".
func (f Feature) String() string {
	var names []string
	for name, bit := range featureNames {
		if f.Has(bit) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "NONE"
	}
	sort.Strings(names)
	return strings.Join(names, "+")
}

// Program names one of the embedded WGSL programs.
type Program string

const (
	// ProgramSurface shades lit or unlit geometry into the color target.
	ProgramSurface Program = "surface"

	// ProgramShadowDepth writes depth only, for directional shadow maps.
	ProgramShadowDepth Program = "shadow_depth"

	// ProgramCameraDistance writes the linear eye distance, for omnidirectional shadow cube maps.
	ProgramCameraDistance Program = "camera_distance"
)

//go:embed assets/surface.wgsl
var surfaceSource string

//go:embed assets/shadow_depth.wgsl
var shadowDepthSource string

//go:embed assets/camera_distance.wgsl
var cameraDistanceSource string

var programSources = map[Program]string{
	ProgramSurface:        surfaceSource,
	ProgramShadowDepth:    shadowDepthSource,
	ProgramCameraDistance: cameraDistanceSource,
}

var (
	vertexEntryRegex   = regexp.MustCompile(`(?s)@vertex\s+fn\s+(\w+)`)
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\s+fn\s+(\w+)`)
)

// shader is the implementation of the Shader interface.
type shader struct {
	key        string
	source     string
	features   Feature
	vertexFn   string
	fragmentFn string
	module     *wgpu.ShaderModuleDescriptor
}

// Shader is one pre-processed variant of a WGSL program.
type Shader interface {
	// Key retrieves the unique identifier of the variant, "program/FEATURES".
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL source.
	//
	// Returns:
	//   - string: the WGSL source code of the variant
	Source() string

	// Features retrieves the feature set the variant was built with.
	//
	// Returns:
	//   - Feature: the enabled features
	Features() Feature

	// VertexEntryPoint retrieves the name of the @vertex function.
	//
	// Returns:
	//   - string: the entry point name
	VertexEntryPoint() string

	// FragmentEntryPoint retrieves the name of the @fragment function, or "" for depth-only programs.
	//
	// Returns:
	//   - string: the entry point name
	FragmentEntryPoint() string

	// Module retrieves the module descriptor used to compile the variant.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the descriptor
	Module() *wgpu.ShaderModuleDescriptor
}

var _ Shader = &shader{}

// NewShader pre-processes source for the given features and extracts its entry points.
//
// Parameters:
//   - key: the unique identifier of the variant
//   - source: the annotated WGSL source
//   - features: the enabled features
//   - pp: the pre-processor holding the include registry
//
// Returns:
//   - Shader: the variant
//   - error: an error if pre-processing fails or no @vertex entry point exists
func NewShader(key, source string, features Feature, pp PreProcessor) (Shader, error) {
	processed, err := pp.Process(source, features)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	s := &shader{
		key:      key,
		source:   processed,
		features: features,
	}
	if m := vertexEntryRegex.FindStringSubmatch(processed); m != nil {
		s.vertexFn = m[1]
	} else {
		return nil, fmt.Errorf("shader %s: no @vertex entry point", key)
	}
	if m := fragmentEntryRegex.FindStringSubmatch(processed); m != nil {
		s.fragmentFn = m[1]
	}
	s.module = &wgpu.ShaderModuleDescriptor{
		Label: key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: processed,
		},
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Features() Feature {
	return s.features
}

func (s *shader) VertexEntryPoint() string {
	return s.vertexFn
}

func (s *shader) FragmentEntryPoint() string {
	return s.fragmentFn
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

// library is the implementation of the Library interface.
type library struct {
	mu       *sync.Mutex
	pp       PreProcessor
	variants map[string]Shader
}

// Library builds shader variants of the embedded programs on demand and caches them.
type Library interface {
	// Shader returns the variant of program for features, building it on first use.
	//
	// Parameters:
	//   - program: the embedded program
	//   - features: the enabled features
	//
	// Returns:
	//   - Shader: the variant
	//   - error: an error if the program is unknown or fails to pre-process
	Shader(program Program, features Feature) (Shader, error)

	// Len returns the number of cached variants.
	//
	// Returns:
	//   - int: the variant count
	Len() int
}

var _ Library = &library{}

// NewLibrary creates a Library whose programs may include the given struct sources.
//
// Parameters:
//   - includes: WGSL sources keyed by include key
//
// Returns:
//   - Library: the library
func NewLibrary(includes map[string]string) Library {
	pp := NewPreProcessor()
	for k, v := range includes {
		pp.Register(k, v)
	}
	return &library{
		mu:       &sync.Mutex{},
		pp:       pp,
		variants: make(map[string]Shader),
	}
}

func (l *library) Shader(program Program, features Feature) (Shader, error) {
	key := string(program) + "/" + features.String()

	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.variants[key]; ok {
		return s, nil
	}
	src, ok := programSources[program]
	if !ok {
		return nil, fmt.Errorf("shader: unknown program %q", program)
	}
	s, err := NewShader(key, src, features, l.pp)
	if err != nil {
		return nil, err
	}
	l.variants[key] = s
	return s, nil
}

func (l *library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.variants)
}
