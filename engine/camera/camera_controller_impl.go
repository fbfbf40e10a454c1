package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"gonum.org/v1/gonum/spatial/r3"
)

// cameraControllerImpl is the single implementation of CameraController.
// Supports both orbit and planar controls simultaneously. Orbit methods modify
// spherical coordinates and recompute position; planar methods translate both
// position and target along local camera axes, preserving the orbit relationship.
type cameraControllerImpl struct {
	mu *sync.Mutex

	// Camera position (computed from target + spherical coords)
	position r3.Vec
	target   r3.Vec

	// Spherical coordinates (offset from target)
	radius    float64
	azimuth   float64 // Horizontal angle around Y axis
	elevation float64 // Vertical angle from horizontal plane

	minRadius    float64
	maxRadius    float64
	minElevation float64
	maxElevation float64

	orbitSpeed       float64
	mouseSensitivity float64
	zoomSpeed        float64

	panSpeed float64
}

var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a new camera controller. Distances are in kilometers and the
// defaults span a metre-scale minimum radius up to roughly the orbit of Neptune.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu: &sync.Mutex{},

		radius:    2e4,
		azimuth:   0.0,
		elevation: math.Pi / 12,

		minRadius:    1e-3,
		maxRadius:    1e10,
		minElevation: -math.Pi/2 + 0.01,
		maxElevation: math.Pi/2 - 0.01,

		orbitSpeed:       0.03,
		mouseSensitivity: 0.005,
		zoomSpeed:        0.1,

		panSpeed: 0.05,
	}

	for _, option := range options {
		option(cc)
	}

	cc.radius = common.Clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = common.Clamp(cc.elevation, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
	return cc
}

// NewOrbitController creates a camera controller orbiting target at the given radius.
//
// Parameters:
//   - target: the pivot point
//   - radius: distance from the pivot
//   - options: further functional options
//
// Returns:
//   - CameraController: the newly created controller
func NewOrbitController(target r3.Vec, radius float64, options ...CameraControllerOption) CameraController {
	return NewCameraController(append([]CameraControllerOption{WithTarget(target), WithRadius(radius)}, options...)...)
}

// updatePosition recomputes the camera position from spherical coordinates.
// Must be called whenever radius, azimuth, elevation, or target changes.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) updatePosition() {
	cosElev, sinElev := math.Cos(cc.elevation), math.Sin(cc.elevation)
	cosAzim, sinAzim := math.Cos(cc.azimuth), math.Sin(cc.azimuth)

	cc.position = r3.Add(cc.target, r3.Scale(cc.radius, r3.Vec{
		X: cosElev * sinAzim,
		Y: sinElev,
		Z: cosElev * cosAzim,
	}))
}

// localAxes computes the camera's local right, up and forward axes with world up (0, 1, 0).
// If position and target coincide, all returned vectors are zero.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) localAxes() (right, up, forward r3.Vec) {
	back := r3.Sub(cc.position, cc.target)
	if r3.Norm(back) < 1e-12 {
		return
	}
	back = r3.Unit(back)

	// cross((0,1,0), back) keeps right in the horizontal plane
	right = r3.Vec{X: back.Z, Z: -back.X}
	if r3.Norm(right) < 1e-12 {
		return r3.Vec{}, r3.Vec{}, r3.Vec{}
	}
	right = r3.Unit(right)
	up = r3.Cross(back, right)
	forward = r3.Scale(-1, back)
	return right, up, forward
}

// pan shifts target and position together. Caller must hold the mutex.
func (cc *cameraControllerImpl) pan(axis r3.Vec, delta float64) {
	offset := r3.Scale(delta*cc.panSpeed*cc.radius, axis)
	cc.target = r3.Add(cc.target, offset)
	cc.position = r3.Add(cc.position, offset)
}

func (cc *cameraControllerImpl) Position() r3.Vec {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *cameraControllerImpl) Target() r3.Vec {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *cameraControllerImpl) SetTarget(target r3.Vec) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Zoom(delta float64) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = common.Clamp(cc.radius*math.Exp(-delta*cc.zoomSpeed), cc.minRadius, cc.maxRadius)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) OrbitLeft() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth -= cc.orbitSpeed
	cc.updatePosition()
}

func (cc *cameraControllerImpl) OrbitRight() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth += cc.orbitSpeed
	cc.updatePosition()
}

func (cc *cameraControllerImpl) OrbitUp() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.elevation = math.Min(cc.elevation+cc.orbitSpeed, cc.maxElevation)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) OrbitDown() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.elevation = math.Max(cc.elevation-cc.orbitSpeed, cc.minElevation)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Drag(dx, dy float64) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth += dx * cc.mouseSensitivity
	cc.elevation = common.Clamp(cc.elevation+dy*cc.mouseSensitivity, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Radius() float64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *cameraControllerImpl) SetRadius(radius float64) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = common.Clamp(radius, cc.minRadius, cc.maxRadius)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) MinRadius() float64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.minRadius
}

func (cc *cameraControllerImpl) MaxRadius() float64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.maxRadius
}

func (cc *cameraControllerImpl) Azimuth() float64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *cameraControllerImpl) SetAzimuth(azimuth float64) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth = azimuth
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Elevation() float64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}

func (cc *cameraControllerImpl) SetElevation(elevation float64) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.elevation = common.Clamp(elevation, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) MinElevation() float64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.minElevation
}

func (cc *cameraControllerImpl) MaxElevation() float64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.maxElevation
}

func (cc *cameraControllerImpl) OrbitSpeed() float64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.orbitSpeed
}

func (cc *cameraControllerImpl) MouseSensitivity() float64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.mouseSensitivity
}

func (cc *cameraControllerImpl) ZoomSpeed() float64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.zoomSpeed
}

func (cc *cameraControllerImpl) PanRight(delta float64) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	right, _, _ := cc.localAxes()
	cc.pan(right, delta)
}

func (cc *cameraControllerImpl) PanUp(delta float64) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	_, up, _ := cc.localAxes()
	cc.pan(up, delta)
}

func (cc *cameraControllerImpl) PanForward(delta float64) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	_, _, forward := cc.localAxes()
	cc.pan(forward, delta)
}

func (cc *cameraControllerImpl) PanSpeed() float64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.panSpeed
}
