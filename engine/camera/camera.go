package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultFov is the vertical field of view of a new camera, in radians.
const DefaultFov = 45.0 * (math.Pi / 180.0)

type cameraImpl struct {
	mu *sync.Mutex

	up r3.Vec

	fov    float64
	aspect float64

	position    r3.Vec
	orientation quat.Number

	controller CameraController
}

// Camera is the observer of a universe view. It holds the viewing parameters and reads its
// position and look-at target from an attached CameraController on every Update.
//
// Positions are double precision; the renderer subtracts the camera position from every item
// before narrowing anything to float32.
type Camera interface {
	// Position returns the world-space eye position as of the last Update.
	//
	// Returns:
	//   - r3.Vec: the eye position
	Position() r3.Vec

	// Orientation returns the rotation from eye space to world space. The eye looks down its
	// local -Z axis with +Y up.
	//
	// Returns:
	//   - quat.Number: a unit quaternion
	Orientation() quat.Number

	// Forward returns the world-space viewing direction.
	//
	// Returns:
	//   - r3.Vec: a unit vector
	Forward() r3.Vec

	// Up returns the camera's up hint.
	//
	// Returns:
	//   - r3.Vec: the up vector
	Up() r3.Vec

	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float64: field of view in radians
	Fov() float64

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float64: the aspect ratio
	Aspect() float64

	// Controller returns the attached controller, or nil.
	//
	// Returns:
	//   - CameraController: the controller
	Controller() CameraController

	// Update reads position and target from the controller and recomputes the orientation.
	// It is a no-op without a controller.
	Update()

	// SetUp sets the up hint.
	//
	// Parameters:
	//   - up: the up vector
	SetUp(up r3.Vec)

	// SetFov sets the vertical field of view, clamped to (0, π).
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float64)

	// SetAspect sets the aspect ratio.
	//
	// Parameters:
	//   - aspect: width / height
	SetAspect(aspect float64)

	// SetController attaches a CameraController to the camera.
	//
	// Parameters:
	//   - ctrl: the controller to attach
	SetController(ctrl CameraController)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera at the origin looking down -Z.
// A controller must be attached via SetController or WithController option
// before Update moves the camera.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:          &sync.Mutex{},
		up:          r3.Vec{Y: 1},
		fov:         DefaultFov,
		aspect:      1.0,
		orientation: common.QuatIdentity,
	}
	for _, option := range options {
		option(c)
	}
	c.update()
	return c
}

func (c *cameraImpl) Position() r3.Vec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Orientation() quat.Number {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orientation
}

func (c *cameraImpl) Forward() r3.Vec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return common.Rotate(c.orientation, r3.Vec{Z: -1})
}

func (c *cameraImpl) Up() r3.Vec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.update()
}

func (c *cameraImpl) SetUp(up r3.Vec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = up
	c.update()
}

func (c *cameraImpl) SetFov(fov float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = common.Clamp(fov, 1e-6, math.Pi-1e-6)
}

func (c *cameraImpl) SetAspect(aspect float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if aspect > 0 {
		c.aspect = aspect
	}
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
	c.update()
}

// update recomputes position and orientation from the attached controller. This is a no-op
// when the controller is nil or the eye sits on its target.
// Caller must hold the mutex.
func (c *cameraImpl) update() {
	if c.controller == nil {
		return
	}
	c.position = c.controller.Position()
	forward := r3.Sub(c.controller.Target(), c.position)
	if r3.Norm(forward) == 0 {
		return
	}
	c.orientation = common.LookRotation(forward, c.up)
}
