package camera

import "gonum.org/v1/gonum/spatial/r3"

// CameraController defines the union interface for camera control systems.
// Controllers own positional state (position, target). Camera reads from controller
// and computes view/projection matrices. Embeds both orbitCameraController and
// planarCameraController, enabling orbit and planar controls to work simultaneously
// from a single controller instance.
type CameraController interface {
	orbitCameraController
	planarCameraController

	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - r3.Vec: world-space camera position
	Position() r3.Vec

	// Target returns the look-at point.
	//
	// Returns:
	//   - r3.Vec: world-space target position
	Target() r3.Vec

	// SetTarget sets the look-at/pivot point and recomputes position from spherical coordinates.
	// Following a moving body means calling SetTarget with its position every frame.
	//
	// Parameters:
	//   - target: world-space coordinates
	SetTarget(target r3.Vec)

	// Zoom scales the orbit radius exponentially so that equal inputs cover equal ratios of
	// distance, from a spacecraft hull out to the whole solar system.
	// Positive delta zooms in (closer to target).
	//
	// Parameters:
	//   - delta: zoom amount scaled by ZoomSpeed
	Zoom(delta float64)
}

// orbitCameraController defines orbit-specific control methods.
// Provides third-person orbit controls using spherical coordinates (radius, azimuth, elevation)
// relative to the target/pivot point.
type orbitCameraController interface {
	// OrbitLeft rotates the camera left around the target by one orbit speed step.
	OrbitLeft()

	// OrbitRight rotates the camera right around the target by one orbit speed step.
	OrbitRight()

	// OrbitUp tilts the camera upward by one orbit speed step, clamped to max elevation.
	OrbitUp()

	// OrbitDown tilts the camera downward by one orbit speed step, clamped to min elevation.
	OrbitDown()

	// Drag orbits by a mouse movement scaled by MouseSensitivity. Positive dx orbits right and
	// positive dy tilts up.
	//
	// Parameters:
	//   - dx, dy: mouse movement in pixels
	Drag(dx, dy float64)

	// Radius returns the current orbit radius (distance from target).
	//
	// Returns:
	//   - float64: current distance from target
	Radius() float64

	// SetRadius sets the orbit radius directly, clamped to min/max bounds.
	//
	// Parameters:
	//   - radius: new distance from target
	SetRadius(radius float64)

	// MinRadius returns the minimum allowed orbit radius.
	//
	// Returns:
	//   - float64: minimum zoom distance
	MinRadius() float64

	// MaxRadius returns the maximum allowed orbit radius.
	//
	// Returns:
	//   - float64: maximum zoom distance
	MaxRadius() float64

	// Azimuth returns the current horizontal angle around the Y axis.
	//
	// Returns:
	//   - float64: azimuth in radians
	Azimuth() float64

	// SetAzimuth sets the horizontal angle directly and recomputes position.
	//
	// Parameters:
	//   - azimuth: new horizontal angle in radians
	SetAzimuth(azimuth float64)

	// Elevation returns the current vertical angle from the horizontal plane.
	//
	// Returns:
	//   - float64: elevation in radians
	Elevation() float64

	// SetElevation sets the vertical angle directly, clamped to min/max bounds.
	//
	// Parameters:
	//   - elevation: new vertical angle in radians
	SetElevation(elevation float64)

	// MinElevation returns the minimum allowed elevation angle.
	//
	// Returns:
	//   - float64: minimum elevation in radians
	MinElevation() float64

	// MaxElevation returns the maximum allowed elevation angle.
	//
	// Returns:
	//   - float64: maximum elevation in radians
	MaxElevation() float64

	// OrbitSpeed returns the keyboard orbit speed in radians per step.
	//
	// Returns:
	//   - float64: radians per orbit call
	OrbitSpeed() float64

	// MouseSensitivity returns the mouse drag sensitivity multiplier.
	//
	// Returns:
	//   - float64: multiplier for mouse movement
	MouseSensitivity() float64

	// ZoomSpeed returns the zoom speed multiplier.
	//
	// Returns:
	//   - float64: multiplier for zoom input
	ZoomSpeed() float64
}

// planarCameraController defines planar translation control methods.
// Provides first-person-style panning along the camera's local axes without
// changing orbit angles. Panning shifts both position and target by the same
// offset, preserving the orbit relationship. Pan steps are a fraction of the orbit radius.
type planarCameraController interface {
	// PanRight translates the camera along its local right axis.
	// Positive delta moves right, negative moves left.
	//
	// Parameters:
	//   - delta: pan amount scaled by PanSpeed and the orbit radius
	PanRight(delta float64)

	// PanUp translates the camera along its local up axis.
	// Positive delta moves up, negative moves down.
	//
	// Parameters:
	//   - delta: pan amount scaled by PanSpeed and the orbit radius
	PanUp(delta float64)

	// PanForward translates the camera along its local forward axis (dolly).
	// Positive delta moves toward the target, negative moves away.
	//
	// Parameters:
	//   - delta: pan amount scaled by PanSpeed and the orbit radius
	PanForward(delta float64)

	// PanSpeed returns the pan speed multiplier.
	//
	// Returns:
	//   - float64: fraction of the orbit radius moved per unit of pan input
	PanSpeed() float64
}
