package camera

import (
	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/Carmen-Shannon/oxy-astro/engine/window"
)

// HandleKey applies one key press to the controller. Arrow keys orbit, WASD pans in the
// horizontal plane, Q and E pan vertically, and = and - zoom. Unbound keys report false.
//
// Parameters:
//   - cc: the controller to move
//   - keyCode: the virtual key code
//
// Returns:
//   - bool: whether the key was bound
func HandleKey(cc CameraController, keyCode uint32) bool {
	switch keyCode {
	case common.KeyLeft:
		cc.OrbitLeft()
	case common.KeyRight:
		cc.OrbitRight()
	case common.KeyUp:
		cc.OrbitUp()
	case common.KeyDown:
		cc.OrbitDown()
	case common.KeyW:
		cc.PanForward(1)
	case common.KeyS:
		cc.PanForward(-1)
	case common.KeyA:
		cc.PanRight(-1)
	case common.KeyD:
		cc.PanRight(1)
	case common.KeyE:
		cc.PanUp(1)
	case common.KeyQ:
		cc.PanUp(-1)
	case common.KeyEqual, common.KeyPageUp:
		cc.Zoom(1)
	case common.KeyMinus, common.KeyPageDown:
		cc.Zoom(-1)
	default:
		return false
	}
	return true
}

// BindWindow routes a window's keyboard, scroll and drag input to a controller.
//
// Parameters:
//   - w: the window producing input
//   - cc: the controller receiving it
func BindWindow(w window.Window, cc CameraController) {
	w.SetKeyDownCallback(func(keyCode uint32) {
		HandleKey(cc, keyCode)
	})
	w.SetScrollCallback(cc.Zoom)
	w.SetDragCallback(func(dx, dy float64) {
		cc.Drag(dx, -dy)
	})
}
