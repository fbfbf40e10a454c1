package universe

import "github.com/aukilabs/go-tooling/pkg/errors"

// ErrTypeRender tags errors built from a non-OK RenderStatus.
const ErrTypeRender = "universe_render"

// RenderStatus is the result of a universe renderer operation.
type RenderStatus int

const (
	// RenderOk means the operation completed.
	RenderOk RenderStatus = iota

	// RendererUninitialized means InitializeGraphics has not been called.
	RendererUninitialized

	// RendererBadParameter means an argument was missing or out of range.
	RendererBadParameter

	// RenderViewSetAlreadyStarted means BeginViewSet was called inside an active view set.
	RenderViewSetAlreadyStarted

	// RenderNoViewSet means a view was rendered or a view set ended outside an active view set.
	RenderNoViewSet
)

func (s RenderStatus) String() string {
	switch s {
	case RenderOk:
		return "ok"
	case RendererUninitialized:
		return "renderer_uninitialized"
	case RendererBadParameter:
		return "renderer_bad_parameter"
	case RenderViewSetAlreadyStarted:
		return "view_set_already_started"
	case RenderNoViewSet:
		return "no_view_set"
	default:
		return "unknown"
	}
}

// Err returns nil for RenderOk and a typed error for every other status.
//
// Returns:
//   - error: the status as an error
func (s RenderStatus) Err() error {
	if s == RenderOk {
		return nil
	}
	return errors.New("universe render failed").
		WithType(ErrTypeRender).
		WithTag("status", s.String())
}
