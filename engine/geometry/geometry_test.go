package geometry

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const testFovY = 0.8

type testTexture struct {
	id       uuid.UUID
	resident bool
}

func (t testTexture) ID() uuid.UUID    { return t.id }
func (t testTexture) IsResident() bool { return t.resident }

// drawAt renders draw in one frame with the local origin placed distance kilometers in front of
// the camera.
func drawAt(t *testing.T, distance float64, pass renderer.RenderPass, draw func(rc renderer.RenderContext)) []renderer.DrawCommand {
	t.Helper()
	b := renderer.NewRecordingBackend()
	rc := renderer.NewRenderContext(b)
	rc.SetViewport(640, 480)
	rc.SetProjection(common.NewPerspective(testFovY, 640.0/480.0, max(1e-3, distance*1e-3), distance*10))
	rc.SetPixelSize(2 * math.Tan(testFovY/2) / 480)
	rc.SetPass(pass)
	rc.TranslateModelView(r3.Vec{Z: -distance})

	require.NoError(t, rc.BeginFrame())
	draw(rc)
	rc.EndFrame()
	return b.Draws()
}

func TestClippingPolicyString(t *testing.T) {
	require.Equal(t, "split_to_prevent_clipping", SplitToPreventClipping.String())
	require.Equal(t, "unknown", ClippingPolicy(9).String())
}

func TestEyePosition(t *testing.T) {
	mv := common.RotationMat4(common.AxisAngle(r3.Vec{Z: 1}, math.Pi/2)).Mul(common.Translation(r3.Vec{X: -5}))
	eye := eyePosition(mv)
	require.InDelta(t, 5, eye.X, 1e-5)
	require.InDelta(t, 0, eye.Y, 1e-5)
	require.InDelta(t, 0, eye.Z, 1e-5)
}

func TestShellDistances(t *testing.T) {
	unit := r3.Vec{X: 1, Y: 1, Z: 1}

	t.Run("HorizonDistance: tangent length from outside", func(t *testing.T) {
		require.InDelta(t, math.Sqrt(3), HorizonDistance(r3.Vec{X: 2}, unit), 1e-12)
		require.Zero(t, HorizonDistance(r3.Vec{X: 0.5}, unit))
	})

	t.Run("ShellDistance: above and below the shell", func(t *testing.T) {
		require.InDelta(t, math.Sqrt(5), ShellDistance(r3.Vec{X: 3}, unit, 1), 1e-12)
		require.InDelta(t, math.Sqrt(1.25)+math.Sqrt(3), ShellDistance(r3.Vec{X: 1.5}, unit, 1), 1e-12)
		require.Zero(t, ShellDistance(r3.Vec{X: 0.5}, unit, 1))
	})

	t.Run("atmosphereDistance: always reaches past the horizon", func(t *testing.T) {
		require.InDelta(t, math.Sqrt(8)+math.Sqrt(3), atmosphereDistance(r3.Vec{X: 3}, unit, 1), 1e-12)
		require.Zero(t, atmosphereDistance(r3.Vec{}, unit, 1))
	})
}
