package scene

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/Carmen-Shannon/oxy-astro/engine/geometry"
	"github.com/Carmen-Shannon/oxy-astro/engine/light"
	"github.com/Carmen-Shannon/oxy-astro/engine/universe"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrTypeScene tags errors returned by Universe mutations.
const ErrTypeScene = "scene"

// Universe is an entity-component store of celestial bodies. Every body carries Body, Position
// and Orientation components; Orbit, Spin and Emitter are optional. Positions are derived from
// orbits whenever the time changes, parents before children.
//
// Universe implements universe.Universe and universe.SkyLayerSource. It is safe for concurrent
// use.
type Universe struct {
	mu *sync.Mutex

	world *ecs.World

	bodyMap    *ecs.Map3[Body, Position, Orientation]
	positions  *ecs.Map[Position]
	orbitMap   *ecs.Map[Orbit]
	spinMap    *ecs.Map[Spin]
	emitterMap *ecs.Map[Emitter]

	bodies   *ecs.Filter3[Body, Position, Orientation]
	orbits   *ecs.Filter1[Orbit]
	spins    *ecs.Filter2[Spin, Orientation]
	emitters *ecs.Filter2[Emitter, Position]

	names     map[string]ecs.Entity
	skyLayers []geometry.SkyLayer

	time      float64
	timeScale float64
}

var (
	_ universe.Universe       = &Universe{}
	_ universe.SkyLayerSource = &Universe{}
)

// NewUniverse creates an empty Universe at the epoch.
//
// Parameters:
//   - options: functional options to configure the universe
//
// Returns:
//   - *Universe: the new universe
func NewUniverse(options ...UniverseBuilderOption) *Universe {
	world := ecs.NewWorld()
	u := &Universe{
		mu:         &sync.Mutex{},
		world:      world,
		bodyMap:    ecs.NewMap3[Body, Position, Orientation](world),
		positions:  ecs.NewMap[Position](world),
		orbitMap:   ecs.NewMap[Orbit](world),
		spinMap:    ecs.NewMap[Spin](world),
		emitterMap: ecs.NewMap[Emitter](world),
		bodies:     ecs.NewFilter3[Body, Position, Orientation](world),
		orbits:     ecs.NewFilter1[Orbit](world),
		spins:      ecs.NewFilter2[Spin, Orientation](world),
		emitters:   ecs.NewFilter2[Emitter, Position](world),
		names:      make(map[string]ecs.Entity),
		timeScale:  1,
	}
	for _, opt := range options {
		opt(u)
	}
	return u
}

// AddBody adds a body at a fixed position.
//
// Parameters:
//   - name: a unique name
//   - position: the heliocentric position in kilometers
//   - g: the geometry to draw, or nil
//
// Returns:
//   - ecs.Entity: the new entity
//   - error: an error if the name is taken
func (u *Universe) AddBody(name string, position r3.Vec, g geometry.Geometry) (ecs.Entity, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.addBody(name, position, g)
}

// AddOrbitingBody adds a body on a Keplerian orbit. Its position is computed immediately.
//
// Parameters:
//   - name: a unique name
//   - orbit: the orbit, whose Parent must be alive
//   - g: the geometry to draw, or nil
//
// Returns:
//   - ecs.Entity: the new entity
//   - error: an error if the name is taken or the parent is not alive
func (u *Universe) AddOrbitingBody(name string, orbit Orbit, g geometry.Geometry) (ecs.Entity, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.world.Alive(orbit.Parent) {
		return ecs.Entity{}, errors.New("orbit parent is not alive").
			WithType(ErrTypeScene).
			WithTag("name", name)
	}
	e, err := u.addBody(name, r3.Vec{}, g)
	if err != nil {
		return e, err
	}
	u.orbitMap.Add(e, &orbit)
	u.updatePositions()
	return e, nil
}

// AddOrbitPath adds a trajectory tracing one revolution of an orbiting body from the current
// time. The path is drawn around the orbit's parent and follows it.
//
// Parameters:
//   - name: a unique name for the path
//   - orbiter: a body added with AddOrbitingBody
//   - steps: the number of line segments
//
// Returns:
//   - *geometry.TrajectoryGeometry: the path geometry, for styling
//   - error: an error if the name is taken or orbiter has no orbit
func (u *Universe) AddOrbitPath(name string, orbiter ecs.Entity, steps int) (*geometry.TrajectoryGeometry, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.world.Alive(orbiter) || !u.orbitMap.Has(orbiter) {
		return nil, errors.New("orbit path target has no orbit").
			WithType(ErrTypeScene).
			WithTag("name", name)
	}
	orbit := *u.orbitMap.Get(orbiter)
	period := orbit.Period
	if period <= 0 {
		period = 1
	}

	path := geometry.NewTrajectoryGeometry()
	path.ComputeSamples(orbit.State(), u.time, u.time+period, steps)

	e, err := u.addBody(name, r3.Vec{}, path)
	if err != nil {
		return nil, err
	}
	u.orbitMap.Add(e, &Orbit{Parent: orbit.Parent})
	u.updatePositions()
	return path, nil
}

// AddSpin makes a body rotate about its pole.
//
// Parameters:
//   - e: the body
//   - spin: the rotation
//
// Returns:
//   - error: an error if the entity is not a live body
func (u *Universe) AddSpin(e ecs.Entity, spin Spin) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.isBody(e) {
		return errors.New("spin target is not a body").WithType(ErrTypeScene)
	}
	u.spinMap.Add(e, &spin)
	_, _, o := u.bodyMap.Get(e)
	o.Number = spin.OrientationAt(u.time)
	return nil
}

// AddLight makes a body emit light.
//
// Parameters:
//   - e: the body
//   - l: the light
//   - radius: the radius of the emitting surface in kilometers
//
// Returns:
//   - error: an error if the entity is not a live body or already emits
func (u *Universe) AddLight(e ecs.Entity, l light.LightSource, radius float64) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.isBody(e) {
		return errors.New("light target is not a body").WithType(ErrTypeScene)
	}
	if u.emitterMap.Has(e) {
		return errors.New("body already emits light").WithType(ErrTypeScene)
	}
	u.emitterMap.Add(e, &Emitter{Light: l, Radius: radius})
	return nil
}

// AddSkyLayer appends a layer drawn behind every body.
//
// Parameters:
//   - l: the layer
func (u *Universe) AddSkyLayer(l geometry.SkyLayer) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.skyLayers = append(u.skyLayers, l)
}

// Remove deletes a body. Bodies orbiting it are removed too.
//
// Parameters:
//   - e: the body to remove
func (u *Universe) Remove(e ecs.Entity) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.remove(e)
}

// Find looks a body up by name.
//
// Parameters:
//   - name: the body name
//
// Returns:
//   - ecs.Entity: the entity
//   - bool: whether the name exists
func (u *Universe) Find(name string) (ecs.Entity, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	e, ok := u.names[name]
	return e, ok
}

// Position returns a body's position at the current time.
//
// Parameters:
//   - e: the body
//
// Returns:
//   - r3.Vec: the heliocentric position
//   - bool: whether e is a live body
func (u *Universe) Position(e ecs.Entity) (r3.Vec, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.isBody(e) {
		return r3.Vec{}, false
	}
	return u.positions.Get(e).Vec, true
}

// Time returns the current simulation time in seconds since the epoch.
func (u *Universe) Time() float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.time
}

// Len returns the number of bodies.
func (u *Universe) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.names)
}

// Advance moves the simulation forward by dt wall-clock seconds scaled by the time scale.
//
// Parameters:
//   - dt: elapsed wall-clock seconds
//
// Returns:
//   - float64: the new simulation time
func (u *Universe) Advance(dt float64) float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.setTime(u.time + dt*u.timeScale)
	return u.time
}

// SetTime moves the simulation to time t.
//
// Parameters:
//   - t: seconds since the epoch
func (u *Universe) SetTime(t float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.setTime(t)
}

// TimeScale returns the number of simulated seconds per wall-clock second.
func (u *Universe) TimeScale() float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.timeScale
}

// SetTimeScale sets the number of simulated seconds per wall-clock second. Negative values run
// time backwards.
func (u *Universe) SetTimeScale(scale float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.timeScale = scale
}

func (u *Universe) VisibleEntities(t float64) []universe.Entity {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.setTime(t)

	var out []universe.Entity
	query := u.bodies.Query()
	for query.Next() {
		body, pos, orientation := query.Get()
		if body.Geometry == nil {
			continue
		}
		out = append(out, universe.Entity{
			Name:        body.Name,
			Position:    pos.Vec,
			Orientation: orientation.Number,
			Geometry:    body.Geometry,
		})
	}
	return out
}

func (u *Universe) LightSources(t float64) []universe.LightSourceItem {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.setTime(t)

	var out []universe.LightSourceItem
	query := u.emitters.Query()
	for query.Next() {
		emitter, pos := query.Get()
		out = append(out, universe.LightSourceItem{
			Light:    emitter.Light,
			Position: pos.Vec,
			Radius:   emitter.Radius,
		})
	}
	return out
}

func (u *Universe) SkyLayers() []geometry.SkyLayer {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]geometry.SkyLayer(nil), u.skyLayers...)
}

// addBody creates the entity. Caller must hold the mutex.
func (u *Universe) addBody(name string, position r3.Vec, g geometry.Geometry) (ecs.Entity, error) {
	if _, ok := u.names[name]; ok {
		return ecs.Entity{}, errors.New("body name already in use").
			WithType(ErrTypeScene).
			WithTag("name", name)
	}
	e := u.bodyMap.NewEntity(
		&Body{Name: name, Geometry: g},
		&Position{Vec: position},
		&Orientation{Number: common.QuatIdentity},
	)
	u.names[name] = e
	logs.WithTag("name", name).Debug("body added")
	return e, nil
}

// isBody reports whether e is alive and carries the body components. Caller must hold the mutex.
func (u *Universe) isBody(e ecs.Entity) bool {
	return u.world.Alive(e) && u.positions.Has(e)
}

// remove deletes e and every body orbiting it. Caller must hold the mutex.
func (u *Universe) remove(e ecs.Entity) {
	if !u.isBody(e) {
		return
	}

	var children []ecs.Entity
	query := u.orbits.Query()
	for query.Next() {
		if query.Get().Parent == e {
			children = append(children, query.Entity())
		}
	}
	for _, child := range children {
		u.remove(child)
	}

	body, _, _ := u.bodyMap.Get(e)
	delete(u.names, body.Name)
	u.world.RemoveEntity(e)
}

// setTime moves the clock and refreshes derived components. Caller must hold the mutex.
func (u *Universe) setTime(t float64) {
	if t == u.time {
		return
	}
	u.time = t
	u.updatePositions()
	u.updateOrientations()
}

// updatePositions places every orbiting body relative to its parent. Parents are resolved
// first so that moons follow planets within the same update. Caller must hold the mutex.
func (u *Universe) updatePositions() {
	pending := make(map[ecs.Entity]Orbit)
	var order []ecs.Entity
	query := u.orbits.Query()
	for query.Next() {
		pending[query.Entity()] = *query.Get()
		order = append(order, query.Entity())
	}

	// Entries leave pending before their parent is visited, so a cycle cannot recurse forever.
	var resolve func(e ecs.Entity)
	resolve = func(e ecs.Entity) {
		o, ok := pending[e]
		if !ok {
			return
		}
		delete(pending, e)
		if !u.world.Alive(o.Parent) {
			return
		}
		resolve(o.Parent)
		parent := u.positions.Get(o.Parent).Vec
		u.positions.Get(e).Vec = r3.Add(parent, o.PositionAt(u.time))
	}
	for _, e := range order {
		resolve(e)
	}
}

// updateOrientations rotates every spinning body. Caller must hold the mutex.
func (u *Universe) updateOrientations() {
	query := u.spins.Query()
	for query.Next() {
		spin, orientation := query.Get()
		orientation.Number = spin.OrientationAt(u.time)
	}
}
