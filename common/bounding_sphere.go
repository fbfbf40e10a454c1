package common

import "gonum.org/v1/gonum/spatial/r3"

// BoundingSphere is a sphere used for visibility and shadow volume tests. A negative radius
// marks an empty sphere that contains nothing.
type BoundingSphere struct {
	Center r3.Vec
	Radius float64
}

// EmptySphere returns a sphere that contains no points. Merging anything into it yields
// the other sphere.
func EmptySphere() BoundingSphere {
	return BoundingSphere{Radius: -1}
}

// IsEmpty reports whether the sphere contains no points.
func (s BoundingSphere) IsEmpty() bool {
	return s.Radius < 0
}

// Merge returns the smallest sphere enclosing both s and o.
//
// Parameters:
//   - o: the sphere to merge into s
//
// Returns:
//   - BoundingSphere: the enclosing sphere
func (s BoundingSphere) Merge(o BoundingSphere) BoundingSphere {
	if o.IsEmpty() {
		return s
	}
	if s.IsEmpty() {
		return o
	}

	d := r3.Sub(o.Center, s.Center)
	dist := r3.Norm(d)

	// One sphere already contains the other.
	if dist+o.Radius <= s.Radius {
		return s
	}
	if dist+s.Radius <= o.Radius {
		return o
	}

	radius := (dist + s.Radius + o.Radius) * 0.5
	center := r3.Add(s.Center, r3.Scale((radius-s.Radius)/dist, d))
	return BoundingSphere{Center: center, Radius: radius}
}

// Contains reports whether p lies within the sphere.
func (s BoundingSphere) Contains(p r3.Vec) bool {
	return !s.IsEmpty() && r3.Norm(r3.Sub(p, s.Center)) <= s.Radius
}
