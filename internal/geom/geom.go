// Package geom holds the small set of geometric primitives the
// voxelization kernel needs: vectors and affine transforms (built on
// mathgl), integer-bounded axis-aligned boxes, and the two
// triangle-rasterization tests (SAT overlap, 3D DDA).
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is a point or direction in mesh/grid space.
type Vec3 = mgl64.Vec3

// Mat4 is an affine transform applied to mesh vertices before
// voxelization (see Transform).
type Mat4 = mgl64.Mat4

// Triangle is three vertices in winding order. Voxelization never
// relies on winding, only on the point set.
type Triangle [3]Vec3

// Transform represents the fit matrix M of spec §3: translate the
// mesh's min corner to the origin, then apply a per-axis scale so the
// mesh extents land inside [0, R-1].
type Transform struct {
	Translate Vec3
	Scale     Vec3
}

// Identity returns the no-op transform (scale-mode "none").
func Identity() Transform {
	return Transform{Translate: Vec3{}, Scale: Vec3{1, 1, 1}}
}

// Apply maps a mesh-space vertex into grid space: (v - Translate) * Scale,
// component-wise.
func (t Transform) Apply(v Vec3) Vec3 {
	d := v.Sub(t.Translate)
	return Vec3{d[0] * t.Scale[0], d[1] * t.Scale[1], d[2] * t.Scale[2]}
}

// Mat4 materializes the transform as a 4x4 affine matrix, for callers
// that want to compose it with other matrices. Order matches Apply:
// scale is applied after translation.
func (t Transform) Mat4() Mat4 {
	scale := mgl64.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2])
	translate := mgl64.Translate3D(-t.Translate[0], -t.Translate[1], -t.Translate[2])
	return scale.Mul4(translate)
}

// ScaleMode selects how FitTransform computes its per-axis scale.
type ScaleMode int

const (
	// ScaleProportional scales all three axes uniformly by the
	// smallest per-axis factor that fits the mesh inside the grid.
	ScaleProportional ScaleMode = iota
	// ScaleStretch scales each axis independently to exactly fill
	// [0, R-1] on that axis.
	ScaleStretch
	// ScaleNone applies no scale; only the translation is computed.
	ScaleNone
)

// ParseScaleMode maps the CLI's --scale-mode value to a ScaleMode.
func ParseScaleMode(s string) (ScaleMode, bool) {
	switch s {
	case "proportional":
		return ScaleProportional, true
	case "stretch":
		return ScaleStretch, true
	case "none":
		return ScaleNone, true
	default:
		return 0, false
	}
}

// FitTransform computes the affine M of spec §3 from the bounding box
// [min, max] of the mesh's referenced vertices and the target
// resolution R.
func FitTransform(min, max Vec3, resolution int, mode ScaleMode) Transform {
	extent := max.Sub(min)
	target := float64(resolution - 1)

	switch mode {
	case ScaleStretch:
		return Transform{
			Translate: min,
			Scale:     Vec3{safeDiv(target, extent[0]), safeDiv(target, extent[1]), safeDiv(target, extent[2])},
		}
	case ScaleProportional:
		fx := safeDiv(target, extent[0])
		fy := safeDiv(target, extent[1])
		fz := safeDiv(target, extent[2])
		f := math.Min(fx, math.Min(fy, fz))
		return Transform{Translate: min, Scale: Vec3{f, f, f}}
	default: // ScaleNone
		return Transform{Translate: min, Scale: Vec3{1, 1, 1}}
	}
}

// safeDiv mirrors the original's behavior for degenerate (zero-extent)
// axes: a zero extent scales to 1 rather than producing Inf/NaN.
func safeDiv(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 1
	}
	return numerator / denominator
}

// AABB is an integer-bounded axis-aligned box, inclusive of Min,
// exclusive of Max (i.e. covers [Min, Max) in each axis), already
// clamped to a grid's [0, R) extent by the caller.
type AABB struct {
	Min, Max [3]int
}

// TriangleAABB computes the integer cell AABB a triangle occupies,
// clamped to [0, resolution) on every axis.
func TriangleAABB(t Triangle, resolution int) AABB {
	var box AABB
	for axis := 0; axis < 3; axis++ {
		lo := math.Floor(math.Min(t[0][axis], math.Min(t[1][axis], t[2][axis])))
		hi := math.Ceil(math.Max(t[0][axis], math.Max(t[1][axis], t[2][axis]))) + 1
		box.Min[axis] = clampInt(int(lo), 0, resolution)
		box.Max[axis] = clampInt(int(hi), 0, resolution)
	}
	return box
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TriangleIntersectsVoxel runs the 13-axis separating axis test (3 box
// axes, 1 triangle normal, 9 edge cross-products) against the unit
// cube centered at the cell (cx, cy, cz) + (0.5, 0.5, 0.5). This is
// Algorithm A of spec §4.1. A zero-area triangle intersects no voxel.
func TriangleIntersectsVoxel(t Triangle, cx, cy, cz int) bool {
	center := Vec3{float64(cx) + 0.5, float64(cy) + 0.5, float64(cz) + 0.5}
	half := Vec3{0.5, 0.5, 0.5}

	v0 := t[0].Sub(center)
	v1 := t[1].Sub(center)
	v2 := t[2].Sub(center)

	e0 := v1.Sub(v0)
	e1 := v2.Sub(v1)
	e2 := v0.Sub(v2)

	if n := e0.Cross(e1); n.Dot(n) == 0 {
		return false
	}

	axes := [3]Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

	// 9 edge x box-axis cross products.
	edges := [3]Vec3{e0, e1, e2}
	for _, e := range edges {
		for _, a := range axes {
			axis := a.Cross(e)
			if !overlapsOnAxis(axis, v0, v1, v2, half) {
				return false
			}
		}
	}

	// 3 box face normals (axis-aligned box-AABB overlap).
	for _, a := range axes {
		if !overlapsOnAxis(a, v0, v1, v2, half) {
			return false
		}
	}

	// Triangle face normal.
	normal := e0.Cross(e1)
	if !overlapsOnAxis(normal, v0, v1, v2, half) {
		return false
	}

	return true
}

// overlapsOnAxis projects the triangle and the box half-extents onto
// axis and checks for separation. A near-zero axis (degenerate cross
// product) is skipped — it carries no separating information.
func overlapsOnAxis(axis Vec3, v0, v1, v2, half Vec3) bool {
	lenSq := axis.Dot(axis)
	if lenSq < 1e-12 {
		return true
	}

	p0 := axis.Dot(v0)
	p1 := axis.Dot(v1)
	p2 := axis.Dot(v2)

	triMin := math.Min(p0, math.Min(p1, p2))
	triMax := math.Max(p0, math.Max(p1, p2))

	r := half[0]*math.Abs(axis[0]) + half[1]*math.Abs(axis[1]) + half[2]*math.Abs(axis[2])

	return !(triMin > r || triMax < -r)
}

// WalkDDA steps along the 3D line segment from a to b in n equal
// increments, n being the integer part of the largest per-axis
// distance, and calls visit(x, y, z) for the cell holding each of the
// n+1 sample points (a first, b last). When n is 0 only a's cell is
// visited, and a cell the segment clips between two samples is not
// visited. This is the traversal Algorithm B (§4.1) uses for triangle
// edges and scanlines.
func WalkDDA(a, b Vec3, visit func(x, y, z int)) {
	d := b.Sub(a)
	steps := int(math.Max(math.Abs(d[0]), math.Max(math.Abs(d[1]), math.Abs(d[2]))))
	if steps == 0 {
		visit(int(math.Floor(a[0])), int(math.Floor(a[1])), int(math.Floor(a[2])))
		return
	}

	inc := Vec3{d[0] / float64(steps), d[1] / float64(steps), d[2] / float64(steps)}
	cur := a
	for i := 0; i <= steps; i++ {
		visit(int(math.Floor(cur[0])), int(math.Floor(cur[1])), int(math.Floor(cur[2])))
		cur = cur.Add(inc)
	}
}
