// Package voxelgrid implements the dense R³ occupancy grid of spec
// §4.1–§4.2: triangle voxelization (SAT and DDA), and the byte-packed
// and run-compressed on-disk formats.
package voxelgrid

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/Spatchler/VMesh-CLI/internal/geom"
	"github.com/Spatchler/VMesh-CLI/internal/mesh"
	"github.com/Spatchler/VMesh-CLI/internal/progress"
)

// VoxelGrid is a dense R³ occupancy bitset. Query/Set use grid-local
// coordinates; Origin only affects how VoxelizeSAT/VoxelizeDDA map
// mesh-space (world) triangle coordinates onto this grid's cells —
// used by the tile orchestrator so each tile's grid can be addressed
// starting at (0,0,0) while still testing against the right slice of
// the mesh.
type VoxelGrid struct {
	Resolution int
	Origin     [3]int

	bits *bitset.BitSet
}

// New allocates an empty (all-air) grid of the given cubic resolution.
func New(resolution int) *VoxelGrid {
	n := uint(resolution) * uint(resolution) * uint(resolution)
	return &VoxelGrid{
		Resolution: resolution,
		bits:       bitset.New(n),
	}
}

// SetOrigin sets the world-space origin used to localize triangle
// coordinates during voxelization. The default origin is (0,0,0).
func (g *VoxelGrid) SetOrigin(o [3]int) {
	g.Origin = o
}

// index converts local grid coordinates to a flat bit index, Z-major
// innermost, matching the traversal order of the wire formats (§6).
// ok is false for any coordinate outside [0, Resolution).
func (g *VoxelGrid) index(x, y, z int) (idx uint, ok bool) {
	r := g.Resolution
	if x < 0 || x >= r || y < 0 || y >= r || z < 0 || z >= r {
		return 0, false
	}
	return uint(x*r*r + y*r + z), true
}

// Query returns the occupancy of a cell. Out-of-bounds reads return
// false (spec §3 invariant).
func (g *VoxelGrid) Query(x, y, z int) bool {
	idx, ok := g.index(x, y, z)
	if !ok {
		return false
	}
	return g.bits.Test(idx)
}

// Set marks a cell occupied. Out-of-bounds writes are silently
// ignored (spec §3 invariant).
func (g *VoxelGrid) Set(x, y, z int) {
	idx, ok := g.index(x, y, z)
	if !ok {
		return
	}
	g.bits.Set(idx)
}

// VoxelizeSAT marks every cell whose unit cube overlaps at least one
// triangle of m, using the separating-axis test (Algorithm A, §4.1).
// counter is advanced by one per triangle processed; nil is fine and
// disables progress reporting.
func (g *VoxelGrid) VoxelizeSAT(m *mesh.Mesh, counter *progress.Counter) {
	offset := geom.Vec3{float64(g.Origin[0]), float64(g.Origin[1]), float64(g.Origin[2])}

	for k := 0; k < m.TriCount(); k++ {
		tri := m.Triangle(k)
		local := geom.Triangle{
			tri[0].Sub(offset),
			tri[1].Sub(offset),
			tri[2].Sub(offset),
		}

		box := geom.TriangleAABB(local, g.Resolution)
		for x := box.Min[0]; x < box.Max[0]; x++ {
			for y := box.Min[1]; y < box.Max[1]; y++ {
				for z := box.Min[2]; z < box.Max[2]; z++ {
					if geom.TriangleIntersectsVoxel(local, x, y, z) {
						g.Set(x, y, z)
					}
				}
			}
		}

		if counter != nil {
			counter.Add(1)
		}
	}
}

// VoxelizeDDA marks cells by walking a 3D DDA line across each
// triangle edge and across horizontal scanlines at voxel resolution
// (Algorithm B, §4.1). Chosen via the --DDA flag; faster than SAT at
// high resolutions on convex, closed meshes.
func (g *VoxelGrid) VoxelizeDDA(m *mesh.Mesh, counter *progress.Counter) {
	offset := geom.Vec3{float64(g.Origin[0]), float64(g.Origin[1]), float64(g.Origin[2])}
	mark := func(x, y, z int) { g.Set(x, y, z) }

	for k := 0; k < m.TriCount(); k++ {
		tri := m.Triangle(k)
		a := tri[0].Sub(offset)
		b := tri[1].Sub(offset)
		c := tri[2].Sub(offset)

		geom.WalkDDA(a, b, mark)
		geom.WalkDDA(b, c, mark)
		geom.WalkDDA(c, a, mark)
		rasterizeScanlines(a, b, c, mark)

		if counter != nil {
			counter.Add(1)
		}
	}
}

// rasterizeScanlines adds interior cells by slicing the triangle with
// each integer Z plane from int(minZ) to int(maxZ) and walking a DDA
// line between the first two edge crossings found (edges taken in the
// order a-b, b-c, c-a). A triangle whose Z range crosses no integer
// plane gets no scanline, and a triangle lying in a single Z plane gets
// at most a walk along its a-b edge; such triangles are covered by
// their edge walks only.
func rasterizeScanlines(a, b, c geom.Vec3, mark func(x, y, z int)) {
	lo := int(minF(a[2], b[2], c[2]))
	hi := int(maxF(a[2], b[2], c[2]))

	for z := lo; z <= hi; z++ {
		fz := float64(z)
		pts := make([]geom.Vec3, 0, 2)
		for _, edge := range [][2]geom.Vec3{{a, b}, {b, c}, {c, a}} {
			if p, ok := sliceEdgeAtZ(edge[0], edge[1], fz); ok {
				pts = append(pts, p)
			}
		}
		if len(pts) >= 2 {
			geom.WalkDDA(pts[0], pts[1], mark)
		}
	}
}

// sliceEdgeAtZ finds the point where segment p0-p1 crosses the plane
// Z=z, if any.
func sliceEdgeAtZ(p0, p1 geom.Vec3, z float64) (geom.Vec3, bool) {
	z0, z1 := p0[2], p1[2]
	if (z0 <= z && z1 < z) || (z0 > z && z1 >= z) || z0 == z1 {
		if z0 != z1 {
			return geom.Vec3{}, false
		}
	}
	if (z-z0)*(z-z1) > 0 {
		return geom.Vec3{}, false
	}
	if z0 == z1 {
		return p0, true
	}
	t := (z - z0) / (z1 - z0)
	return geom.Vec3{
		p0[0] + t*(p1[0]-p0[0]),
		p0[1] + t*(p1[1]-p0[1]),
		z,
	}, true
}

func minF(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func maxF(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
