package tile

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Spatchler/VMesh-CLI/internal/geom"
	"github.com/Spatchler/VMesh-CLI/internal/mesh"
	"github.com/Spatchler/VMesh-CLI/internal/octree"
	"github.com/Spatchler/VMesh-CLI/internal/svdag"
	"github.com/Spatchler/VMesh-CLI/internal/voxelgrid"
)

// octahedronMesh builds the unit octahedron (8 triangles, vertices at
// ±1 on each axis) centered at the origin; callers fit it to the grid.
// It is a closed, non-trivial solid for exercising tiling.
func octahedronMesh() *mesh.Mesh {
	v := []geom.Vec3{
		{1, 0, 0}, {-1, 0, 0},
		{0, 1, 0}, {0, -1, 0},
		{0, 0, 1}, {0, 0, -1},
	}
	faces := [][3]uint32{
		{0, 2, 4}, {2, 1, 4}, {1, 3, 4}, {3, 0, 4},
		{2, 0, 5}, {1, 2, 5}, {3, 1, 5}, {0, 3, 5},
	}
	var idx []uint32
	for _, f := range faces {
		idx = append(idx, f[0], f[1], f[2])
	}
	return &mesh.Mesh{Vertices: v, Indices: idx}
}

func decodedGrid(t *testing.T, tree *octree.Octree, resolution int) *voxelgrid.VoxelGrid {
	t.Helper()
	records := svdag.EmitIndices(tree)
	g, err := svdag.Decode(uint32(resolution), records)
	require.NoError(t, err)
	return g
}

func gridsEqual(a, b *voxelgrid.VoxelGrid) bool {
	if a.Resolution != b.Resolution {
		return false
	}
	r := a.Resolution
	for x := 0; x < r; x++ {
		for y := 0; y < r; y++ {
			for z := 0; z < r; z++ {
				if a.Query(x, y, z) != b.Query(x, y, z) {
					return false
				}
			}
		}
	}
	return true
}

func TestTileMonolithicAgreement(t *testing.T) {
	m := octahedronMesh()
	min, max := m.Bounds()
	const resolution = 16
	tr := geom.FitTransform(min, max, resolution, geom.ScaleProportional)
	m.TransformVertices(tr)

	monoGrid := voxelgrid.New(resolution)
	monoGrid.VoxelizeSAT(m, nil)
	monoTree := octree.Build(monoGrid, nil)
	monoDecoded := decodedGrid(t, monoTree, resolution)

	tiledTree := Build(m, Options{Resolution: resolution, SubdivisionLevel: 2})
	tiledDecoded := decodedGrid(t, tiledTree, resolution)

	require.True(t, gridsEqual(monoDecoded, tiledDecoded), "tiled (L=2) and monolithic (L=0) builds must agree")
}

func TestBuildFromGridAgreesWithDirectBuild(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const resolution = 16
	g := voxelgrid.New(resolution)
	for x := 0; x < resolution; x++ {
		for y := 0; y < resolution; y++ {
			for z := 0; z < resolution; z++ {
				if rng.Intn(4) == 0 {
					g.Set(x, y, z)
				}
			}
		}
	}

	direct := octree.Build(g, nil)
	directDecoded := decodedGrid(t, direct, resolution)

	tiled := BuildFromGrid(g, 2, nil)
	tiledDecoded := decodedGrid(t, tiled, resolution)

	require.True(t, gridsEqual(directDecoded, tiledDecoded))
}

func TestTileCount(t *testing.T) {
	require.Equal(t, 1, TileCount(0))
	require.Equal(t, 8, TileCount(1))
	require.Equal(t, 64, TileCount(2))
}
