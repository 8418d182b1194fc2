package svdag

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Spatchler/VMesh-CLI/internal/octree"
	"github.com/Spatchler/VMesh-CLI/internal/voxelgrid"
)

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

func TestEmitIndicesAllAirIsSingleRecord(t *testing.T) {
	g := voxelgrid.New(8)
	tree := octree.Build(g, nil)
	records := EmitIndices(tree)

	require.Len(t, records, 1)
	for _, v := range records[0] {
		require.Equal(t, SentinelAir, v)
	}
}

func TestEmitIndicesAllSolidIsSingleRecord(t *testing.T) {
	g := voxelgrid.New(8)
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			for z := 0; z < 8; z++ {
				g.Set(x, y, z)
			}
		}
	}
	tree := octree.Build(g, nil)
	records := EmitIndices(tree)

	require.Len(t, records, 1)
	for _, v := range records[0] {
		require.Equal(t, SentinelSolid, v)
	}
}

func TestOctreeEquivalenceRandomGrid(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, r := range []int{2, 4, 16} {
		g := voxelgrid.New(r)
		for x := 0; x < r; x++ {
			for y := 0; y < r; y++ {
				for z := 0; z < r; z++ {
					if rng.Intn(3) == 0 {
						g.Set(x, y, z)
					}
				}
			}
		}

		tree := octree.Build(g, nil)
		records := EmitIndices(tree)

		decoded, err := Decode(uint32(r), records)
		require.NoError(t, err)
		require.True(t, gridsEqual(g, decoded), "decode mismatch at R=%d", r)
	}
}

func TestWriteReadFileRoundTrip(t *testing.T) {
	g := voxelgrid.New(4)
	for x := 0; x < 2; x++ {
		for y := 0; y < 4; y++ {
			for z := 0; z < 4; z++ {
				g.Set(x, y, z)
			}
		}
	}
	tree := octree.Build(g, nil)
	records := EmitIndices(tree)

	path := filepath.Join(t.TempDir(), "grid.svo")
	require.NoError(t, WriteFile(path, 4, records))

	gotRes, gotRecords, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, uint32(4), gotRes)
	require.Equal(t, records, gotRecords)
}

func TestEmptyInputDegenerateTriangleScenario(t *testing.T) {
	// Scenario 1: a single degenerate zero-area triangle sets no cells
	// under SAT, so this starts from the empty R=8 grid it leaves ->
	// octree file header R=8, palette=1, N=1, single record [AIR x8].
	g := voxelgrid.New(8)
	tree := octree.Build(g, nil)
	records := EmitIndices(tree)

	path := filepath.Join(t.TempDir(), "empty.svo")
	require.NoError(t, WriteFile(path, 8, records))

	res, got, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, uint32(8), res)
	require.Len(t, got, 1)
	for _, v := range got[0] {
		require.Equal(t, SentinelAir, v)
	}
}
