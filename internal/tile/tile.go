// Package tile implements the tile orchestrator of spec §4.4: the
// full R³ domain is split into (2^L)³ independently voxelized and
// built sub-cubes, which are then attached into a single parent
// octree — letting each sub-cube's voxel grid stay small even when
// the overall resolution is huge.
package tile

import (
	"fmt"

	"github.com/Spatchler/VMesh-CLI/internal/mesh"
	"github.com/Spatchler/VMesh-CLI/internal/octree"
	"github.com/Spatchler/VMesh-CLI/internal/progress"
	"github.com/Spatchler/VMesh-CLI/internal/voxelgrid"
)

// Options configures a tiled build.
type Options struct {
	Resolution       int
	SubdivisionLevel int // L; domain splits into (2^L)³ tiles
	UseDDA           bool
	Counter          *progress.Counter
}

// Build voxelizes and octree-builds m tile by tile and attaches each
// result into a single parent octree spanning the full resolution.
// Resolution must be evenly divisible by 2^L (validated by the
// caller); Build panics on violation since it's a programmer
// precondition, not a user-facing input error.
func Build(m *mesh.Mesh, opts Options) *octree.Octree {
	tilesPerAxis := 1 << uint(opts.SubdivisionLevel)
	if opts.Resolution%tilesPerAxis != 0 {
		panic(fmt.Sprintf("tile: resolution %d not divisible by 2^%d", opts.Resolution, opts.SubdivisionLevel))
	}
	tileSize := opts.Resolution / tilesPerAxis

	parent := octree.Empty(uint32(opts.Resolution))

	for tx := 0; tx < tilesPerAxis; tx++ {
		for ty := 0; ty < tilesPerAxis; ty++ {
			for tz := 0; tz < tilesPerAxis; tz++ {
				origin := [3]int{tx * tileSize, ty * tileSize, tz * tileSize}

				grid := voxelgrid.New(tileSize)
				grid.SetOrigin(origin)
				if opts.UseDDA {
					grid.VoxelizeDDA(m, opts.Counter)
				} else {
					grid.VoxelizeSAT(m, opts.Counter)
				}

				sub := octree.Build(grid, opts.Counter)
				parent.AttachSVO(sub, [3]uint32{
					uint32(origin[0]), uint32(origin[1]), uint32(origin[2]),
				})
			}
		}
	}

	return parent
}

// TileCount returns the total number of tiles a subdivision level L
// produces — (2^L)³.
func TileCount(subdivisionLevel int) int {
	n := 1 << uint(subdivisionLevel)
	return n * n * n
}

// BuildFromGrid slices an already-populated grid into (2^L)³ sub-cubes
// and attaches an independently built sub-octree per slice, the same
// way Build does for a freshly voxelized mesh. Used by
// --voxel-to-svdag, which has a grid already in hand and no mesh to
// re-voxelize per tile.
func BuildFromGrid(grid *voxelgrid.VoxelGrid, subdivisionLevel int, counter *progress.Counter) *octree.Octree {
	tilesPerAxis := 1 << uint(subdivisionLevel)
	if grid.Resolution%tilesPerAxis != 0 {
		panic(fmt.Sprintf("tile: resolution %d not divisible by 2^%d", grid.Resolution, subdivisionLevel))
	}
	tileSize := grid.Resolution / tilesPerAxis

	parent := octree.Empty(uint32(grid.Resolution))

	for tx := 0; tx < tilesPerAxis; tx++ {
		for ty := 0; ty < tilesPerAxis; ty++ {
			for tz := 0; tz < tilesPerAxis; tz++ {
				origin := [3]int{tx * tileSize, ty * tileSize, tz * tileSize}

				sub := voxelgrid.New(tileSize)
				for x := 0; x < tileSize; x++ {
					for y := 0; y < tileSize; y++ {
						for z := 0; z < tileSize; z++ {
							if grid.Query(origin[0]+x, origin[1]+y, origin[2]+z) {
								sub.Set(x, y, z)
							}
						}
					}
				}

				subTree := octree.Build(sub, counter)
				parent.AttachSVO(subTree, [3]uint32{
					uint32(origin[0]), uint32(origin[1]), uint32(origin[2]),
				})
			}
		}
	}

	return parent
}
