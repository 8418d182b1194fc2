// Package svdag implements the two-pass index emitter and .svo file
// codec of spec §4.5/§6: flattening an octree.Octree's arena into the
// BFS-ordered array of 8-tuples the wire format stores, and reversing
// that array back into a dense voxel grid.
package svdag

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/Spatchler/VMesh-CLI/internal/octree"
	"github.com/Spatchler/VMesh-CLI/internal/voxelgrid"
)

// Sentinel values stored in an index record in place of a child
// record index, per spec §6: UINT32_MAX-1 is AIR, UINT32_MAX is SOLID.
const (
	SentinelAir   uint32 = math.MaxUint32 - 1
	SentinelSolid uint32 = math.MaxUint32
)

// Record is one emitted 8-tuple: per-child either a sentinel or the
// index of another record.
type Record [8]uint32

// EmitIndices flattens o into BFS order: record 0 is always the root
// (even when the root itself collapsed to a pure AIR/SOLID leaf, in
// which case its record holds that sentinel repeated 8 times), and
// every other record corresponds to one interior node reachable
// through child slots that aren't themselves sentinels.
func EmitIndices(o *octree.Octree) []Record {
	recordOf := map[octree.NodeRef]uint32{o.Root: 0}
	queue := []octree.NodeRef{o.Root}
	records := make([]Record, 1)

	for i := 0; i < len(queue); i++ {
		ref := queue[i]
		node := o.Nodes[ref]
		if node.Kind != octree.KindInterior {
			continue
		}
		for _, c := range node.Children {
			if c == octree.AirRef || c == octree.SolidRef {
				continue
			}
			if _, seen := recordOf[c]; seen {
				continue
			}
			recordOf[c] = uint32(len(records))
			records = append(records, Record{})
			queue = append(queue, c)
		}
	}

	for _, ref := range queue {
		node := o.Nodes[ref]
		row := recordOf[ref]

		if node.Kind != octree.KindInterior {
			sentinel := SentinelAir
			if node.Kind == octree.KindSolid {
				sentinel = SentinelSolid
			}
			for i := 0; i < 8; i++ {
				records[row][i] = sentinel
			}
			continue
		}

		for i, c := range node.Children {
			switch c {
			case octree.AirRef:
				records[row][i] = SentinelAir
			case octree.SolidRef:
				records[row][i] = SentinelSolid
			default:
				records[row][i] = recordOf[c]
			}
		}
	}

	return records
}

// WriteFile emits the .svo file format of spec §6: u32 resolution,
// u32 paletteSize (always 1 — a single-material palette), u32 record
// count, then the records themselves as raw u32 8-tuples.
func WriteFile(path string, resolution uint32, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("svdag: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	header := []uint32{resolution, 1, uint32(len(records))}
	for _, h := range header {
		if err := binary.Write(w, binary.LittleEndian, h); err != nil {
			return err
		}
	}
	for _, rec := range records {
		if err := binary.Write(w, binary.LittleEndian, rec); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ReadFile reverses WriteFile.
func ReadFile(path string) (resolution uint32, records []Record, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("svdag: open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var paletteSize, count uint32
	if err := binary.Read(r, binary.LittleEndian, &resolution); err != nil {
		return 0, nil, fmt.Errorf("svdag: %s: reading resolution: %w", path, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &paletteSize); err != nil {
		return 0, nil, fmt.Errorf("svdag: %s: reading palette size: %w", path, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return 0, nil, fmt.Errorf("svdag: %s: reading record count: %w", path, err)
	}

	records = make([]Record, count)
	for i := range records {
		if err := binary.Read(r, binary.LittleEndian, &records[i]); err != nil {
			return 0, nil, fmt.Errorf("svdag: %s: reading record %d: %w", path, i, err)
		}
	}
	return resolution, records, nil
}

// Decode expands a BFS record array back into a dense VoxelGrid,
// letting the index-emission/octree-construction round trip be tested
// for equivalence against the grid that produced it.
func Decode(resolution uint32, records []Record) (*voxelgrid.VoxelGrid, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("svdag: decode: empty record array")
	}
	g := voxelgrid.New(int(resolution))

	var walk func(row uint32, origin [3]int, size int) error
	walk = func(row uint32, origin [3]int, size int) error {
		if int(row) >= len(records) {
			return fmt.Errorf("svdag: decode: record index %d out of range", row)
		}
		rec := records[row]
		childSize := size / 2

		if childSize == 0 {
			// A size-1 node repeats its one voxel's sentinel in every slot.
			if rec[0] == SentinelSolid {
				g.Set(origin[0], origin[1], origin[2])
			}
			return nil
		}

		for c := 0; c < 8; c++ {
			childOrigin := [3]int{
				origin[0] + (c&1)*childSize,
				origin[1] + ((c>>1)&1)*childSize,
				origin[2] + ((c>>2)&1)*childSize,
			}
			switch rec[c] {
			case SentinelAir:
				// leave unset
			case SentinelSolid:
				fillCube(g, childOrigin, childSize)
			default:
				if err := walk(rec[c], childOrigin, childSize); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := walk(0, [3]int{0, 0, 0}, int(resolution)); err != nil {
		return nil, err
	}
	return g, nil
}

func fillCube(g *voxelgrid.VoxelGrid, origin [3]int, size int) {
	for x := origin[0]; x < origin[0]+size; x++ {
		for y := origin[1]; y < origin[1]+size; y++ {
			for z := origin[2]; z < origin[2]+size; z++ {
				g.Set(x, y, z)
			}
		}
	}
}
