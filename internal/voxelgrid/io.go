package voxelgrid

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// WriteToFile emits the byte-packed voxel-grid format of spec §4.2/§6:
// a little-endian u32 resolution, followed by ⌈R³/8⌉ bytes. Voxel k
// (k = x·R² + y·R + z, matching VoxelGrid.index) is bit (k mod 8) of
// byte ⌊k/8⌋ — equivalent to the original's running "flush when
// count == 7" loop, just expressed as direct index arithmetic.
func (g *VoxelGrid) WriteToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("voxelgrid: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint32(g.Resolution)); err != nil {
		return err
	}

	r := g.Resolution
	total := r * r * r
	numBytes := (total + 7) / 8
	buf := make([]byte, numBytes)

	for x := 0; x < r; x++ {
		for y := 0; y < r; y++ {
			for z := 0; z < r; z++ {
				k := x*r*r + y*r + z
				if g.Query(x, y, z) {
					buf[k/8] |= 1 << uint(k%8)
				}
			}
		}
	}

	if _, err := w.Write(buf); err != nil {
		return err
	}
	return w.Flush()
}

// LoadFromFile reverses WriteToFile, returning a freshly populated
// grid sized from the embedded resolution.
func LoadFromFile(path string) (*VoxelGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("voxelgrid: open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var resolution uint32
	if err := binary.Read(r, binary.LittleEndian, &resolution); err != nil {
		return nil, fmt.Errorf("voxelgrid: %s: reading resolution: %w", path, err)
	}

	g := New(int(resolution))
	res := g.Resolution
	total := res * res * res
	numBytes := (total + 7) / 8
	buf := make([]byte, numBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("voxelgrid: %s: reading voxel data: %w", path, err)
	}

	for x := 0; x < res; x++ {
		for y := 0; y < res; y++ {
			for z := 0; z < res; z++ {
				k := x*res*res + y*res + z
				if buf[k/8]&(1<<uint(k%8)) != 0 {
					g.Set(x, y, z)
				}
			}
		}
	}

	return g, nil
}

// WriteToFileCompressed emits the run-length-compressed voxel format
// of spec §4.2/§6: a little-endian u32 resolution, followed by a
// sequence of (value u32, runLength u32) pairs collapsing runs of
// identical voxels over the same traversal as WriteToFile.
func (g *VoxelGrid) WriteToFileCompressed(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("voxelgrid: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint32(g.Resolution)); err != nil {
		return err
	}

	r := g.Resolution
	var runValue uint32
	var runLength uint32
	started := false

	flush := func() error {
		if !started {
			return nil
		}
		if err := binary.Write(w, binary.LittleEndian, runValue); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, runLength)
	}

	for x := 0; x < r; x++ {
		for y := 0; y < r; y++ {
			for z := 0; z < r; z++ {
				var v uint32
				if g.Query(x, y, z) {
					v = 1
				}
				switch {
				case !started:
					started = true
					runValue = v
					runLength = 1
				case v == runValue:
					runLength++
				default:
					if err := flush(); err != nil {
						return err
					}
					runValue = v
					runLength = 1
				}
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	return w.Flush()
}

// LoadFromFileCompressed reverses WriteToFileCompressed.
func LoadFromFileCompressed(path string) (*VoxelGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("voxelgrid: open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var resolution uint32
	if err := binary.Read(r, binary.LittleEndian, &resolution); err != nil {
		return nil, fmt.Errorf("voxelgrid: %s: reading resolution: %w", path, err)
	}

	g := New(int(resolution))
	res := g.Resolution
	total := res * res * res

	x, y, z := 0, 0, 0
	advance := func() {
		z++
		if z == res {
			z = 0
			y++
			if y == res {
				y = 0
				x++
			}
		}
	}

	filled := 0
	for filled < total {
		var value, runLength uint32
		if err := binary.Read(r, binary.LittleEndian, &value); err != nil {
			return nil, fmt.Errorf("voxelgrid: %s: reading run value: %w", path, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &runLength); err != nil {
			return nil, fmt.Errorf("voxelgrid: %s: reading run length: %w", path, err)
		}
		for i := uint32(0); i < runLength; i++ {
			if value != 0 {
				g.Set(x, y, z)
			}
			advance()
		}
		filled += int(runLength)
	}

	return g, nil
}
