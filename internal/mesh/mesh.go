// Package mesh implements the external mesh-loader collaborator
// described in spec §6: a triangle mesh loaded from disk, exposing
// the fixed vertices()/indices()/triCount()/transformVertices(M)
// contract. Only Wavefront OBJ is supported — the wire format itself
// is out of the core spec's scope, but the CLI needs something
// runnable end to end.
package mesh

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Spatchler/VMesh-CLI/internal/geom"
)

// ErrParse wraps any failure to interpret the contents of an otherwise
// openable mesh file — malformed records, bad indices, no vertices —
// as opposed to the file simply not being openable. Callers (notably
// internal/cli) use errors.Is(err, ErrParse) to pick the InputParse
// error kind of spec §7 over IOOpen.
var ErrParse = errors.New("mesh: parse error")

// Mesh is an ordered vertex array and an ordered triangle-index array,
// as described in spec §3: |Indices| % 3 == 0, triangles are
// (V[I[3k]], V[I[3k+1]], V[I[3k+2]]).
type Mesh struct {
	Vertices []geom.Vec3
	Indices  []uint32
}

// TriCount returns the number of triangles in the mesh.
func (m *Mesh) TriCount() int {
	return len(m.Indices) / 3
}

// Triangle returns the k-th triangle.
func (m *Mesh) Triangle(k int) geom.Triangle {
	i := k * 3
	return geom.Triangle{
		m.Vertices[m.Indices[i]],
		m.Vertices[m.Indices[i+1]],
		m.Vertices[m.Indices[i+2]],
	}
}

// Bounds returns the per-axis min/max of the vertices actually
// referenced by Indices, per spec §3(a). A mesh with no triangles
// returns a degenerate box at the origin.
func (m *Mesh) Bounds() (min, max geom.Vec3) {
	if len(m.Indices) == 0 {
		return geom.Vec3{}, geom.Vec3{}
	}
	min = m.Vertices[m.Indices[0]]
	max = min
	for _, idx := range m.Indices {
		v := m.Vertices[idx]
		for axis := 0; axis < 3; axis++ {
			if v[axis] < min[axis] {
				min[axis] = v[axis]
			}
			if v[axis] > max[axis] {
				max[axis] = v[axis]
			}
		}
	}
	return min, max
}

// TransformVertices applies t to every vertex in place.
func (m *Mesh) TransformVertices(t geom.Transform) {
	for i, v := range m.Vertices {
		m.Vertices[i] = t.Apply(v)
	}
}

// Load reads a Wavefront OBJ file: "v x y z" vertex records and
// "f i j k ..." face records (1-based, possibly slash-suffixed with
// texture/normal indices which are ignored). Polygonal faces with more
// than three vertices are fan-triangulated around the first vertex.
func Load(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mesh: open %s: %w", path, err)
	}
	defer f.Close()

	m := &Mesh{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			v, err := parseVertex(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("mesh: %s:%d: %w: %w", path, line, ErrParse, err)
			}
			m.Vertices = append(m.Vertices, v)

		case "f":
			idxs, err := parseFace(fields[1:], len(m.Vertices))
			if err != nil {
				return nil, fmt.Errorf("mesh: %s:%d: %w: %w", path, line, ErrParse, err)
			}
			for i := 1; i+1 < len(idxs); i++ {
				m.Indices = append(m.Indices, idxs[0], idxs[i], idxs[i+1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("mesh: %s: %w", path, err)
	}
	if len(m.Vertices) == 0 {
		return nil, fmt.Errorf("mesh: %s: %w: no vertices", path, ErrParse)
	}

	return m, nil
}

func parseVertex(fields []string) (geom.Vec3, error) {
	if len(fields) < 3 {
		return geom.Vec3{}, fmt.Errorf("short vertex record")
	}
	var v geom.Vec3
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return geom.Vec3{}, fmt.Errorf("bad vertex coordinate %q: %w", fields[i], err)
		}
		v[i] = f
	}
	return v, nil
}

func parseFace(fields []string, vertexCount int) ([]uint32, error) {
	if len(fields) < 3 {
		return nil, fmt.Errorf("face with fewer than 3 vertices")
	}
	idxs := make([]uint32, len(fields))
	for i, field := range fields {
		tok := field
		if slash := strings.IndexByte(tok, '/'); slash >= 0 {
			tok = tok[:slash]
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("bad face index %q: %w", field, err)
		}
		if n < 0 {
			// OBJ allows negative (relative-to-end) indices.
			n = vertexCount + n + 1
		}
		if n < 1 || n > vertexCount {
			return nil, fmt.Errorf("face index %d out of range [1,%d]", n, vertexCount)
		}
		idxs[i] = uint32(n - 1)
	}
	return idxs, nil
}
