// Package octree implements the sparse voxel octree builder of spec
// §4.3 and the tile-attach protocol of §4.4.
//
// Per Design Notes §9, the pointered node graph with two process-wide
// shared singletons is re-expressed as an arena of node records
// ([]Node): arena index 0 is the reserved AIR row, index 1 is the
// reserved SOLID row, and every other index is a genuine interior
// node (except the root of a resolution-1 octree, which Build turns
// into an AIR or SOLID row in place). A child slot is just a NodeRef (a uint32 arena index); testing
// "is this child air" is testing whether the ref equals AirRef,
// instead of chasing a shared pointer.
package octree

import (
	"math"

	"github.com/Spatchler/VMesh-CLI/internal/progress"
	"github.com/Spatchler/VMesh-CLI/internal/voxelgrid"
)

// NodeRef indexes into an Octree's node arena.
type NodeRef = uint32

// Reserved arena rows for the two leaf singletons.
const (
	AirRef   NodeRef = 0
	SolidRef NodeRef = 1
)

// Kind discriminates a node's role — the tagged-variant structure
// Design Notes §9 recommends in place of an isLeaf∧isAir flag pair.
type Kind uint8

const (
	KindAir Kind = iota
	KindSolid
	KindInterior
)

// Node is one arena row. Size/Origin/Children are meaningful only
// when Kind == KindInterior.
type Node struct {
	Kind     Kind
	Size     uint32
	Origin   [3]uint32
	Children [8]NodeRef
}

// Octree is an arena of Nodes with a distinguished Root.
type Octree struct {
	Nodes []Node
	Root  NodeRef
	Size  uint32
}

// Empty allocates an octree spanning [0, size)³ with a single,
// all-AIR interior root — the parent shell the tile orchestrator
// attaches independently-built sub-octrees into.
func Empty(size uint32) *Octree {
	return newOctree(size)
}

// newOctree allocates an octree spanning [0, size)³ with a single
// (not yet subdivided) interior root.
func newOctree(size uint32) *Octree {
	o := &Octree{
		Size:  size,
		Nodes: make([]Node, 2, 64),
	}
	o.Nodes[AirRef] = Node{Kind: KindAir}
	o.Nodes[SolidRef] = Node{Kind: KindSolid}
	o.Root = o.newInterior(size, [3]uint32{0, 0, 0})
	return o
}

func (o *Octree) newInterior(size uint32, origin [3]uint32) NodeRef {
	o.Nodes = append(o.Nodes, Node{
		Kind:     KindInterior,
		Size:     size,
		Origin:   origin,
		Children: [8]NodeRef{AirRef, AirRef, AirRef, AirRef, AirRef, AirRef, AirRef, AirRef},
	})
	return NodeRef(len(o.Nodes) - 1)
}

// decode maps a child index c ∈ [0,8) to its (x,y,z) unit-cube
// position, per spec §3's child-ordering contract: c = x | y<<1 | z<<2.
func decode(c int) [3]uint32 {
	return [3]uint32{uint32(c & 1), uint32((c >> 1) & 1), uint32((c >> 2) & 1)}
}

// encode is decode's inverse.
func encode(pos [3]uint32) int {
	return int(pos[0]) | int(pos[1])<<1 | int(pos[2])<<2
}

// Build constructs the sparse octree over grid's occupancy via
// top-down BFS uniformity-scan subdivision (spec §4.3). counter may be
// nil to disable progress reporting.
func Build(grid *voxelgrid.VoxelGrid, counter *progress.Counter) *Octree {
	o := newOctree(uint32(grid.Resolution))

	queue := []NodeRef{o.Root}
	for i := 0; i < len(queue); i++ {
		queue = append(queue, o.subdivide(grid, queue[i], counter)...)
	}
	return o
}

// subdivide processes one pending interior node: either collapses it
// into a leaf (when its children would have size 0) or scans each of
// its 8 children for uniformity, materializing interior nodes only
// for the mixed ones. It returns the newly created interior children,
// for the caller to enqueue.
func (o *Octree) subdivide(grid *voxelgrid.VoxelGrid, ref NodeRef, counter *progress.Counter) []NodeRef {
	size := o.Nodes[ref].Size
	childSize := size / 2

	if childSize == 0 {
		origin := o.Nodes[ref].Origin
		if grid.Query(int(origin[0]), int(origin[1]), int(origin[2])) {
			o.Nodes[ref].Kind = KindSolid
		} else {
			o.Nodes[ref].Kind = KindAir
		}
		return nil
	}

	childVolume := uint64(childSize) * uint64(childSize) * uint64(childSize)
	var newChildren []NodeRef

	for c := 0; c < 8; c++ {
		d := decode(c)
		parentOrigin := o.Nodes[ref].Origin
		origin := [3]uint32{
			parentOrigin[0] + d[0]*childSize,
			parentOrigin[1] + d[1]*childSize,
			parentOrigin[2] + d[2]*childSize,
		}

		allZero, allOne := scanUniform(grid, origin, childSize, counter)

		switch {
		case allZero:
			o.Nodes[ref].Children[c] = AirRef
			creditCollapse(counter, childSize, childVolume)
		case allOne:
			o.Nodes[ref].Children[c] = SolidRef
			creditCollapse(counter, childSize, childVolume)
		default:
			newRef := o.newInterior(childSize, origin)
			o.Nodes[ref].Children[c] = newRef
			newChildren = append(newChildren, newRef)
		}
	}

	return newChildren
}

// scanUniform scans the cube [origin, origin+size) of grid, reporting
// whether it is entirely unset (allZero) or entirely set (allOne),
// short-circuiting once neither can hold. It advances counter by one
// per voxel examined, then forces it up to the full childSize³ worth
// of "completed" work regardless of how early the scan broke — the
// overshoot the spec's progress model explicitly permits.
func scanUniform(grid *voxelgrid.VoxelGrid, origin [3]uint32, size uint32, counter *progress.Counter) (allZero, allOne bool) {
	allZero, allOne = true, true
	var examined uint64

scan:
	for z := origin[2]; z < origin[2]+size; z++ {
		for y := origin[1]; y < origin[1]+size; y++ {
			for x := origin[0]; x < origin[0]+size; x++ {
				if !allZero && !allOne {
					break scan
				}
				if grid.Query(int(x), int(y), int(z)) {
					allZero = false
				} else {
					allOne = false
				}
				examined++
			}
		}
	}

	if counter != nil {
		counter.Add(examined)
		full := uint64(size) * uint64(size) * uint64(size)
		if full > examined {
			counter.Add(full - examined)
		}
	}
	return allZero, allOne
}

// creditCollapse adds the "virtual work" credit for sub-levels skipped
// by collapsing a uniform child into a singleton (spec §4.3 step 3).
func creditCollapse(counter *progress.Counter, childSize uint32, childVolume uint64) {
	if counter == nil || childSize == 0 {
		return
	}
	levels := uint64(math.Log2(float64(childSize)))
	counter.Add(levels * childVolume)
}

// AttachSVO attaches sub under this octree at the given world-space
// origin, per spec §4.4's attach protocol. If sub's root is entirely
// AIR, the attach is a no-op.
func (o *Octree) AttachSVO(sub *Octree, origin [3]uint32) {
	if isAllAir(sub) {
		return
	}

	if sub.Size == o.Size {
		o.Root = importSubtree(o, sub, sub.Root)
		return
	}

	ownerRef := o.Root
	nodeSize := o.Size / 2
	for {
		parentOrigin := o.Nodes[ownerRef].Origin
		delta := [3]uint32{
			(origin[0] - parentOrigin[0]) / nodeSize,
			(origin[1] - parentOrigin[1]) / nodeSize,
			(origin[2] - parentOrigin[2]) / nodeSize,
		}
		c := encode(delta)

		if nodeSize == sub.Size {
			o.Nodes[ownerRef].Children[c] = importSubtree(o, sub, sub.Root)
			return
		}

		childRef := o.Nodes[ownerRef].Children[c]
		if childRef == AirRef || childRef == SolidRef {
			childOrigin := [3]uint32{
				parentOrigin[0] + delta[0]*nodeSize,
				parentOrigin[1] + delta[1]*nodeSize,
				parentOrigin[2] + delta[2]*nodeSize,
			}
			newRef := o.newInterior(nodeSize, childOrigin)
			o.Nodes[ownerRef].Children[c] = newRef
			childRef = newRef
		}

		ownerRef = childRef
		nodeSize /= 2
	}
}

// isAllAir reports whether sub's root is the AIR leaf, or an interior
// node whose 8 children are all the AIR leaf.
func isAllAir(sub *Octree) bool {
	root := sub.Nodes[sub.Root]
	switch root.Kind {
	case KindAir:
		return true
	case KindInterior:
		for _, c := range root.Children {
			if c != AirRef {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// importSubtree deep-copies the subtree rooted at ref in src's arena
// into dst's arena, returning the new root's ref in dst. AIR/SOLID
// refs need no copying — every Octree's arena reserves the same two
// rows for them — and a collapsed leaf root is mapped to those rows.
func importSubtree(dst, src *Octree, ref NodeRef) NodeRef {
	if ref == AirRef || ref == SolidRef {
		return ref
	}

	n := src.Nodes[ref]
	switch n.Kind {
	case KindAir:
		return AirRef
	case KindSolid:
		return SolidRef
	}
	dst.Nodes = append(dst.Nodes, n)
	newRef := NodeRef(len(dst.Nodes) - 1)

	if n.Kind == KindInterior {
		for i, c := range n.Children {
			dst.Nodes[newRef].Children[i] = importSubtree(dst, src, c)
		}
	}
	return newRef
}
