// Package pbc handles periodic images: the table of shift vectors of a
// rectangular box and the molecular graph that keeps bonded particles in
// one image while the update step runs.
package pbc

import (
	"fmt"
	"math"

	"github.com/san-kum/mdsim/internal/dynamo"
)

// NumShifts is the number of image shifts, -1..1 in each dimension.
const NumShifts = 27

// CentralShift is the index of the zero shift.
const CentralShift = 13

// ShiftIndex maps an image offset (each in -1..1) to its shift index.
func ShiftIndex(x, y, z int) int {
	return 3*(3*(z+1)+y+1) + x + 1
}

// ShiftVectors returns the NumShifts image translations of box.
func ShiftVectors(box dynamo.Tensor) []dynamo.Vec3 {
	sv := make([]dynamo.Vec3, NumShifts)
	for z := -1; z <= 1; z++ {
		for y := -1; y <= 1; y++ {
			for x := -1; x <= 1; x++ {
				var s dynamo.Vec3
				for d := 0; d < dynamo.DIM; d++ {
					s[d] = float64(x)*box[dynamo.XX][d] + float64(y)*box[dynamo.YY][d] + float64(z)*box[dynamo.ZZ][d]
				}
				sv[ShiftIndex(x, y, z)] = s
			}
		}
	}
	return sv
}

// Periodic reports whether box describes a periodic cell.
func Periodic(box dynamo.Tensor) bool {
	return box.Volume() > 0
}

// MinimumImage returns the shortest periodic image of dx in a rectangular
// box. Dimensions with a zero box length are not wrapped.
func MinimumImage(dx dynamo.Vec3, box dynamo.Tensor) dynamo.Vec3 {
	for d := 0; d < dynamo.DIM; d++ {
		l := box[d][d]
		if l > 0 {
			dx[d] -= l * math.Round(dx[d]/l)
		}
	}
	return dx
}

// Graph connects the bonded particles in [Start, Start+NNodes). IShift
// holds, per node, the shift index that makes its molecule whole.
type Graph struct {
	Start  int
	NNodes int
	IShift []int

	adj [][]int
}

// NewGraph builds the graph of the bonded pairs. Particles outside any
// pair are not nodes. The shifts are all central until Update is called.
func NewGraph(n int, pairs [][2]int) (*Graph, error) {
	if len(pairs) == 0 {
		return &Graph{}, nil
	}
	lo, hi := n, -1
	for _, p := range pairs {
		for _, i := range p {
			if i < 0 || i >= n {
				return nil, fmt.Errorf("pbc: pair index %d out of %d particles: %w", i, n, dynamo.ErrDimensionMismatch)
			}
			lo = min(lo, i)
			hi = max(hi, i)
		}
	}

	g := &Graph{
		Start:  lo,
		NNodes: hi - lo + 1,
		IShift: make([]int, hi-lo+1),
		adj:    make([][]int, hi-lo+1),
	}
	for _, p := range pairs {
		a, b := p[0]-lo, p[1]-lo
		g.adj[a] = append(g.adj[a], b)
		g.adj[b] = append(g.adj[b], a)
	}
	for i := range g.IShift {
		g.IShift[i] = CentralShift
	}
	return g, nil
}

// Update recomputes the node shifts from x so that every bonded neighbour
// sits in the image nearest to the node it was reached from. The first
// node of each connected component keeps the central image.
func (g *Graph) Update(x []dynamo.Vec3, box dynamo.Tensor) {
	if g.NNodes == 0 {
		return
	}
	offset := make([][dynamo.DIM]int, g.NNodes)
	seen := make([]bool, g.NNodes)
	queue := make([]int, 0, g.NNodes)

	for root := 0; root < g.NNodes; root++ {
		if seen[root] || len(g.adj[root]) == 0 {
			continue
		}
		seen[root] = true
		queue = append(queue[:0], root)
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			for _, j := range g.adj[i] {
				if seen[j] {
					continue
				}
				seen[j] = true
				for d := 0; d < dynamo.DIM; d++ {
					l := box[d][d]
					if l <= 0 {
						continue
					}
					xi := x[g.Start+i][d] + float64(offset[i][d])*l
					t := -int(math.Round((x[g.Start+j][d] - xi) / l))
					offset[j][d] = max(-1, min(1, t))
				}
				queue = append(queue, j)
			}
		}
	}

	for i := range g.IShift {
		g.IShift[i] = ShiftIndex(offset[i][dynamo.XX], offset[i][dynamo.YY], offset[i][dynamo.ZZ])
	}
}

// Shift writes the whole-molecule positions of x to xs. Particles outside
// the graph are copied.
func (g *Graph) Shift(shift []dynamo.Vec3, x, xs []dynamo.Vec3) {
	copy(xs, x)
	for j := 0; j < g.NNodes; j++ {
		n := g.Start + j
		xs[n] = x[n].Add(shift[g.IShift[j]])
	}
}

// Unshift undoes Shift for the graph nodes, writing xs minus each node's
// shift to x. Only nodes are written.
func (g *Graph) Unshift(shift []dynamo.Vec3, x, xs []dynamo.Vec3) {
	for j := 0; j < g.NNodes; j++ {
		n := g.Start + j
		x[n] = xs[n].Sub(shift[g.IShift[j]])
	}
}
