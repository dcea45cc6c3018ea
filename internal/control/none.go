package control

import (
	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/groups"
)

// None leaves every Lambda at 1 and the box unchanged.
type None struct{}

func NewNone() *None {
	return &None{}
}

func (n *None) Name() string { return "none" }

func (n *None) Couple(tc []groups.TCGroup, dt float64) {
	for i := range tc {
		tc[i].Lambda = 1
	}
}

func (n *None) Scale(step int, dt float64, pres dynamo.Tensor, box *dynamo.Tensor,
	x []dynamo.Vec3, atoms *dynamo.Atoms, freeze groups.FreezeTable) dynamo.Vec3 {
	return dynamo.Vec3{1, 1, 1}
}
