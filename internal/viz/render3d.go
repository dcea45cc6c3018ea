package viz

import (
	"math"

	"github.com/san-kum/mdsim/internal/dynamo"
)

// Camera looks at the origin from +Z after rotating the scene by RotX,
// RotY and RotZ in turn.
type Camera struct {
	RotX, RotY, RotZ float64
	Zoom             float64
	Distance         float64
}

func NewCamera() *Camera {
	return &Camera{RotX: 0.35, RotY: -0.5, Zoom: 1, Distance: 4}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

func (c *Camera) rotate(p dynamo.Vec3) dynamo.Vec3 {
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p[1], p[2] = p[1]*cx-p[2]*sx, p[1]*sx+p[2]*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p[0], p[2] = p[0]*cy+p[2]*sy, -p[0]*sy+p[2]*cy
	cz, sz := math.Cos(c.RotZ), math.Sin(c.RotZ)
	p[0], p[1] = p[0]*cz-p[1]*sz, p[0]*sz+p[1]*cz
	return p
}

// Project maps p, in units where the scene spans [-0.5, 0.5], to canvas
// sub-pixels of a sw x sh area. ok is false behind the camera.
func (c *Camera) Project(p dynamo.Vec3, sw, sh int) (x, y int, ok bool) {
	r := c.rotate(p).Scale(c.Zoom)
	if r[2] >= c.Distance-0.1 {
		return 0, 0, false
	}
	scale := c.Distance / (c.Distance - r[2])
	size := float64(min(sw, sh)) * 0.8
	x = int(r[0]*scale*size) + sw/2
	y = int(-r[1]*scale*size) + sh/2
	return x, y, true
}

// boxEdges are the corner index pairs of a cube's 12 edges.
var boxEdges = [12][2]int{
	{0, 1}, {1, 3}, {3, 2}, {2, 0},
	{4, 5}, {5, 7}, {7, 6}, {6, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// RenderBox draws the edges of box and the particles x, wrapped into the
// box and scaled so that its longest side spans the view.
func RenderBox(c *Canvas, cam *Camera, box dynamo.Tensor, x []dynamo.Vec3) {
	sw, sh := c.Width*2, c.Height*4
	side := [dynamo.DIM]float64{box[dynamo.XX][dynamo.XX], box[dynamo.YY][dynamo.YY], box[dynamo.ZZ][dynamo.ZZ]}
	scale := max(side[0], side[1], side[2])
	if scale <= 0 {
		scale = 1
		for _, p := range x {
			for d := 0; d < dynamo.DIM; d++ {
				scale = max(scale, 2*math.Abs(p[d]))
			}
		}
	}

	norm := func(p dynamo.Vec3) dynamo.Vec3 {
		for d := 0; d < dynamo.DIM; d++ {
			if side[d] > 0 {
				p[d] -= side[d] * math.Floor(p[d]/side[d])
				p[d] -= 0.5 * side[d]
			}
		}
		return p.Scale(1 / scale)
	}

	if box.Volume() > 0 {
		var corners [8]dynamo.Vec3
		for i := range corners {
			for d := 0; d < dynamo.DIM; d++ {
				corners[i][d] = (float64(i>>d&1) - 0.5) * side[d] / scale
			}
		}
		for _, e := range boxEdges {
			x0, y0, ok0 := cam.Project(corners[e[0]], sw, sh)
			x1, y1, ok1 := cam.Project(corners[e[1]], sw, sh)
			if ok0 && ok1 {
				c.DrawLine(x0, y0, x1, y1)
			}
		}
	}
	for _, p := range x {
		if px, py, ok := cam.Project(norm(p), sw, sh); ok {
			c.Dot(px, py)
		}
	}
}
