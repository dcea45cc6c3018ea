package viz

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/mdsim/internal/dynamo"
)

const svgBackground = "#0a0a0a"

func svgHeader(sb *strings.Builder, w, h float64) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, w, h, w, h, svgBackground)
}

// CanvasSVG draws every lit sub-pixel of c as a circle, scale pixels
// apart.
func CanvasSVG(c *Canvas, scale float64, theme Theme) string {
	if c == nil {
		return ""
	}
	var sb strings.Builder
	svgHeader(&sb, float64(c.Width*2)*scale, float64(c.Height*4)*scale)
	fmt.Fprintf(&sb, "<g fill=\"%s\">\n", theme.Primary)

	r := scale * 0.4
	for row := range c.Grid {
		for col, cell := range c.Grid[row] {
			pattern := cell - brailleBlank
			if pattern <= 0 {
				continue
			}
			for dy := range pixelMap {
				for dx := range pixelMap[dy] {
					if pattern&pixelMap[dy][dx] == 0 {
						continue
					}
					cx := (float64(col*2+dx) + 0.5) * scale
					cy := (float64(row*4+dy) + 0.5) * scale
					fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, r)
				}
			}
		}
	}
	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

// SnapshotSVG renders the box and positions x seen from cam.
func SnapshotSVG(cam *Camera, box dynamo.Tensor, x []dynamo.Vec3, theme Theme) string {
	c := NewCanvas(width, height)
	RenderBox(c, cam, box, x)
	return CanvasSVG(c, 4, theme)
}

// SeriesSVG draws values against t as a polyline in a w x h frame with a
// tenth of each range as padding.
func SeriesSVG(t, values []float64, w, h int, theme Theme) string {
	if len(values) < 2 || len(t) != len(values) {
		return ""
	}
	minX, maxX := floats.Min(t), floats.Max(t)
	minY, maxY := floats.Min(values), floats.Max(values)
	rx, ry := maxX-minX, maxY-minY
	if rx == 0 {
		rx = 1
	}
	if ry == 0 {
		ry = 1
	}
	minX -= rx * 0.1
	minY -= ry * 0.1
	rx *= 1.2
	ry *= 1.2

	var sb strings.Builder
	svgHeader(&sb, float64(w), float64(h))
	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, theme.Accent)
	for i := range values {
		px := (t[i] - minX) / rx * float64(w)
		py := float64(h) - (values[i]-minY)/ry*float64(h)
		if i > 0 {
			sb.WriteString(" L")
		}
		fmt.Fprintf(&sb, "%.1f,%.1f", px, py)
	}
	sb.WriteString("\"/>\n</svg>\n")
	return sb.String()
}
