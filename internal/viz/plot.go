package viz

import "github.com/guptarohit/asciigraph"

// Plot renders values as a line chart of the given size with caption
// below it. Series longer than width are interpolated by asciigraph.
func Plot(values []float64, caption string, width, height int) string {
	if len(values) == 0 {
		return caption + ": no data"
	}
	return asciigraph.Plot(values,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Caption(caption),
	)
}
