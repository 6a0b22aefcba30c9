package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/qsimlab/qsim/internal/store"
)

// PlotSeries renders the real part of each observable in a stored series as
// stacked terminal graphs.
func PlotSeries(series *store.Series, width, height int) string {
	if width <= 0 {
		width = graphWidth
	}
	if height <= 0 {
		height = graphHeight
	}

	var b strings.Builder
	for k, name := range series.Names {
		data := downsample(series.Re[k], width*2)
		caption := name
		if len(series.Times) > 0 {
			caption = fmt.Sprintf("%s  (t = %g .. %g)", name, series.Times[0], series.Times[len(series.Times)-1])
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Caption(caption))
		b.WriteString(graph)
		b.WriteString("\n\n")
	}
	return b.String()
}

// downsample thins a series to at most max points, keeping the endpoints.
func downsample(data []float64, max int) []float64 {
	if len(data) <= max || max < 2 {
		return data
	}
	out := make([]float64, max)
	step := float64(len(data)-1) / float64(max-1)
	for i := range out {
		out[i] = data[int(float64(i)*step+0.5)]
	}
	out[max-1] = data[len(data)-1]
	return out
}
