package report

import (
	"fmt"
	"io"
	"strconv"

	coinmath "github.com/drakos74/fuzzy-group/internal/math"
	"github.com/drakos74/fuzzy-group/internal/math/ml"
	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
)

// Table renders the group summaries as a table.
func Table(w io.Writer, groups []Summary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"group", "size", "confidence", "spread", "nearest", "separation", "centroid"})
	for _, s := range groups {
		table.Append([]string{
			strconv.Itoa(s.ID),
			strconv.Itoa(s.Size),
			fmt.Sprintf("%.2f", s.Confidence),
			fmt.Sprintf("%.2f", s.Spread),
			strconv.Itoa(s.Nearest),
			fmt.Sprintf("%.2f", s.Separation),
			formatFloats(s.Centroid),
		})
	}
	table.Render()
}

// Convergence plots the objective of every iteration of the trace.
func Convergence(trace *ml.Trace) string {
	if trace.Size() == 0 {
		return ""
	}
	objectives := make([]float64, trace.Size())
	for i, o := range trace.Objectives {
		objectives[i] = coinmath.ToFloat(o)
	}
	return asciigraph.Plot(objectives,
		asciigraph.Height(10),
		asciigraph.Caption(fmt.Sprintf("objective over %d iterations", trace.Size())))
}
