package report

import (
	"fmt"
	"math"
	"strings"

	coinmath "github.com/drakos74/fuzzy-group/internal/math"
	"github.com/drakos74/fuzzy-group/internal/math/ml"
	"github.com/drakos74/fuzzy-group/internal/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds the float statistics of a group.
// Confidence is the mean weight of the members for the group and Spread its standard deviation
// Nearest is the id of the closest other group and Separation the distance of the centroids
type Summary struct {
	ID         int       `json:"id"`
	Size       int       `json:"size"`
	Centroid   []float64 `json:"centroid"`
	Confidence float64   `json:"confidence"`
	Spread     float64   `json:"spread"`
	Nearest    int       `json:"nearest"`
	Separation float64   `json:"separation"`
}

// Summarize computes the summary for each of the groups.
func Summarize(groups []*model.Group) []Summary {
	summaries := make([]Summary, len(groups))
	for i, g := range groups {
		weights := make([]float64, g.Size())
		for j, m := range g.Members {
			weights[j] = coinmath.ToFloat(m.Weight(g.ID))
		}
		s := Summary{
			ID:       g.ID,
			Size:     g.Size(),
			Centroid: g.Centroid.Float64s(),
		}
		if len(weights) > 0 {
			s.Confidence = stat.Mean(weights, nil)
		}
		if len(weights) > 1 {
			s.Spread = stat.StdDev(weights, nil)
		}
		s.Separation = math.Inf(1)
		for _, o := range groups {
			if o.ID == g.ID || len(o.Centroid) != len(g.Centroid) {
				continue
			}
			d := floats.Distance(s.Centroid, o.Centroid.Float64s(), 2)
			if d < s.Separation {
				s.Separation = d
				s.Nearest = o.ID
			}
		}
		if s.Nearest == 0 {
			s.Separation = 0
		}
		summaries[i] = s
	}
	return summaries
}

// Format creates a text report of the clustering result.
func Format(result ml.Result) string {
	buffer := new(strings.Builder)
	buffer.WriteString(fmt.Sprintf("run %s | %s after %d iterations | objective = %s\n",
		result.ID,
		result.State,
		result.Iterations,
		coinmath.Format(result.Objective)))
	for _, s := range Summarize(result.Groups) {
		buffer.WriteString(formatSummary(s))
	}
	for _, g := range result.Groups {
		buffer.WriteString(formatGroup(g))
	}
	if len(result.Orphans) > 0 {
		buffer.WriteString(fmt.Sprintf("orphans : %s\n", formatMembers(result.Orphans, 0)))
	}
	return buffer.String()
}

func formatSummary(s Summary) string {
	return fmt.Sprintf("[%d] size = %d | confidence = %.2f(%.2f) | nearest = %d (%.2f) | centroid = %s\n",
		s.ID, s.Size, s.Confidence, s.Spread, s.Nearest, s.Separation, formatFloats(s.Centroid))
}

func formatGroup(g *model.Group) string {
	return fmt.Sprintf("[%d] %s\n", g.ID, formatMembers(g.Members, g.ID))
}

func formatMembers(members []*model.Membership, id int) string {
	ss := make([]string, len(members))
	for i, m := range members {
		name := m.Entity.Name
		if name == "" {
			name = fmt.Sprintf("%d", m.Entity.ID)
		}
		if id > 0 {
			ss[i] = fmt.Sprintf("%s(%.2f)", name, coinmath.ToFloat(m.Weight(id)))
		} else {
			ss[i] = name
		}
	}
	return strings.Join(ss, " ")
}

func formatFloats(ff []float64) string {
	ss := make([]string, len(ff))
	for i, f := range ff {
		ss[i] = fmt.Sprintf("%.2f", f)
	}
	return fmt.Sprintf("%+v", ss)
}
