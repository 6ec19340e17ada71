package visuals

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"growth-mcp/internal/dispatch"
	"growth-mcp/internal/forecast"
	"growth-mcp/internal/reference"
	"growth-mcp/internal/stats"
)

// BandPercentiles are the background reference curves drawn behind the
// child's measurements.
var BandPercentiles = []float64{3, 10, 50, 90, 97}

// GenerateGrowthCharts renders one Mermaid chart per measure present in the
// chart request, height first.
func GenerateGrowthCharts(table *reference.Table, chart *dispatch.Chart) []string {
	if chart == nil {
		return nil
	}
	var out []string
	if c := GenerateGrowthChart(table, chart, reference.Height); c != "" {
		out = append(out, c)
	}
	if c := GenerateGrowthChart(table, chart, reference.Weight); c != "" {
		out = append(out, c)
	}
	return out
}

// GenerateGrowthChart creates a Mermaid xychart-beta for one measure: the
// reference percentile bands, the recorded values and, when available, the
// 12-month projection as the final point.
func GenerateGrowthChart(table *reference.Table, chart *dispatch.Chart, measure reference.Measure) string {
	if chart == nil {
		return ""
	}

	// Last recorded value wins when the same age was entered twice.
	recorded := make(map[int]float64)
	var ages []int
	for _, m := range chart.History {
		v, ok := m.Value(measure)
		if !ok {
			continue
		}
		if _, seen := recorded[m.AgeMonths]; !seen {
			ages = append(ages, m.AgeMonths)
		}
		recorded[m.AgeMonths] = v
	}
	if len(ages) == 0 {
		return ""
	}

	projection := projectionFor(chart, measure)
	if projection != nil {
		if _, seen := recorded[projection.TargetAge]; !seen {
			ages = append(ages, projection.TargetAge)
		}
	}
	slices.Sort(ages)

	var labels, values []string
	minY, maxY := math.Inf(1), math.Inf(-1)
	track := func(v float64) {
		minY = math.Min(minY, v)
		maxY = math.Max(maxY, v)
	}

	for _, age := range ages {
		labels = append(labels, fmt.Sprintf("\"%dm\"", age))
		v, ok := recorded[age]
		if !ok && projection != nil && age == projection.TargetAge {
			v = projection.ProjectedValue
		}
		values = append(values, fmt.Sprintf("%.1f", v))
		track(v)
	}

	var bands []string
	if chart.Sex.Valid() {
		for _, p := range BandPercentiles {
			band := make([]string, 0, len(ages))
			for _, age := range ages {
				ref, _, ok := table.Resolve(chart.Sex, measure, age)
				if !ok {
					band = nil
					break
				}
				v, ok := stats.ValueAtPercentile(p, &ref)
				if !ok {
					band = nil
					break
				}
				band = append(band, fmt.Sprintf("%.1f", v))
				track(v)
			}
			if band != nil {
				bands = append(bands, strings.Join(band, ", "))
			}
		}
	}

	title := "Height"
	if measure == reference.Weight {
		title = "Weight"
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"%s Growth Curve\"\n", title))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"%s (%s)\" %d --> %d\n", title, measure.Unit(), int(math.Floor(minY*0.9)), int(math.Ceil(maxY*1.1))))
	for _, band := range bands {
		sb.WriteString(fmt.Sprintf("    line [%s]\n", band))
	}
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

func projectionFor(chart *dispatch.Chart, measure reference.Measure) *forecast.Projection {
	if measure == reference.Weight {
		return chart.WeightForecast
	}
	return chart.HeightForecast
}
