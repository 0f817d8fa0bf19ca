package skill

import (
	"fmt"
	"math"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// RADAR CHART GEOMETRY
// Pure functions: the HTTP layer serves the result as JSON and the web
// client just draws it. Deterministic given inputs.
// ══════════════════════════════════════════════════════════════════════════════

const (
	// radarRadiusFactor - chart radius as a fraction of the output size.
	radarRadiusFactor = 0.35

	// radarGridRings - number of concentric reference rings.
	radarGridRings = 5
)

// RadarPoint is a 2D coordinate in the chart's pixel space.
type RadarPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RadarAxis is one labeled spoke of the chart.
type RadarAxis struct {
	// Label - the category name.
	Label string `json:"label"`

	// Value - the clamped 0-100 input value.
	Value float64 `json:"value"`

	// Point - where the value lands on the spoke.
	Point RadarPoint `json:"point"`

	// End - the outer end of the spoke at full radius.
	End RadarPoint `json:"end"`
}

// RadarChart is the complete geometry for one chart.
type RadarChart struct {
	// Size - width and height of the square canvas.
	Size float64 `json:"size"`

	// Center - the chart midpoint.
	Center RadarPoint `json:"center"`

	// Radius - distance from center to the 100-value ring.
	Radius float64 `json:"radius"`

	// Axes - one entry per input value, clockwise from the top.
	Axes []RadarAxis `json:"axes"`

	// Polygon - SVG path for the filled value polygon.
	Polygon string `json:"polygon"`

	// GridRings - radii of the concentric reference rings, inner first.
	GridRings []float64 `json:"grid_rings"`
}

// RadarValue is a named input value for one axis.
type RadarValue struct {
	Label string
	Value float64
}

// BuildRadarChart places the values evenly around a circle, starting at
// the top and going clockwise, with each point's radius proportional to
// its value. Values are clamped to [0, 100] before placement.
func BuildRadarChart(values []RadarValue, size float64) RadarChart {
	center := RadarPoint{X: size / 2, Y: size / 2}
	radius := size * radarRadiusFactor

	chart := RadarChart{
		Size:      size,
		Center:    center,
		Radius:    radius,
		Axes:      make([]RadarAxis, 0, len(values)),
		GridRings: make([]float64, 0, radarGridRings),
	}

	for i := 1; i <= radarGridRings; i++ {
		chart.GridRings = append(chart.GridRings, radius*float64(i)/radarGridRings)
	}

	if len(values) == 0 {
		return chart
	}

	angleStep := 2 * math.Pi / float64(len(values))
	var path strings.Builder

	for i, v := range values {
		// Start at the top of the circle.
		angle := float64(i)*angleStep - math.Pi/2
		value := clamp(v.Value, 0, 100)

		point := pointAt(center, radius*value/100, angle)
		end := pointAt(center, radius, angle)

		chart.Axes = append(chart.Axes, RadarAxis{
			Label: v.Label,
			Value: value,
			Point: point,
			End:   end,
		})

		if i == 0 {
			fmt.Fprintf(&path, "M %.2f,%.2f", point.X, point.Y)
		} else {
			fmt.Fprintf(&path, " L %.2f,%.2f", point.X, point.Y)
		}
	}
	path.WriteString(" Z")
	chart.Polygon = path.String()

	return chart
}

// RadarFromCategories adapts aggregated category progress into chart input.
func RadarFromCategories(categories []CategoryProgress, size float64) RadarChart {
	values := make([]RadarValue, 0, len(categories))
	for _, c := range categories {
		values = append(values, RadarValue{Label: c.Name, Value: c.Display})
	}
	return BuildRadarChart(values, size)
}

func pointAt(center RadarPoint, r, angle float64) RadarPoint {
	return RadarPoint{
		X: center.X + r*math.Cos(angle),
		Y: center.Y + r*math.Sin(angle),
	}
}
