package skill

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRadarChart_PointCountMatchesInput(t *testing.T) {
	values := []RadarValue{
		{Label: "Mind", Value: 80},
		{Label: "Body", Value: 40},
		{Label: "Craft", Value: 100},
		{Label: "Spirit", Value: 0},
	}

	chart := BuildRadarChart(values, 300)

	assert.Len(t, chart.Axes, len(values))
	assert.Len(t, chart.GridRings, 5)
	assert.Equal(t, 300*0.35, chart.Radius)
}

func TestBuildRadarChart_PointsWithinRadius(t *testing.T) {
	values := []RadarValue{
		{Label: "A", Value: 100},
		{Label: "B", Value: 250}, // clamped to 100
		{Label: "C", Value: 50},
		{Label: "D", Value: -10}, // clamped to 0
		{Label: "E", Value: 73},
	}

	size := 400.0
	chart := BuildRadarChart(values, size)

	for _, axis := range chart.Axes {
		dx := axis.Point.X - chart.Center.X
		dy := axis.Point.Y - chart.Center.Y
		dist := math.Hypot(dx, dy)
		assert.LessOrEqual(t, dist, size*0.35+1e-9, "axis %s", axis.Label)
		assert.GreaterOrEqual(t, axis.Value, float64(0))
		assert.LessOrEqual(t, axis.Value, float64(100))
	}
}

func TestBuildRadarChart_StartsAtTopGoesClockwise(t *testing.T) {
	values := []RadarValue{
		{Label: "N", Value: 100},
		{Label: "E", Value: 100},
		{Label: "S", Value: 100},
		{Label: "W", Value: 100},
	}

	chart := BuildRadarChart(values, 200)
	require.Len(t, chart.Axes, 4)

	center := chart.Center
	r := chart.Radius

	// First axis points straight up from center.
	assert.InDelta(t, center.X, chart.Axes[0].Point.X, 0.01)
	assert.InDelta(t, center.Y-r, chart.Axes[0].Point.Y, 0.01)

	// Second axis is a quarter turn clockwise (to the right in SVG space).
	assert.InDelta(t, center.X+r, chart.Axes[1].Point.X, 0.01)
	assert.InDelta(t, center.Y, chart.Axes[1].Point.Y, 0.01)

	// Third points down, fourth left.
	assert.InDelta(t, center.Y+r, chart.Axes[2].Point.Y, 0.01)
	assert.InDelta(t, center.X-r, chart.Axes[3].Point.X, 0.01)
}

func TestBuildRadarChart_PolygonPath(t *testing.T) {
	chart := BuildRadarChart([]RadarValue{
		{Label: "A", Value: 50},
		{Label: "B", Value: 50},
		{Label: "C", Value: 50},
	}, 300)

	assert.True(t, strings.HasPrefix(chart.Polygon, "M "))
	assert.True(t, strings.HasSuffix(chart.Polygon, " Z"))
	assert.Equal(t, 2, strings.Count(chart.Polygon, "L "))
}

func TestBuildRadarChart_GridRingsAscendToRadius(t *testing.T) {
	chart := BuildRadarChart([]RadarValue{{Label: "A", Value: 10}}, 500)

	require.Len(t, chart.GridRings, 5)
	for i := 1; i < len(chart.GridRings); i++ {
		assert.Greater(t, chart.GridRings[i], chart.GridRings[i-1])
	}
	assert.InDelta(t, chart.Radius, chart.GridRings[4], 1e-9)
}

func TestBuildRadarChart_Deterministic(t *testing.T) {
	values := []RadarValue{
		{Label: "Mind", Value: 61.5},
		{Label: "Body", Value: 33},
	}

	a := BuildRadarChart(values, 300)
	b := BuildRadarChart(values, 300)
	assert.Equal(t, a, b)
}

func TestBuildRadarChart_EmptyInput(t *testing.T) {
	chart := BuildRadarChart(nil, 300)

	assert.Empty(t, chart.Axes)
	assert.Empty(t, chart.Polygon)
	assert.Len(t, chart.GridRings, 5)
}

func TestRadarFromCategories(t *testing.T) {
	categories := []CategoryProgress{
		{Name: "Mind", RawPoints: 137, Display: 100},
		{Name: "Body", RawPoints: 40, Display: 40},
	}

	chart := RadarFromCategories(categories, 300)
	require.Len(t, chart.Axes, 2)
	assert.Equal(t, "Mind", chart.Axes[0].Label)
	assert.Equal(t, float64(100), chart.Axes[0].Value)
	assert.Equal(t, float64(40), chart.Axes[1].Value)
}
