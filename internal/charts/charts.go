// Package charts renders the category breakdown as an image.
package charts

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"ledgerview/internal/aggregate"
)

// ErrNoData is returned when no category has a positive amount.
var ErrNoData = errors.New("charts: nothing to draw")

// palette is assigned to slices in breakdown order.
var palette = []drawing.Color{
	{R: 0xe7, G: 0x4c, B: 0x3c, A: 0xff},
	{R: 0x34, G: 0x98, B: 0xdb, A: 0xff},
	{R: 0x9b, G: 0x59, B: 0xb6, A: 0xff},
	{R: 0xf1, G: 0xc4, B: 0x0f, A: 0xff},
	{R: 0x1a, G: 0xbc, B: 0x9c, A: 0xff},
	{R: 0xe6, G: 0x7e, B: 0x22, A: 0xff},
	{R: 0x2e, G: 0xcc, B: 0x71, A: 0xff},
	{R: 0x95, G: 0xa5, B: 0xa6, A: 0xff},
}

// Options sizes the rendered chart. Zero values pick 800x800.
type Options struct {
	Title  string
	Width  int
	Height int
}

// BreakdownValues turns breakdown rows into pie slices, skipping empty ones.
func BreakdownValues(shares []aggregate.CategoryShare) []chart.Value {
	values := make([]chart.Value, 0, len(shares))
	for _, s := range shares {
		if s.Amount.Cents <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %s: %s (%.1f%%)", s.Category.Icon(), s.Name, s.Amount, s.Percent),
			Value: s.Amount.Float(),
			Style: chart.Style{
				FillColor:   palette[len(values)%len(palette)],
				StrokeColor: chart.ColorWhite,
				StrokeWidth: 2,
				FontSize:    12,
			},
		})
	}
	return values
}

// RenderBreakdownPNG draws the breakdown as a pie chart.
func RenderBreakdownPNG(shares []aggregate.CategoryShare, opts Options) ([]byte, error) {
	values := BreakdownValues(shares)
	if len(values) == 0 {
		return nil, ErrNoData
	}
	if opts.Width <= 0 {
		opts.Width = 800
	}
	if opts.Height <= 0 {
		opts.Height = 800
	}
	if opts.Title == "" {
		opts.Title = "Spending by category"
	}

	pie := chart.PieChart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Values: values,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    40,
				Left:   40,
				Right:  40,
				Bottom: 40,
			},
			FillColor: chart.ColorWhite,
		},
	}

	buffer := bytes.NewBuffer(nil)
	if err := pie.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("render category pie chart: %w", err)
	}
	return buffer.Bytes(), nil
}
