package explain

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/okian/crisk/internal/domain/model"
)

var barColor = color.RGBA{R: 0xd9, G: 0x5f, B: 0x3a, A: 0xff}

// RenderChart draws the ranked attributions as a bar chart and returns the
// PNG bytes base64-encoded for embedding in JSON responses and reports.
// Bars above zero push the record toward default, bars below toward repaid.
func RenderChart(attrs []model.Attribution, baseValue float64) (string, error) {
	if len(attrs) == 0 {
		return "", fmt.Errorf("%w: no attributions", ErrRenderChart)
	}

	values := make(plotter.Values, len(attrs))
	names := make([]string, len(attrs))
	for i, a := range attrs {
		values[i] = a.Value
		names[i] = a.Feature
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Feature attribution (base value %.3f)", baseValue)
	p.Y.Label.Text = "shift in default probability"

	bars, err := plotter.NewBarChart(values, vg.Points(26))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderChart, err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = 0.6
	p.X.Tick.Label.XAlign = -1

	wt, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderChart, err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderChart, err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
