package monitor

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/pitchtrace/internal/ball/phase"
	"github.com/banshee-data/pitchtrace/internal/ball/track"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// TrackChart builds an interactive scatter of the track in image space.
// Each point carries its frame index as a third value for the tooltip.
func TrackChart(title, subtitle string, arr *track.Array, b *phase.Boundary) *charts.Scatter {
	var pitch, hit []opts.ScatterData
	for _, f := range arr.ValidFrames() {
		p, _ := arr.Position(f)
		d := opts.ScatterData{Value: []interface{}{p.X, -p.Y, f}}
		if b != nil && f >= b.HitFrame {
			hit = append(hit, d)
		} else {
			pitch = append(pitch, d)
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "1100px", Height: "640px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "-Y (px)", NameLocation: "middle", NameGap: 40}),
	)
	scatter.AddSeries("pitch", pitch, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#1f77b4"}))
	if len(hit) > 0 {
		scatter.AddSeries("hit", hit, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff5252"}))
	}
	if b != nil {
		contact := []opts.ScatterData{{Value: []interface{}{b.HitPoint.X, -b.HitPoint.Y, b.HitFrame}}}
		scatter.AddSeries("contact", contact, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#35b779"}))
	}
	return scatter
}

// RenderTrackPage writes a standalone HTML page holding the track chart.
func RenderTrackPage(w io.Writer, title string, arr *track.Array, b *phase.Boundary) error {
	subtitle := fmt.Sprintf("frames=%d valid=%d", arr.Len(), arr.CountValid())
	if b != nil {
		subtitle += " " + b.String()
	}
	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(TrackChart(title, subtitle, arr, b))
	return page.Render(w)
}
