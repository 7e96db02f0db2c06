package training

import (
	"errors"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

var ErrNoRecords = errors.New("no completed episodes to plot")

// PlotLearningCurve draws reward and steps per episode and saves the plot to path.
// The image format follows the extension of path.
func PlotLearningCurve(path string, records []EpisodeRecord) error {
	if len(records) == 0 {
		return ErrNoRecords
	}
	p := plot.New()
	p.Title.Text = "Learning curve"
	p.X.Label.Text = "Episode"
	p.Y.Label.Text = "Value"

	rewards := make(plotter.XYs, len(records))
	steps := make(plotter.XYs, len(records))
	for i, r := range records {
		rewards[i] = plotter.XY{X: float64(r.Episode), Y: r.Reward}
		steps[i] = plotter.XY{X: float64(r.Episode), Y: float64(r.Steps)}
	}

	for i, series := range []struct {
		name   string
		points plotter.XYs
	}{{"reward", rewards}, {"steps", steps}} {
		line, err := plotter.NewLine(series.points)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(series.name, line)
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
