package taxi

import (
	"fmt"

	"github.com/zeu5/taxi-rl/types"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// VisitDataSet counts how often the taxi occupied each cell
type VisitDataSet struct {
	Visits map[int]map[int]int
	Size   int
}

var _ plotter.GridXYZ = &VisitDataSet{}

func NewVisitDataSet(size int) *VisitDataSet {
	return &VisitDataSet{
		Visits: make(map[int]map[int]int),
		Size:   size,
	}
}

func (v *VisitDataSet) Dims() (int, int) {
	return v.Size, v.Size
}

func (v *VisitDataSet) Z(c, r int) float64 {
	return float64(v.Visits[c][r])
}

func (v *VisitDataSet) X(c int) float64 {
	return float64(c)
}

func (v *VisitDataSet) Y(r int) float64 {
	return float64(r)
}

func (v *VisitDataSet) Min() float64 {
	return 0.0
}

func (v *VisitDataSet) Max() float64 {
	max := 0
	for _, vals := range v.Visits {
		for _, count := range vals {
			if count > max {
				max = count
			}
		}
	}
	return float64(max)
}

func (v *VisitDataSet) add(x, y int) {
	if _, ok := v.Visits[x]; !ok {
		v.Visits[x] = make(map[int]int)
	}
	v.Visits[x][y] += 1
}

// Analyze records the taxi cells of the trace, the start cell of every step is counted
func (v *VisitDataSet) Analyze(trace *types.Trace) {
	for i := 0; i < trace.Len(); i++ {
		state, _, _, _ := trace.Get(i)
		v.add(state.TaxiX, state.TaxiY)
	}
	if _, _, last, ok := trace.Last(); ok {
		v.add(last.TaxiX, last.TaxiY)
	}
}

// Total number of recorded visits
func (v *VisitDataSet) Total() int {
	total := 0
	for _, vals := range v.Visits {
		for _, count := range vals {
			total += count
		}
	}
	return total
}

// SaveHeatMap plots the visits as a heat map
func (v *VisitDataSet) SaveHeatMap(path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Taxi visits (%dx%d)", v.Size, v.Size)
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(plotter.NewHeatMap(v, palette.Heat(20, 1)))
	return p.Save(4*vg.Inch, 4*vg.Inch, path)
}
