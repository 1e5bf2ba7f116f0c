package perceptron

import (
	"github.com/nvandessel/dbnn/internal/constants"
	"github.com/nvandessel/dbnn/internal/ode"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Trajectory is the result of integrating one perceptron: the sample times
// and a 2xN concentration matrix whose rows are Z1 and Z2.
type Trajectory struct {
	T     []float64
	Y     *mat.Dense
	Stats ode.Stats
}

// Len returns the number of samples.
func (tr *Trajectory) Len() int {
	return len(tr.T)
}

// Species returns a copy of the concentration series of s.
func (tr *Trajectory) Species(s constants.Species) []float64 {
	return mat.Row(nil, int(s), tr.Y)
}

// Z1 returns a copy of the active species series.
func (tr *Trajectory) Z1() []float64 {
	return tr.Species(constants.SpeciesZ1)
}

// Z2 returns a copy of the sequestered species series.
func (tr *Trajectory) Z2() []float64 {
	return tr.Species(constants.SpeciesZ2)
}

// At returns the concentration of s at sample i.
func (tr *Trajectory) At(s constants.Species, i int) float64 {
	return tr.Y.At(int(s), i)
}

// Initial returns the first column.
func (tr *Trajectory) Initial() (z1, z2 float64) {
	return tr.Y.At(0, 0), tr.Y.At(1, 0)
}

// Final returns the last column.
func (tr *Trajectory) Final() (z1, z2 float64) {
	last := tr.Len() - 1
	return tr.Y.At(0, last), tr.Y.At(1, last)
}

// Settled reports whether the standard deviation of each species over the
// last window samples is below eps. Trajectories shorter than window are
// judged on all their samples.
func (tr *Trajectory) Settled(window int, eps float64) bool {
	n := tr.Len()
	if window <= 0 || window > n {
		window = n
	}
	for _, s := range []constants.Species{constants.SpeciesZ1, constants.SpeciesZ2} {
		tail := tr.Species(s)[n-window:]
		if len(tail) > 1 && stat.StdDev(tail, nil) >= eps {
			return false
		}
	}
	return true
}
