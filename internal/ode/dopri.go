package ode

import "math"

// errorOrder is the order of the embedded error estimator. The step
// controller scales by errNorm^(-1/(errorOrder+1)).
const errorOrder = 4

var errorExponent = -1.0 / (errorOrder + 1)

// Dormand-Prince 5(4) tableau.
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}

	dpA = [6][5]float64{
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784},
	}

	// dpB are the fifth order weights; the last stage is only used by the
	// error estimate and as the next step's first stage (FSAL).
	dpB = [6]float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84}

	// dpE is the difference between the fifth and fourth order weights.
	dpE = [7]float64{-71.0 / 57600, 0, 71.0 / 16695, -71.0 / 1920, 17253.0 / 339200, -22.0 / 525, 1.0 / 40}
)

// step attempts one Dormand-Prince step of size h from (in.t, in.y). The
// candidate state is left in in.yNew and its derivative in in.k[6]. It
// returns the RMS norm of the local error relative to the tolerances;
// values <= 1 mean the step is acceptable. Non-finite stages yield +Inf.
func (in *integrator) step(h float64) float64 {
	k := &in.k
	k[0] = in.f

	for s := 1; s < 7; s++ {
		row := dpA[s-1]
		for i := range in.yTmp {
			acc := 0.0
			for j := 0; j < s && j < 5; j++ {
				acc += row[j] * k[j][i]
			}
			if s == 6 {
				// Row six of A equals the fifth order weights; stage six
				// contributes through dpB.
				acc += dpB[5] * k[5][i]
			}
			in.yTmp[i] = in.y[i] + h*acc
		}
		if s == 6 {
			copy(in.yNew, in.yTmp)
		}
		in.eval(in.t+dpC[s]*h, in.yTmp, k[s])
	}

	if !allFinite(in.yNew) || !allFinite(k[6]) {
		return math.Inf(1)
	}

	var sum float64
	for i := range in.err {
		e := 0.0
		for s := 0; s < 7; s++ {
			e += dpE[s] * k[s][i]
		}
		e *= h
		scale := in.opts.AbsTol + math.Max(math.Abs(in.y[i]), math.Abs(in.yNew[i]))*in.opts.RelTol
		r := e / scale
		sum += r * r
	}
	return math.Sqrt(sum / float64(len(in.err)))
}
