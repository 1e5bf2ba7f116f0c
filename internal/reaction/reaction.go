// Package reaction defines the cross-sequestration reaction model behind a
// biomolecular perceptron. Two species are produced at constant rates, decay
// at a shared first-order rate, and titrate each other through a bimolecular
// reaction:
//
//	dz1/dt = u - gamma*z1*z2 - phi*z1
//	dz2/dt = v - gamma*z1*z2 - phi*z2
package reaction

import (
	"errors"
	"fmt"
	"math"

	"github.com/nvandessel/dbnn/internal/ode"
)

// ErrInvalidParameter is returned for a non-finite rate constant.
var ErrInvalidParameter = errors.New("invalid parameter")

// Params are the fixed rate constants of the model.
type Params struct {
	// U is the production rate of Z1.
	U float64 `json:"u" yaml:"u"`

	// V is the production rate of Z2.
	V float64 `json:"v" yaml:"v"`

	// Gamma is the titration (sequestration) rate.
	Gamma float64 `json:"gamma" yaml:"gamma"`

	// Phi is the decay rate shared by both species.
	Phi float64 `json:"phi" yaml:"phi"`
}

// Validate reports ErrInvalidParameter if any rate is NaN or infinite.
// Negative rates are accepted; see Conventional.
func (p Params) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"u", p.U},
		{"v", p.V},
		{"gamma", p.Gamma},
		{"phi", p.Phi},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s = %g", ErrInvalidParameter, f.name, f.value)
		}
	}
	return nil
}

// Conventional reports whether every rate is non-negative, the regime in
// which concentrations stay non-negative from non-negative initial states.
func (p Params) Conventional() bool {
	return p.U >= 0 && p.V >= 0 && p.Gamma >= 0 && p.Phi >= 0
}

// Derivative writes the rates of change at state z = (z1, z2) into dz.
func (p Params) Derivative(_ float64, z, dz []float64) {
	titration := p.Gamma * z[0] * z[1]
	dz[0] = p.U - titration - p.Phi*z[0]
	dz[1] = p.V - titration - p.Phi*z[1]
}

// System adapts the model to the integrator.
func (p Params) System() ode.System {
	return p.Derivative
}

// String implements fmt.Stringer.
func (p Params) String() string {
	return fmt.Sprintf("u=%g v=%g gamma=%g phi=%g", p.U, p.V, p.Gamma, p.Phi)
}
