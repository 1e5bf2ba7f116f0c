package reaction

import "math"

// SteadyState returns the non-negative fixed point of the model for
// conventional (non-negative) parameters.
//
// Subtracting the two equations gives d(z1-z2)/dt = (u-v) - phi*(z1-z2), so
// at steady state z1 - z2 = D with D = (u-v)/phi. Substituting z2 = z1 - D
// into the first equation leaves gamma*z1^2 + (phi - gamma*D)*z1 - u = 0.
//
// ok is false when no unique bounded fixed point exists: phi == 0 with
// u != v, both phi and gamma zero, or parameters outside the conventional
// regime.
func (p Params) SteadyState() (z1, z2 float64, ok bool) {
	if p.Validate() != nil || !p.Conventional() {
		return 0, 0, false
	}

	switch {
	case p.Phi == 0 && p.Gamma == 0:
		return 0, 0, false
	case p.Phi == 0:
		// Pure titration only balances equal production; the split
		// between the two species then depends on the initial state.
		return 0, 0, false
	case p.Gamma == 0:
		return p.U / p.Phi, p.V / p.Phi, true
	}

	d := (p.U - p.V) / p.Phi
	b := p.Phi - p.Gamma*d
	disc := b*b + 4*p.Gamma*p.U

	// Numerically stable root of gamma*z^2 + b*z - u = 0.
	if b >= 0 {
		z1 = 2 * p.U / (b + math.Sqrt(disc))
	} else {
		z1 = (-b + math.Sqrt(disc)) / (2 * p.Gamma)
	}
	z2 = z1 - d
	if z2 < 0 {
		// Rounding when z2 is vanishingly small.
		z2 = 0
	}
	return z1, z2, true
}
