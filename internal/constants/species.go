package constants

// Species identifies one of the two chemical species of a perceptron.
// The value is the row index of the species in a trajectory matrix.
type Species int

const (
	// SpeciesZ1 is the active (output) species.
	SpeciesZ1 Species = 0

	// SpeciesZ2 is the sequestered species.
	SpeciesZ2 Species = 1
)

// Valid returns true if the species is a recognized value.
func (s Species) Valid() bool {
	switch s {
	case SpeciesZ1, SpeciesZ2:
		return true
	}
	return false
}

// String returns the conventional name of the species.
func (s Species) String() string {
	switch s {
	case SpeciesZ1:
		return "z1"
	case SpeciesZ2:
		return "z2"
	}
	return "unknown"
}
