package constants

import "testing"

func TestSpecies_Valid(t *testing.T) {
	tests := []struct {
		name    string
		species Species
		want    bool
	}{
		{"z1", SpeciesZ1, true},
		{"z2", SpeciesZ2, true},
		{"negative", Species(-1), false},
		{"out of range", Species(2), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.species.Valid(); got != tt.want {
				t.Errorf("Species(%d).Valid() = %v, want %v", tt.species, got, tt.want)
			}
		})
	}
}

func TestSpecies_String(t *testing.T) {
	tests := []struct {
		species Species
		want    string
	}{
		{SpeciesZ1, "z1"},
		{SpeciesZ2, "z2"},
		{Species(7), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.species.String(); got != tt.want {
			t.Errorf("Species(%d).String() = %q, want %q", tt.species, got, tt.want)
		}
	}
}

func TestSpecies_MatchesCarrierWidth(t *testing.T) {
	// Every carrier slot must map onto a species row.
	for i := 0; i < CarrierWidth; i++ {
		if !Species(i).Valid() {
			t.Errorf("carrier slot %d has no species", i)
		}
	}
}
