package dynamics

import "quantumdie/internal/roll"

// highlightThreshold is the minimum dominant percentage worth highlighting.
const highlightThreshold = 0.1

// StateEntry is one basis state of the state-vector detail.
type StateEntry struct {
	Index       int
	Label       string  // |bbb⟩
	Probability float64 // percent, after normalisation
}

// StateVector is the normalised view of a set of amplitudes.
type StateVector struct {
	Entries  []StateEntry
	Total    float64 // sum before normalisation
	Dominant int     // index of the largest entry, -1 when none stands out
}

// Normalize rescales amps so they sum to 100%. A non-positive total leaves
// the values as they are.
func Normalize(amps []float64) StateVector {
	sv := StateVector{Dominant: -1}
	for _, p := range amps {
		sv.Total += p
	}

	best := 0.0
	for i, p := range amps {
		if sv.Total > 0 {
			p /= sv.Total
		}
		pct := p * 100
		sv.Entries = append(sv.Entries, StateEntry{Index: i, Label: roll.QubitLabel(i), Probability: pct})
		if pct > best {
			best = pct
			sv.Dominant = i
		}
	}
	if best <= highlightThreshold {
		sv.Dominant = -1
	}
	return sv
}
