package roll

import (
	"fmt"
	"math"
	"strings"
)

const (
	waveTolerance = 1e-6
	cosTolerance  = 1e-3
)

// Violation names one field that does not match the declared record shape.
type Violation struct {
	Field  string
	Reason string
}

func (v Violation) String() string {
	return v.Field + ": " + v.Reason
}

// ValidationError lists every violation found in a record.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "invalid roll record: " + strings.Join(parts, "; ")
}

// Has reports whether a violation was recorded for field.
func (e *ValidationError) Has(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

// Validate checks ranges and cross-field invariants. It returns nil or a
// *ValidationError.
func (r Record) Validate() error {
	var out []Violation
	add := func(field, format string, args ...any) {
		out = append(out, Violation{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	rollOK := inRange(r.Roll)
	if !rollOK {
		add("roll", "%d out of range [0,7]", r.Roll)
	}
	downOK := inRange(r.FaceDown)
	if !downOK {
		add("face_down", "%d out of range [0,7]", r.FaceDown)
	}
	if r.Roll+r.FaceDown != Hamiltonian {
		add("face_down", "roll + face_down = %d, want %d", r.Roll+r.FaceDown, Hamiltonian)
	}
	if r.Hamiltonian != Hamiltonian {
		add("hamiltonian", "got %d, want %d", r.Hamiltonian, Hamiltonian)
	}

	if rollOK {
		if r.RollParity != ParityOf(r.Roll) {
			add("roll_parity", "%q does not match roll %d", r.RollParity, r.Roll)
		}
		if math.Abs(r.RollCos-math.Cos(math.Pi*float64(r.Roll))) > cosTolerance {
			add("roll_cos", "%.4f is not cos(pi*%d)", r.RollCos, r.Roll)
		}
		if r.QubitBits() != Bits(r.Roll) {
			add("qubitState", "%q does not label roll %d", r.QubitState, r.Roll)
		}
	}
	if downOK {
		if r.FaceDownParity != ParityOf(r.FaceDown) {
			add("face_down_parity", "%q does not match face_down %d", r.FaceDownParity, r.FaceDown)
		}
		if math.Abs(r.FaceDownCos-math.Cos(math.Pi*float64(r.FaceDown))) > cosTolerance {
			add("face_down_cos", "%.4f is not cos(pi*%d)", r.FaceDownCos, r.FaceDown)
		}
	}

	if len(r.WaveFunction) != Faces {
		add("waveFunction", "has %d amplitudes, want %d", len(r.WaveFunction), Faces)
	} else if rollOK {
		for i, a := range r.WaveFunction {
			want := 0.0
			if i == r.Roll {
				want = 1
			}
			if math.Abs(a-want) > waveTolerance {
				add("waveFunction", "not one-hot at index %d", r.Roll)
				break
			}
		}
	}

	if r.QEC != nil {
		if len(r.QEC.PhysicalRolls) != 3 {
			add("qec.physicalRolls", "has %d values, want 3", len(r.QEC.PhysicalRolls))
		}
		for i, v := range r.QEC.PhysicalRolls {
			if !inRange(v) {
				add("qec.physicalRolls", "value %d at index %d out of range [0,7]", v, i)
			}
		}
	}

	if len(out) == 0 {
		return nil
	}
	return &ValidationError{Violations: out}
}

func inRange(v int) bool {
	return v >= 0 && v < Faces
}
