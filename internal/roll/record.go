// Package roll defines the record returned for one quantum die measurement.
// Records are produced by the generative oracle and are only parsed here;
// nothing about the "physics" is computed locally.
package roll

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Faces is the number of faces on the die (an octahedron, 3 qubits).
const Faces = 8

// Hamiltonian is the conserved energy every record is expected to report.
const Hamiltonian = 7

// Parity of a face value.
type Parity string

const (
	ParityEven Parity = "even"
	ParityOdd  Parity = "odd"
)

// ParityOf returns the parity of a face value.
func ParityOf(v int) Parity {
	if v%2 == 0 {
		return ParityEven
	}
	return ParityOdd
}

// UnmarshalJSON accepts "even"/"odd" and the Spanish labels "par"/"impar"
// the service returned historically. Unknown labels are kept verbatim so
// validation can report them.
func (p *Parity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parity: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "even", "par":
		*p = ParityEven
	case "odd", "impar":
		*p = ParityOdd
	default:
		*p = Parity(s)
	}
	return nil
}

// QEC is the optional error-correction block: three physical measurements of
// one logical qubit register.
type QEC struct {
	PhysicalRolls []int `json:"physicalRolls"`
	ErrorOccurred bool  `json:"errorOccurred"`
	WasCorrected  bool  `json:"wasCorrected"`
}

// LogicalResult is the majority vote over the physical rolls. Ties go to the
// earliest value with the highest count. Returns -1 with no physical rolls.
func (q QEC) LogicalResult() int {
	best, bestCount := -1, 0
	for _, candidate := range q.PhysicalRolls {
		count := 0
		for _, v := range q.PhysicalRolls {
			if v == candidate {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = candidate, count
		}
	}
	return best
}

// ErrorIndices returns the positions of physical rolls that disagree with the
// logical result. Empty unless ErrorOccurred is set.
func (q QEC) ErrorIndices() []int {
	if !q.ErrorOccurred {
		return nil
	}
	logical := q.LogicalResult()
	var idx []int
	for i, v := range q.PhysicalRolls {
		if v != logical {
			idx = append(idx, i)
		}
	}
	return idx
}

// Record is one parsed measurement.
type Record struct {
	Roll           int       `json:"roll"`
	FaceDown       int       `json:"face_down"`
	Hamiltonian    int       `json:"hamiltonian"`
	RollCos        float64   `json:"roll_cos"`
	FaceDownCos    float64   `json:"face_down_cos"`
	RollParity     Parity    `json:"roll_parity"`
	FaceDownParity Parity    `json:"face_down_parity"`
	QubitState     string    `json:"qubitState"`
	WaveFunction   []float64 `json:"waveFunction"`
	QEC            *QEC      `json:"qec,omitempty"`
}

// QubitBits returns the bare 3-character binary label, stripping ket
// notation such as "|010⟩" or "|010>".
func (r Record) QubitBits() string {
	s := strings.TrimSpace(r.QubitState)
	s = strings.TrimPrefix(s, "|")
	s = strings.TrimSuffix(s, "⟩")
	s = strings.TrimSuffix(s, ">")
	return s
}

// Bits returns the 3-bit binary string for a basis index.
func Bits(n int) string {
	return fmt.Sprintf("%03b", n)
}

// QubitLabel returns the ket label for a basis index, e.g. "|010⟩".
func QubitLabel(n int) string {
	return "|" + Bits(n) + "⟩"
}

// Collapsed builds the ideal record for a face value. Used by the simulate
// command and by tests; the oracle never goes through it.
func Collapsed(value int) Record {
	down := Hamiltonian - value
	wave := make([]float64, Faces)
	if value >= 0 && value < Faces {
		wave[value] = 1
	}
	return Record{
		Roll:           value,
		FaceDown:       down,
		Hamiltonian:    Hamiltonian,
		RollCos:        cosPi(value),
		FaceDownCos:    cosPi(down),
		RollParity:     ParityOf(value),
		FaceDownParity: ParityOf(down),
		QubitState:     QubitLabel(value),
		WaveFunction:   wave,
	}
}

func cosPi(v int) float64 {
	if v%2 == 0 {
		return 1
	}
	return -1
}
